package service

import (
	"strings"

	"luascan/internal/domain/entity"
)

// FunctionDescriptorBuilder turns signature matches into tree nodes.
type FunctionDescriptorBuilder struct{}

// NewFunctionDescriptorBuilder creates a descriptor builder.
func NewFunctionDescriptorBuilder() *FunctionDescriptorBuilder {
	return &FunctionDescriptorBuilder{}
}

// Build allocates an open function in tree for a signature match.
// startOffset is the character offset of match.Start. The node has no parent
// until one is assigned.
func (b *FunctionDescriptorBuilder) Build(
	tree *entity.FunctionTree,
	match MatchResult,
	startOffset int,
) *entity.LuaFunction {
	return tree.AddFunction(match.Name, match.IsLocal, ParseArguments(match.RawArguments), startOffset)
}

// ParseArguments splits a raw parameter list on commas. Pieces are trimmed
// and empty pieces dropped, so "a, b," yields [a b].
func ParseArguments(raw string) []entity.Argument {
	args := make([]entity.Argument, 0)
	for _, piece := range strings.Split(raw, ",") {
		name := strings.TrimSpace(piece)
		if name == "" {
			continue
		}
		args = append(args, entity.Argument{Name: name})
	}
	return args
}
