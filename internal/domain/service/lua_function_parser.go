package service

import (
	"fmt"

	"luascan/internal/domain/entity"
	"luascan/internal/domain/errors/domain"
)

// LuaFunctionParser combines the boundary scanner and the global function
// extractor. It holds no per-call state and is safe for concurrent use.
type LuaFunctionParser struct {
	scanner   *BoundaryScanner
	extractor *GlobalFunctionExtractor
}

// NewLuaFunctionParser creates a parser with the default matchers.
func NewLuaFunctionParser() *LuaFunctionParser {
	return &LuaFunctionParser{
		scanner:   NewBoundaryScanner(),
		extractor: NewGlobalFunctionExtractor(),
	}
}

// ParseFunctions returns the full function tree of src.
func (p *LuaFunctionParser) ParseFunctions(src string) *entity.FunctionTree {
	return p.scanner.Parse(src)
}

// GlobalFunctions flattens an already built tree. It only reads the tree.
func (p *LuaFunctionParser) GlobalFunctions(tree *entity.FunctionTree) []*entity.LuaFunction {
	return p.extractor.Extract(tree)
}

// ParseGlobalFunctions returns the globally visible functions of src.
func (p *LuaFunctionParser) ParseGlobalFunctions(src string) []*entity.LuaFunction {
	return p.GlobalFunctions(p.ParseFunctions(src))
}

// Diagnostics reports every unterminated function of tree as a SyntaxError
// wrapping domain.ErrUnterminatedFunction.
func Diagnostics(tree *entity.FunctionTree) []*domain.SyntaxError {
	diagnostics := make([]*domain.SyntaxError, 0)
	if tree == nil {
		return diagnostics
	}

	for _, fn := range tree.Unterminated() {
		diagnostics = append(diagnostics, domain.NewSyntaxError(
			fn.StartOffset(),
			fmt.Sprintf("function %s has no matching end", fn.Name()),
			domain.ErrUnterminatedFunction,
		))
	}
	return diagnostics
}
