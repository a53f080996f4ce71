package service

import "luascan/internal/domain/entity"

// GlobalFunctionExtractor flattens a function tree into the functions visible
// at global scope.
type GlobalFunctionExtractor struct{}

// NewGlobalFunctionExtractor creates an extractor.
func NewGlobalFunctionExtractor() *GlobalFunctionExtractor {
	return &GlobalFunctionExtractor{}
}

// Extract returns, in pre-order, every function that is either at the root
// (local or not) or declared without local. The walk always descends into
// children, since a local function may still define globals.
func (e *GlobalFunctionExtractor) Extract(tree *entity.FunctionTree) []*entity.LuaFunction {
	globals := make([]*entity.LuaFunction, 0)
	if tree == nil {
		return globals
	}

	tree.Walk(func(fn *entity.LuaFunction) bool {
		if IsGlobal(fn) {
			globals = append(globals, fn)
		}
		return true
	})
	return globals
}

// IsGlobal applies the locality rule to a single function.
func IsGlobal(fn *entity.LuaFunction) bool {
	return fn.IsRoot() || !fn.IsLocal()
}
