// Package inbound defines the inbound ports (interfaces) for the application layer.
// These ports represent the entry points into the application's core business logic.
package inbound

import (
	"context"

	"luascan/internal/application/dto"
	"luascan/internal/port/outbound"
)

// FunctionAnalysisService defines the inbound port for scanning Lua sources.
type FunctionAnalysisService interface {
	AnalyzeSource(ctx context.Context, path string, content []byte) (*dto.LuaDocument, error)
	AnalyzeFiles(ctx context.Context, paths []string) ([]*dto.LuaDocument, error)
	IndexFiles(ctx context.Context, paths []string) ([]*dto.LuaDocument, error)
	LookupGlobalFunction(ctx context.Context, name string) ([]outbound.IndexedFunction, error)
}
