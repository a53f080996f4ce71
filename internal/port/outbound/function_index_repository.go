package outbound

import (
	"context"
	"time"

	"luascan/internal/application/dto"
	"luascan/internal/domain/entity"

	"github.com/google/uuid"
)

// FunctionIndexRepository defines the outbound port for persisting scan results.
type FunctionIndexRepository interface {
	// SaveDocument stores every function of the document atomically.
	SaveDocument(ctx context.Context, doc *dto.LuaDocument) error
	FindGlobalFunctionsByName(ctx context.Context, name string) ([]IndexedFunction, error)
}

// IndexedFunction is a stored function row.
type IndexedFunction struct {
	ID          uuid.UUID  `json:"id" yaml:"id"`
	ScanID      uuid.UUID  `json:"scan_id" yaml:"scan_id"`
	FilePath    string     `json:"file_path" yaml:"file_path"`
	Name        string     `json:"name" yaml:"name"`
	Arguments   []string   `json:"arguments" yaml:"arguments"`
	IsLocal     bool       `json:"is_local" yaml:"is_local"`
	IsGlobal    bool       `json:"is_global" yaml:"is_global"`
	Depth       int        `json:"depth" yaml:"depth"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	StartOffset int        `json:"start_offset" yaml:"start_offset"`
	SourceText  string     `json:"source_text" yaml:"source_text"`
	IndexedAt   time.Time  `json:"indexed_at" yaml:"indexed_at"`
}

// FunctionEventPublisher defines the outbound port for announcing indexed files.
type FunctionEventPublisher interface {
	PublishFunctionsIndexed(ctx context.Context, doc *dto.LuaDocument) error
}

// SourceLoader defines the outbound port for reading Lua sources by path.
type SourceLoader interface {
	Load(ctx context.Context, path string) ([]byte, error)
}

// FunctionTreeCache defines the outbound port for reusing scans of identical
// sources. Keys are source content hashes; cached trees are read-only.
type FunctionTreeCache interface {
	Get(ctx context.Context, hash string) (*entity.FunctionTree, bool)
	Put(ctx context.Context, hash string, tree *entity.FunctionTree)
}
