package dto

import (
	"errors"
	"strings"
	"time"

	"luascan/internal/domain/entity"
	"luascan/internal/domain/errors/domain"
	"luascan/internal/domain/valueobject"

	"github.com/google/uuid"
)

// LuaDocument is the report produced by scanning one Lua source.
type LuaDocument struct {
	ScanID          uuid.UUID        `json:"scan_id"          yaml:"scan_id"`
	FilePath        string           `json:"file_path"        yaml:"file_path"`
	SizeBytes       int              `json:"size_bytes"       yaml:"size_bytes"`
	ContentHash     string           `json:"content_hash"     yaml:"content_hash"`
	Functions       []FunctionNode   `json:"functions"        yaml:"functions"`
	GlobalFunctions []GlobalFunction `json:"global_functions" yaml:"global_functions"`
	Diagnostics     []Diagnostic     `json:"diagnostics"      yaml:"diagnostics"`
	Stats           DocumentStats    `json:"stats"            yaml:"stats"`
	ScannedAt       time.Time        `json:"scanned_at"       yaml:"scanned_at"`
}

// FunctionNode is one function of the nested tree.
type FunctionNode struct {
	Name        string               `json:"name"         yaml:"name"`
	Arguments   []string             `json:"arguments"    yaml:"arguments"`
	IsLocal     bool                 `json:"is_local"     yaml:"is_local"`
	IsGlobal    bool                 `json:"is_global"    yaml:"is_global"`
	Closed      bool                 `json:"closed"       yaml:"closed"`
	Depth       int                  `json:"depth"        yaml:"depth"`
	StartOffset int                  `json:"start_offset" yaml:"start_offset"`
	Start       valueobject.Position `json:"start"        yaml:"start"`
	SourceText  string               `json:"source_text"  yaml:"source_text"`
	Children    []FunctionNode       `json:"children"     yaml:"children"`
}

// GlobalFunction is one entry of the flat global function list.
type GlobalFunction struct {
	Name        string               `json:"name"         yaml:"name"`
	Arguments   []string             `json:"arguments"    yaml:"arguments"`
	IsLocal     bool                 `json:"is_local"     yaml:"is_local"`
	Depth       int                  `json:"depth"        yaml:"depth"`
	StartOffset int                  `json:"start_offset" yaml:"start_offset"`
	Start       valueobject.Position `json:"start"        yaml:"start"`
}

// Signature renders the function as name(arg1, arg2).
func (g GlobalFunction) Signature() string {
	return g.Name + "(" + strings.Join(g.Arguments, ", ") + ")"
}

// Diagnostic is a non-fatal problem found while scanning.
type Diagnostic struct {
	Kind    string               `json:"kind"    yaml:"kind"`
	Offset  int                  `json:"offset"  yaml:"offset"`
	Start   valueobject.Position `json:"start"   yaml:"start"`
	Message string               `json:"message" yaml:"message"`
}

// Diagnostic kinds.
const (
	DiagnosticUnterminatedFunction = "unterminated_function"
	DiagnosticSyntax               = "syntax"
)

// DocumentStats summarizes the tree.
type DocumentStats struct {
	TotalFunctions        int `json:"total_functions"        yaml:"total_functions"`
	RootFunctions         int `json:"root_functions"         yaml:"root_functions"`
	GlobalFunctions       int `json:"global_functions"       yaml:"global_functions"`
	UnterminatedFunctions int `json:"unterminated_functions" yaml:"unterminated_functions"`
	MaxDepth              int `json:"max_depth"              yaml:"max_depth"`
}

// DocumentInput carries everything a scan produced.
type DocumentInput struct {
	ScanID      uuid.UUID
	Source      valueobject.LuaSource
	Tree        *entity.FunctionTree
	Globals     []*entity.LuaFunction
	Diagnostics []*domain.SyntaxError
	IsGlobal    func(*entity.LuaFunction) bool
	ScannedAt   time.Time
}

// NewLuaDocument converts a scan result into its report form.
func NewLuaDocument(in DocumentInput) *LuaDocument {
	src := in.Source.Content()

	doc := &LuaDocument{
		ScanID:          in.ScanID,
		FilePath:        in.Source.Path(),
		SizeBytes:       in.Source.Size(),
		ContentHash:     in.Source.Hash(),
		Functions:       make([]FunctionNode, 0),
		GlobalFunctions: make([]GlobalFunction, 0, len(in.Globals)),
		Diagnostics:     make([]Diagnostic, 0, len(in.Diagnostics)),
		ScannedAt:       in.ScannedAt.UTC(),
	}

	if in.Tree != nil {
		for _, root := range in.Tree.Roots() {
			doc.Functions = append(doc.Functions, newFunctionNode(in.Tree, root, src, in.IsGlobal))
		}
		doc.Stats.TotalFunctions = in.Tree.Len()
		doc.Stats.RootFunctions = len(in.Tree.Roots())
		in.Tree.Walk(func(fn *entity.LuaFunction) bool {
			if fn.Depth() > doc.Stats.MaxDepth {
				doc.Stats.MaxDepth = fn.Depth()
			}
			if !fn.IsClosed() {
				doc.Stats.UnterminatedFunctions++
			}
			return true
		})
	}

	for _, fn := range in.Globals {
		doc.GlobalFunctions = append(doc.GlobalFunctions, GlobalFunction{
			Name:        fn.Name(),
			Arguments:   fn.ArgumentNames(),
			IsLocal:     fn.IsLocal(),
			Depth:       fn.Depth(),
			StartOffset: fn.StartOffset(),
			Start:       valueobject.PositionAt(src, fn.StartOffset()),
		})
	}
	doc.Stats.GlobalFunctions = len(doc.GlobalFunctions)

	for _, diag := range in.Diagnostics {
		kind := DiagnosticSyntax
		if errors.Is(diag, domain.ErrUnterminatedFunction) {
			kind = DiagnosticUnterminatedFunction
		}
		doc.Diagnostics = append(doc.Diagnostics, Diagnostic{
			Kind:    kind,
			Offset:  diag.Position,
			Start:   valueobject.PositionAt(src, diag.Position),
			Message: diag.Error(),
		})
	}

	return doc
}

func newFunctionNode(
	tree *entity.FunctionTree,
	fn *entity.LuaFunction,
	src string,
	isGlobal func(*entity.LuaFunction) bool,
) FunctionNode {
	node := FunctionNode{
		Name:        fn.Name(),
		Arguments:   fn.ArgumentNames(),
		IsLocal:     fn.IsLocal(),
		IsGlobal:    isGlobal != nil && isGlobal(fn),
		Closed:      fn.IsClosed(),
		Depth:       fn.Depth(),
		StartOffset: fn.StartOffset(),
		Start:       valueobject.PositionAt(src, fn.StartOffset()),
		SourceText:  fn.SourceText(),
		Children:    make([]FunctionNode, 0),
	}
	for _, child := range tree.Children(fn) {
		node.Children = append(node.Children, newFunctionNode(tree, child, src, isGlobal))
	}
	return node
}
