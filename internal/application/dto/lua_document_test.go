package dto

import (
	"encoding/json"
	"testing"
	"time"

	"luascan/internal/domain/entity"
	"luascan/internal/domain/errors/domain"
	"luascan/internal/domain/valueobject"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// buildTree mirrors the scan of:
//
//	local function a(x)
//	  function b() end
//	end
//	function c(
func buildTree() (*entity.FunctionTree, *entity.LuaFunction, *entity.LuaFunction, *entity.LuaFunction) {
	tree := entity.NewFunctionTree()
	a := tree.AddFunction("a", true, []entity.Argument{{Name: "x"}}, 0)
	b := tree.AddFunction("b", false, nil, 22)
	tree.SetParent(b, a)
	tree.Close(b, "function b() end")
	tree.SetChildren(a, []*entity.LuaFunction{b})
	tree.Close(a, "local function a(x)\n  function b() end\nend")
	c := tree.AddFunction("c", false, nil, 43)
	tree.SetRoots([]*entity.LuaFunction{a, c})
	return tree, a, b, c
}

const documentSource = "local function a(x)\n  function b() end\nend\nfunction c()"

func newTestDocument(t *testing.T) *LuaDocument {
	t.Helper()
	tree, a, b, c := buildTree()
	source, err := valueobject.NewLuaSource("init.lua", []byte(documentSource), 0)
	require.NoError(t, err)

	return NewLuaDocument(DocumentInput{
		ScanID:  uuid.MustParse("6f1c2b9e-4c1a-4c55-9d8e-0b7f1f6a2d10"),
		Source:  source,
		Tree:    tree,
		Globals: []*entity.LuaFunction{a, b, c},
		Diagnostics: []*domain.SyntaxError{
			domain.NewSyntaxError(43, "function c has no matching end", domain.ErrUnterminatedFunction),
		},
		IsGlobal:  func(fn *entity.LuaFunction) bool { return fn.IsRoot() || !fn.IsLocal() },
		ScannedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
}

func TestNewLuaDocument(t *testing.T) {
	doc := newTestDocument(t)

	assert.Equal(t, "init.lua", doc.FilePath)
	assert.Equal(t, len(documentSource), doc.SizeBytes)
	assert.Len(t, doc.ContentHash, 64)

	require.Len(t, doc.Functions, 2)
	a := doc.Functions[0]
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, []string{"x"}, a.Arguments)
	assert.True(t, a.IsLocal)
	assert.True(t, a.IsGlobal)
	assert.True(t, a.Closed)

	require.Len(t, a.Children, 1)
	b := a.Children[0]
	assert.Equal(t, 1, b.Depth)
	assert.Equal(t, valueobject.Position{Row: 1, Column: 2}, b.Start)
	assert.Equal(t, "function b() end", b.SourceText)
	assert.Empty(t, b.Children)

	c := doc.Functions[1]
	assert.False(t, c.Closed)
	assert.Empty(t, c.SourceText)
	assert.Equal(t, valueobject.Position{Row: 3, Column: 0}, c.Start)

	require.Len(t, doc.GlobalFunctions, 3)
	assert.Equal(t, "a(x)", doc.GlobalFunctions[0].Signature())
	assert.Equal(t, "b()", doc.GlobalFunctions[1].Signature())

	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, DiagnosticUnterminatedFunction, doc.Diagnostics[0].Kind)
	assert.Equal(t, "Syntax error at column 43, error: function c has no matching end", doc.Diagnostics[0].Message)

	assert.Equal(t, DocumentStats{
		TotalFunctions:        3,
		RootFunctions:         2,
		GlobalFunctions:       3,
		UnterminatedFunctions: 1,
		MaxDepth:              1,
	}, doc.Stats)
}

func TestNewLuaDocument_EmptyTree(t *testing.T) {
	source, err := valueobject.NewLuaSource("empty.lua", []byte{}, 0)
	require.NoError(t, err)

	doc := NewLuaDocument(DocumentInput{Source: source, Tree: entity.NewFunctionTree()})

	assert.NotNil(t, doc.Functions)
	assert.NotNil(t, doc.GlobalFunctions)
	assert.NotNil(t, doc.Diagnostics)
	assert.Equal(t, DocumentStats{}, doc.Stats)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"functions":[]`)
}

func TestLuaDocument_Encoding(t *testing.T) {
	doc := newTestDocument(t)

	jsonData, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"scan_id":"6f1c2b9e-4c1a-4c55-9d8e-0b7f1f6a2d10"`)
	assert.Contains(t, string(jsonData), `"start":{"row":1,"column":2}`)

	yamlData, err := yaml.Marshal(doc)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(yamlData, &decoded))
	assert.Equal(t, "init.lua", decoded["file_path"])
	globals, ok := decoded["global_functions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, globals, 3)
}
