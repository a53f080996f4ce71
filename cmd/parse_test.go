package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"luascan/internal/application/dto"
	"luascan/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeLuaFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseCommand_JSON(t *testing.T) {
	useTestConfig(t, nil)
	path := writeLuaFile(t, "a.lua", "function a(x) local function b() end end")

	output, err := executeCommand(t, newParseCmd(), "parse", "--file", path)
	require.NoError(t, err)

	var doc dto.LuaDocument
	require.NoError(t, json.Unmarshal([]byte(output), &doc))
	assert.Equal(t, path, doc.FilePath)
	require.Len(t, doc.Functions, 1)
	assert.Equal(t, "a", doc.Functions[0].Name)
	assert.Equal(t, []string{"x"}, doc.Functions[0].Arguments)
	require.Len(t, doc.Functions[0].Children, 1)
	assert.Equal(t, "b", doc.Functions[0].Children[0].Name)
	assert.True(t, doc.Functions[0].Children[0].IsLocal)
	require.Len(t, doc.GlobalFunctions, 1)
	assert.Equal(t, "a", doc.GlobalFunctions[0].Name)
	assert.Equal(t, 2, doc.Stats.TotalFunctions)
}

func TestParseCommand_MultipleFilesKeepOrder(t *testing.T) {
	useTestConfig(t, nil)
	first := writeLuaFile(t, "first.lua", "function first() end")
	second := writeLuaFile(t, "second.lua", "function second() end")

	output, err := executeCommand(t, newParseCmd(), "parse", first, second)
	require.NoError(t, err)

	var docs []dto.LuaDocument
	require.NoError(t, json.Unmarshal([]byte(output), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, first, docs[0].FilePath)
	assert.Equal(t, second, docs[1].FilePath)
}

func TestParseCommand_YAMLFromConfig(t *testing.T) {
	useTestConfig(t, func(c *config.Config) { c.Output.Format = "yaml" })
	path := writeLuaFile(t, "a.lua", "f = function(a, b) end")

	output, err := executeCommand(t, newParseCmd(), "parse", path)
	require.NoError(t, err)

	var doc dto.LuaDocument
	require.NoError(t, yaml.Unmarshal([]byte(output), &doc))
	require.Len(t, doc.GlobalFunctions, 1)
	assert.Equal(t, "f", doc.GlobalFunctions[0].Name)
	assert.Equal(t, []string{"a", "b"}, doc.GlobalFunctions[0].Arguments)
}

func TestParseCommand_Text(t *testing.T) {
	useTestConfig(t, nil)
	path := writeLuaFile(t, "a.lua", "function a(x) local function b() end end\nfunction c()")

	output, err := executeCommand(t, newParseCmd(), "parse", "--format", "text", path)
	require.NoError(t, err)

	assert.Contains(t, output, path+": 3 functions")
	assert.Contains(t, output, "  a(x) 1:1\n")
	assert.Contains(t, output, "    local b() 1:15\n")
	assert.Contains(t, output, "  c() 2:1 unterminated\n")
	assert.Contains(t, output, "  ! 2:1 ")
}

func TestParseCommand_Stdin(t *testing.T) {
	useTestConfig(t, nil)

	root := newRootCmd()
	root.AddCommand(newParseCmd())
	var out strings.Builder
	root.SetOut(&out)
	root.SetIn(strings.NewReader("local function hidden() end"))
	root.SetArgs([]string{"parse", "-"})

	require.NoError(t, root.Execute())

	var doc dto.LuaDocument
	require.NoError(t, json.Unmarshal([]byte(out.String()), &doc))
	assert.Equal(t, "-", doc.FilePath)
	require.Len(t, doc.Functions, 1)
	assert.Equal(t, "hidden", doc.Functions[0].Name)
}

func TestParseCommand_OutFile(t *testing.T) {
	useTestConfig(t, nil)
	path := writeLuaFile(t, "a.lua", "function a() end")
	outPath := filepath.Join(t.TempDir(), "report.json")

	output, err := executeCommand(t, newParseCmd(), "parse", "--out", outPath, path)
	require.NoError(t, err)
	assert.Empty(t, output)

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var doc dto.LuaDocument
	require.NoError(t, json.Unmarshal(content, &doc))
	assert.Equal(t, path, doc.FilePath)
}

func TestParseCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		args    func(t *testing.T) []string
		wantErr string
	}{
		{
			name:    "no input",
			args:    func(*testing.T) []string { return []string{"parse"} },
			wantErr: "no input files",
		},
		{
			name: "unsupported format",
			args: func(t *testing.T) []string {
				return []string{"parse", "--format", "xml", writeLuaFile(t, "a.lua", "")}
			},
			wantErr: "unsupported output format",
		},
		{
			name: "missing file",
			args: func(t *testing.T) []string {
				return []string{"parse", filepath.Join(t.TempDir(), "missing.lua")}
			},
			wantErr: "missing.lua",
		},
		{
			name:   "source too large",
			mutate: func(c *config.Config) { c.Scanner.MaxSourceBytes = 4 },
			args: func(t *testing.T) []string {
				return []string{"parse", writeLuaFile(t, "big.lua", "function big() end")}
			},
			wantErr: "exceeds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useTestConfig(t, tt.mutate)

			_, err := executeCommand(t, newParseCmd(), tt.args(t)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCommand_WithMetrics(t *testing.T) {
	useTestConfig(t, func(c *config.Config) { c.Metrics.Enabled = true })
	path := writeLuaFile(t, "a.lua", "function a() end")

	_, err := executeCommand(t, newParseCmd(), "parse", path)
	require.NoError(t, err)
}
