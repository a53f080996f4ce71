package cmd

import (
	"bytes"
	"testing"

	"luascan/internal/port/outbound"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputOptions_ResolveFormat(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		fallback string
		want     string
		wantErr  bool
	}{
		{name: "flag wins", flag: "yaml", fallback: "json", want: "yaml"},
		{name: "fallback", fallback: "text", want: "text"},
		{name: "case insensitive", flag: "JSON", want: "json"},
		{name: "unknown", flag: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := outputOptions{format: tt.flag}

			got, err := opts.resolveFormat(tt.fallback)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOutputOptions_Paths(t *testing.T) {
	opts := outputOptions{files: []string{"a.lua"}}

	paths, err := opts.paths([]string{"b.lua"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.lua", "b.lua"}, paths)

	_, err = (&outputOptions{}).paths(nil)
	assert.Error(t, err)
}

func TestWriteIndexedText(t *testing.T) {
	var buf bytes.Buffer
	err := writeIndexedText(&buf, []outbound.IndexedFunction{
		{FilePath: "a.lua", StartOffset: 0, Name: "setup", Arguments: []string{"opts"}},
		{FilePath: "b.lua", StartOffset: 42, Name: "setup"},
	})
	require.NoError(t, err)

	assert.Equal(t, "a.lua:0 setup(opts)\nb.lua:42 setup()\n", buf.String())
}

func TestWriteStructured_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, writeStructured(&buf, formatText, struct{}{}))
}
