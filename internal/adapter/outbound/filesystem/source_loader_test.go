package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"luascan/internal/domain/errors/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileSourceLoader_Load(t *testing.T) {
	dir := t.TempDir()
	small := writeFile(t, dir, "small.lua", "function f() end")
	large := writeFile(t, dir, "large.lua", strings.Repeat("-", 64))

	tests := []struct {
		name     string
		maxBytes int64
		path     string
		want     string
		wantErr  error
	}{
		{name: "reads file", maxBytes: 32, path: small, want: "function f() end"},
		{name: "limit disabled", maxBytes: 0, path: large, want: strings.Repeat("-", 64)},
		{name: "negative limit disables", maxBytes: -1, path: large, want: strings.Repeat("-", 64)},
		{name: "exact limit", maxBytes: 64, path: large, want: strings.Repeat("-", 64)},
		{name: "too large", maxBytes: 63, path: large, wantErr: domain.ErrSourceTooLarge},
		{name: "empty path", maxBytes: 0, path: "", wantErr: domain.ErrInvalidInput},
		{name: "directory", maxBytes: 0, path: dir, wantErr: domain.ErrInvalidInput},
		{name: "missing file", maxBytes: 0, path: filepath.Join(dir, "missing.lua"), wantErr: os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewFileSourceLoaderWithStdin(tt.maxBytes, nil)

			content, err := loader.Load(context.Background(), tt.path)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, content)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(content))
		})
	}
}

func TestFileSourceLoader_Stdin(t *testing.T) {
	t.Run("reads stdin", func(t *testing.T) {
		loader := NewFileSourceLoaderWithStdin(0, strings.NewReader("local function g() end"))

		content, err := loader.Load(context.Background(), StdinPath)
		require.NoError(t, err)
		assert.Equal(t, "local function g() end", string(content))
	})

	t.Run("stdin over limit", func(t *testing.T) {
		loader := NewFileSourceLoaderWithStdin(4, strings.NewReader("function g() end"))

		_, err := loader.Load(context.Background(), StdinPath)
		assert.ErrorIs(t, err, domain.ErrSourceTooLarge)
	})

	t.Run("no stdin", func(t *testing.T) {
		loader := NewFileSourceLoaderWithStdin(0, nil)

		_, err := loader.Load(context.Background(), StdinPath)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestFileSourceLoader_CancelledContext(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.lua", "function a() end")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileSourceLoader(0).Load(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}
