package valueobject

import (
	"testing"

	"luascan/internal/domain/errors/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLuaSource(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		content  []byte
		maxBytes int
		wantErr  error
		wantSize int
	}{
		{
			name:     "valid source",
			path:     "init.lua",
			content:  []byte("function f() end"),
			maxBytes: 1024,
			wantSize: 16,
		},
		{
			name:     "empty source is valid",
			path:     "empty.lua",
			content:  []byte{},
			maxBytes: 1024,
			wantSize: 0,
		},
		{
			name:     "size limit disabled",
			path:     "big.lua",
			content:  []byte("function f() end"),
			maxBytes: 0,
			wantSize: 16,
		},
		{
			name:     "nil content rejected",
			path:     "nil.lua",
			content:  nil,
			maxBytes: 1024,
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "oversize content rejected",
			path:     "big.lua",
			content:  []byte("function f() end"),
			maxBytes: 4,
			wantErr:  domain.ErrSourceTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewLuaSource(tt.path, tt.content, tt.maxBytes)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.path, src.Path())
			assert.Equal(t, string(tt.content), src.Content())
			assert.Equal(t, tt.wantSize, src.Size())
			assert.Len(t, src.Hash(), 64)
		})
	}
}

func TestLuaSource_HashIsStable(t *testing.T) {
	a, err := NewLuaSource("a.lua", []byte("x = function() end"), 0)
	require.NoError(t, err)
	b, err := NewLuaSource("b.lua", []byte("x = function() end"), 0)
	require.NoError(t, err)

	assert.Equal(t, a.Hash(), b.Hash())
}
