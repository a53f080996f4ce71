package valueobject

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"luascan/internal/domain/errors/domain"
)

// LuaSource is raw Lua text together with the path it was loaded from.
type LuaSource struct {
	path    string
	content string
}

// NewLuaSource validates and wraps Lua source bytes. A nil content slice is
// rejected; an empty one is a valid, empty source. maxBytes <= 0 disables the
// size check.
func NewLuaSource(path string, content []byte, maxBytes int) (LuaSource, error) {
	if content == nil {
		return LuaSource{}, fmt.Errorf("lua source %q: content is nil: %w", path, domain.ErrInvalidInput)
	}
	if maxBytes > 0 && len(content) > maxBytes {
		return LuaSource{}, fmt.Errorf("lua source %q is %d bytes, limit %d: %w",
			path, len(content), maxBytes, domain.ErrSourceTooLarge)
	}

	return LuaSource{
		path:    strings.TrimSpace(path),
		content: string(content),
	}, nil
}

// Path returns the path the source was loaded from, if any.
func (s LuaSource) Path() string {
	return s.path
}

// Content returns the raw source text.
func (s LuaSource) Content() string {
	return s.content
}

// Size returns the source length in bytes.
func (s LuaSource) Size() int {
	return len(s.content)
}

// Hash returns the hex SHA-256 of the content.
func (s LuaSource) Hash() string {
	sum := sha256.Sum256([]byte(s.content))
	return hex.EncodeToString(sum[:])
}
