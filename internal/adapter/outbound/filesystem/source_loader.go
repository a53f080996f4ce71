// Package filesystem loads Lua sources from local files.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"

	"luascan/internal/application/common/slogger"
	"luascan/internal/domain/errors/domain"
	"luascan/internal/port/outbound"
)

// StdinPath selects standard input instead of a file.
const StdinPath = "-"

// FileSourceLoader reads whole files, refusing those over a size limit before
// any content is read.
type FileSourceLoader struct {
	maxBytes int64 // 0 disables the limit
	stdin    io.Reader
}

var _ outbound.SourceLoader = (*FileSourceLoader)(nil)

// NewFileSourceLoader creates a loader. maxBytes <= 0 disables the limit.
func NewFileSourceLoader(maxBytes int64) *FileSourceLoader {
	return NewFileSourceLoaderWithStdin(maxBytes, os.Stdin)
}

// NewFileSourceLoaderWithStdin creates a loader that reads StdinPath from stdin.
func NewFileSourceLoaderWithStdin(maxBytes int64, stdin io.Reader) *FileSourceLoader {
	if maxBytes < 0 {
		maxBytes = 0
	}
	return &FileSourceLoader{maxBytes: maxBytes, stdin: stdin}
}

// Load returns the content of path.
func (l *FileSourceLoader) Load(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}
	if path == StdinPath {
		return l.readLimited(l.stdin, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		slogger.Error(ctx, "Failed to stat source file", slogger.Fields2("file_path", path, "error", err.Error()))
		return nil, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: path %s is not a regular file", domain.ErrInvalidInput, path)
	}
	if l.maxBytes > 0 && info.Size() > l.maxBytes {
		slogger.Warn(ctx, "Source file exceeds size limit", slogger.Fields{
			"file_path": path,
			"size":      info.Size(),
			"max_bytes": l.maxBytes,
		})
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", domain.ErrSourceTooLarge, path, info.Size(), l.maxBytes)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	return l.readLimited(file, path)
}

// readLimited reads r, failing once more than maxBytes arrive. Files can grow
// between the stat and the read, and stdin has no size at all.
func (l *FileSourceLoader) readLimited(r io.Reader, path string) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no reader for %s", domain.ErrInvalidInput, path)
	}
	if l.maxBytes > 0 {
		r = io.LimitReader(r, l.maxBytes+1)
	}

	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if l.maxBytes > 0 && int64(len(content)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrSourceTooLarge, path, l.maxBytes)
	}
	return content, nil
}
