package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"luascan/internal/application/common/slogger"
	"luascan/internal/application/dto"
	"luascan/internal/port/outbound"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createFunctionsTableQuery = `
CREATE TABLE IF NOT EXISTS lua_functions (
	id           UUID PRIMARY KEY,
	scan_id      UUID        NOT NULL,
	file_path    TEXT        NOT NULL,
	content_hash TEXT        NOT NULL,
	name         TEXT        NOT NULL,
	arguments    TEXT[]      NOT NULL DEFAULT '{}',
	is_local     BOOLEAN     NOT NULL,
	is_global    BOOLEAN     NOT NULL,
	depth        INTEGER     NOT NULL CHECK (depth >= 0),
	parent_id    UUID        REFERENCES lua_functions (id) ON DELETE CASCADE,
	start_offset INTEGER     NOT NULL CHECK (start_offset >= 0),
	source_text  TEXT        NOT NULL,
	indexed_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS lua_functions_global_name_idx ON lua_functions (name) WHERE is_global;
CREATE INDEX IF NOT EXISTS lua_functions_file_path_idx ON lua_functions (file_path)`

const deleteFunctionsForFileQuery = `DELETE FROM lua_functions WHERE file_path = $1`

const insertFunctionQuery = `
INSERT INTO lua_functions (
	id, scan_id, file_path, content_hash, name, arguments, is_local, is_global,
	depth, parent_id, start_offset, source_text, indexed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const selectGlobalFunctionsByNameQuery = `
SELECT id, scan_id, file_path, name, arguments, is_local, is_global,
	depth, parent_id, start_offset, source_text, indexed_at
FROM lua_functions
WHERE name = $1 AND is_global
ORDER BY file_path, start_offset`

// PostgreSQLFunctionRepository stores scanned functions in PostgreSQL.
type PostgreSQLFunctionRepository struct {
	pool *pgxpool.Pool
	tm   *TransactionManager
}

var _ outbound.FunctionIndexRepository = (*PostgreSQLFunctionRepository)(nil)

// NewPostgreSQLFunctionRepository creates a new function repository.
func NewPostgreSQLFunctionRepository(pool *pgxpool.Pool) *PostgreSQLFunctionRepository {
	return &PostgreSQLFunctionRepository{
		pool: pool,
		tm:   NewTransactionManager(pool),
	}
}

// EnsureSchema creates schema, then the functions table and its indexes, when
// missing. The table is created in the first schema of the search path, which
// the connection sets to DatabaseConfig.Schema.
func (r *PostgreSQLFunctionRepository) EnsureSchema(ctx context.Context, schema string) error {
	if !isIdentifier(schema) {
		return fmt.Errorf("schema %q is not a valid identifier", schema)
	}
	if _, err := r.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{schema}.Sanitize()); err != nil {
		return WrapError(err, "ensure schema")
	}
	if _, err := r.pool.Exec(ctx, createFunctionsTableQuery); err != nil {
		return WrapError(err, "ensure schema")
	}
	return nil
}

// functionRow is one lua_functions row.
type functionRow struct {
	ID          uuid.UUID
	ParentID    *uuid.UUID
	Name        string
	Arguments   []string
	IsLocal     bool
	IsGlobal    bool
	Depth       int
	StartOffset int
	SourceText  string
}

// flattenDocument lists the rows of a document in pre-order, so every parent
// row precedes its children.
func flattenDocument(doc *dto.LuaDocument) []functionRow {
	rows := make([]functionRow, 0, doc.Stats.TotalFunctions)

	var visit func(node dto.FunctionNode, parent *uuid.UUID)
	visit = func(node dto.FunctionNode, parent *uuid.UUID) {
		id := uuid.New()
		args := node.Arguments
		if args == nil {
			args = []string{}
		}
		rows = append(rows, functionRow{
			ID:          id,
			ParentID:    parent,
			Name:        node.Name,
			Arguments:   args,
			IsLocal:     node.IsLocal,
			IsGlobal:    node.IsGlobal,
			Depth:       node.Depth,
			StartOffset: node.StartOffset,
			SourceText:  node.SourceText,
		})
		for _, child := range node.Children {
			visit(child, &id)
		}
	}

	for _, root := range doc.Functions {
		visit(root, nil)
	}
	return rows
}

// SaveDocument replaces the stored functions of doc.FilePath with the
// functions of doc, in a single transaction.
func (r *PostgreSQLFunctionRepository) SaveDocument(ctx context.Context, doc *dto.LuaDocument) error {
	if doc == nil {
		return errors.New("document is nil")
	}

	rows := flattenDocument(doc)
	indexedAt := time.Now().UTC()

	err := r.tm.WithTransaction(ctx, func(txCtx context.Context) error {
		q := GetQueryInterface(txCtx, r.pool)

		if _, err := q.Exec(txCtx, deleteFunctionsForFileQuery, doc.FilePath); err != nil {
			return fmt.Errorf("failed to delete previous functions: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, row := range rows {
			batch.Queue(insertFunctionQuery,
				row.ID,
				doc.ScanID,
				doc.FilePath,
				doc.ContentHash,
				row.Name,
				row.Arguments,
				row.IsLocal,
				row.IsGlobal,
				row.Depth,
				row.ParentID,
				row.StartOffset,
				row.SourceText,
				indexedAt,
			)
		}

		results := q.SendBatch(txCtx, batch)
		for i := range rows {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to insert function %s: %w", rows[i].Name, err)
			}
		}
		return results.Close()
	})
	if err != nil {
		slogger.Error(ctx, "Failed to save functions", slogger.Fields{
			"file_path": doc.FilePath,
			"error":     err.Error(),
		})
		return WrapError(err, "save document")
	}

	slogger.Info(ctx, "Functions saved successfully", slogger.Fields2(
		"file_path", doc.FilePath,
		"function_count", len(rows),
	))
	return nil
}

// FindGlobalFunctionsByName returns every stored global function called name.
func (r *PostgreSQLFunctionRepository) FindGlobalFunctionsByName(
	ctx context.Context,
	name string,
) ([]outbound.IndexedFunction, error) {
	rows, err := GetQueryInterface(ctx, r.pool).Query(ctx, selectGlobalFunctionsByNameQuery, name)
	if err != nil {
		return nil, WrapError(err, "find global functions")
	}
	defer rows.Close()

	functions := make([]outbound.IndexedFunction, 0)
	for rows.Next() {
		var fn outbound.IndexedFunction
		if err := rows.Scan(
			&fn.ID,
			&fn.ScanID,
			&fn.FilePath,
			&fn.Name,
			&fn.Arguments,
			&fn.IsLocal,
			&fn.IsGlobal,
			&fn.Depth,
			&fn.ParentID,
			&fn.StartOffset,
			&fn.SourceText,
			&fn.IndexedAt,
		); err != nil {
			return nil, WrapError(err, "scan global function")
		}
		functions = append(functions, fn)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(err, "iterate global functions")
	}

	return functions, nil
}
