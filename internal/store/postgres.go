package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on top of a single JSONB documents table.
//
// Filters are translated to jsonb containment (@>) so they use the GIN
// index created by Migrate. Insertion order is preserved through a
// monotonically increasing seq column.
type Postgres struct {
	pool          *pgxpool.Pool
	maxWriteBytes int
}

// NewPostgres creates a Postgres-backed store. maxWriteBytes <= 0 selects
// DefaultMaxWriteBytes.
func NewPostgres(pool *pgxpool.Pool, maxWriteBytes int) *Postgres {
	if maxWriteBytes <= 0 {
		maxWriteBytes = DefaultMaxWriteBytes
	}
	return &Postgres{pool: pool, maxWriteBytes: maxWriteBytes}
}

// Migrate creates the backing tables and indexes if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			collection text NOT NULL,
			id text NOT NULL,
			doc jsonb NOT NULL,
			seq bigint GENERATED ALWAYS AS IDENTITY,
			PRIMARY KEY (collection, id)
		)`,
		`CREATE INDEX IF NOT EXISTS documents_doc_idx
			ON documents USING gin (doc jsonb_path_ops)`,
		`CREATE TABLE IF NOT EXISTS sequences (
			name text PRIMARY KEY,
			value bigint NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Doc, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	var doc Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (p *Postgres) Put(ctx context.Context, collection, id string, doc Doc) error {
	raw, err := p.encode(doc)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET doc = EXCLUDED.doc`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *Postgres) Find(ctx context.Context, collection string, filter Filter) ([]Doc, error) {
	query := `SELECT doc FROM documents WHERE collection = $1 ORDER BY seq`
	args := []any{collection}

	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("encode filter: %w", err)
		}
		query = `SELECT doc FROM documents WHERE collection = $1 AND doc @> $2 ORDER BY seq`
		args = append(args, filterJSON)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		var doc Doc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return docs, nil
}

func (p *Postgres) InsertMany(ctx context.Context, collection string, docs []Doc) error {
	if len(docs) == 0 {
		return nil
	}

	// Encode everything up front so the ceiling check covers the whole
	// write unit before any row is written.
	ids := make([]string, len(docs))
	raws := make([][]byte, len(docs))
	total := 0
	for i, doc := range docs {
		id, err := DocID(doc)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", collection, id, err)
		}
		ids[i] = id
		raws[i] = raw
		total += len(raw)
	}
	if total > p.maxWriteBytes {
		return fmt.Errorf("%w: %d bytes > %d", ErrWriteTooLarge, total, p.maxWriteBytes)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("insert %s: begin: %w", collection, err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range docs {
		batch.Queue(
			`INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)`,
			collection, ids[i], raws[i],
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert %s: %w", collection, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("insert %s: commit: %w", collection, err)
	}
	return nil
}

func (p *Postgres) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	query := `DELETE FROM documents WHERE collection = $1`
	args := []any{collection}

	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return 0, fmt.Errorf("encode filter: %w", err)
		}
		query += ` AND doc @> $2`
		args = append(args, filterJSON)
	}

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete many %s: %w", collection, err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) NextSeq(ctx context.Context, name string, start int64) (int64, error) {
	var value int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO sequences (name, value) VALUES ($1, $2 + 1)
		 ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		 RETURNING value`,
		name, start,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("next seq %s: %w", name, err)
	}
	return value, nil
}

// encode marshals a document and enforces the write-unit size ceiling.
func (p *Postgres) encode(doc Doc) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if len(raw) > p.maxWriteBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d", ErrWriteTooLarge, len(raw), p.maxWriteBytes)
	}
	return raw, nil
}
