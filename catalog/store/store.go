// Package store is the SQLite-backed API record store behind the catalog
// engine. Full-text search runs through an FTS5 shadow index; vector
// similarity is computed in-process over embedding BLOBs, since the catalog
// is small enough for a linear scan.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hazyhaar/apimart/catalog"
)

const (
	// weight of each leg when fusing the two rankings
	vectorWeight  = 0.6
	lexicalWeight = 0.4
)

// Store implements catalog.Store over a SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New applies the schema and returns a Store.
func New(db *sql.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

const recordColumns = `id, title, description, tldr, website, doc_url, logo, embedding`

func scanRecord(row interface{ Scan(...any) error }) (*catalog.ApiRecord, error) {
	var r catalog.ApiRecord
	var blob []byte
	if err := row.Scan(&r.ID, &r.Title, &r.Description, &r.TLDR, &r.Website, &r.DocURL, &r.Logo, &blob); err != nil {
		return nil, err
	}
	if len(blob) > 0 {
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("store: record %s: %w", r.ID, err)
		}
		r.Embedding = vec
	}
	return &r, nil
}

// Upsert inserts or replaces a record by id.
func (s *Store) Upsert(ctx context.Context, r *catalog.ApiRecord) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO apis (id, title, description, tldr, website, doc_url, logo, embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			tldr = excluded.tldr,
			website = excluded.website,
			doc_url = excluded.doc_url,
			logo = excluded.logo,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at`,
		r.ID, r.Title, r.Description, r.TLDR, r.Website, r.DocURL, r.Logo,
		EncodeVector(r.Embedding), now, now)
	if err != nil {
		return fmt.Errorf("store: upsert %s: %w", r.ID, err)
	}
	return nil
}

// FindByID returns the record with the exact id, nil when absent.
func (s *Store) FindByID(ctx context.Context, id string) (*catalog.ApiRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM apis WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find %s: %w", id, err)
	}
	return r, nil
}

// FindByIDOrPrefix returns the exact record plus any sub-scoped records.
func (s *Store) FindByIDOrPrefix(ctx context.Context, id string) ([]*catalog.ApiRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM apis WHERE id = ? OR id LIKE ? ORDER BY id`,
		id, id+":%")
	if err != nil {
		return nil, fmt.Errorf("store: find prefix %s: %w", id, err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

var substringFields = map[string]bool{
	"id": true, "title": true, "description": true, "tldr": true,
}

// FilterBySubstring matches any term against any of the named fields,
// case-insensitively.
func (s *Store) FilterBySubstring(ctx context.Context, fields, terms []string, limit int) ([]*catalog.ApiRecord, error) {
	if len(fields) == 0 || len(terms) == 0 {
		return nil, nil
	}
	var clauses []string
	var args []any
	for _, f := range fields {
		if !substringFields[f] {
			return nil, fmt.Errorf("store: unknown filter field %q", f)
		}
		for _, term := range terms {
			clauses = append(clauses, fmt.Sprintf("lower(%s) LIKE ?", f))
			args = append(args, "%"+strings.ToLower(term)+"%")
		}
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM apis WHERE `+strings.Join(clauses, " OR ")+
			` ORDER BY id LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: substring filter: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// RangePage returns one page of records in id order plus the total count.
func (s *Store) RangePage(ctx context.Context, offset, limit int) ([]*catalog.ApiRecord, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM apis`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM apis ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: page: %w", err)
	}
	defer rows.Close()
	records, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// HybridRank fuses FTS5 ranking with cosine similarity over the stored
// embeddings. Rows are scored in [0,1] and returned best-first, at most
// matchCount of them. A nil queryEmbedding ranks on the lexical leg alone.
func (s *Store) HybridRank(ctx context.Context, queryText string, queryEmbedding []float32, matchCount int) ([]*catalog.RankedRecord, error) {
	if matchCount <= 0 {
		matchCount = 100
	}

	fused := make(map[string]*catalog.RankedRecord)

	lex, err := s.lexicalLeg(ctx, queryText, matchCount)
	if err != nil {
		return nil, err
	}
	for id, leg := range lex {
		fused[id] = &catalog.RankedRecord{ApiRecord: *leg.record, Score: lexicalWeight * leg.score}
	}

	if len(queryEmbedding) > 0 {
		vec, err := s.vectorLeg(ctx, queryEmbedding, matchCount)
		if err != nil {
			return nil, err
		}
		for id, leg := range vec {
			if row, ok := fused[id]; ok {
				row.Score += vectorWeight * leg.score
			} else {
				fused[id] = &catalog.RankedRecord{ApiRecord: *leg.record, Score: vectorWeight * leg.score}
			}
		}
	}

	out := make([]*catalog.RankedRecord, 0, len(fused))
	for _, row := range fused {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > matchCount {
		out = out[:matchCount]
	}
	return out, nil
}

type legHit struct {
	record *catalog.ApiRecord
	score  float64
}

func (s *Store) lexicalLeg(ctx context.Context, queryText string, limit int) (map[string]legHit, error) {
	match := ftsMatchExpr(queryText)
	if match == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+qualifiedColumns("a")+`, f.rank
		FROM apis_fts f
		JOIN apis a ON a.rowid = f.rowid
		WHERE apis_fts MATCH ?
		ORDER BY f.rank
		LIMIT ?`, match, limit)
	if err != nil {
		// An FTS syntax error on odd input degrades to the other leg.
		s.logger.DebugContext(ctx, "fts match failed", "query", queryText, "error", err)
		return nil, nil
	}
	defer rows.Close()

	hits := make(map[string]legHit)
	for rows.Next() {
		var r catalog.ApiRecord
		var blob []byte
		var rank float64
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.TLDR, &r.Website, &r.DocURL, &r.Logo, &blob, &rank); err != nil {
			return nil, fmt.Errorf("store: scan fts row: %w", err)
		}
		// FTS5 rank is bm25 negated: more negative means better. Map it onto
		// (0,1) monotonically.
		bm := -rank
		if bm < 0 {
			bm = 0
		}
		rec := r
		hits[r.ID] = legHit{record: &rec, score: bm / (bm + 1)}
	}
	return hits, rows.Err()
}

func (s *Store) vectorLeg(ctx context.Context, query []float32, limit int) (map[string]legHit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM apis WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("store: vector scan: %w", err)
	}
	defer rows.Close()

	var scored []legHit
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan vector row: %w", err)
		}
		sim := Cosine(query, r.Embedding)
		if sim <= 0 {
			continue
		}
		scored = append(scored, legHit{record: r, score: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	hits := make(map[string]legHit, len(scored))
	for _, h := range scored {
		hits[h.record.ID] = h
	}
	return hits, nil
}

// Stats reports table sizes for the admin surface.
func (s *Store) Stats(ctx context.Context) (apiCount, searchLogCount int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM apis`).Scan(&apiCount); err != nil {
		return 0, 0, fmt.Errorf("store: stats: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_log`).Scan(&searchLogCount); err != nil {
		return 0, 0, fmt.Errorf("store: stats: %w", err)
	}
	return apiCount, searchLogCount, nil
}

// InsertSearchLog records one resolved search.
func (s *Store) InsertSearchLog(ctx context.Context, query, source string, resultCount int, transport string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_log (query, source, result_count, transport, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		query, source, resultCount, transport, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: insert search log: %w", err)
	}
	return nil
}

func collectRecords(rows *sql.Rows) ([]*catalog.ApiRecord, error) {
	var out []*catalog.ApiRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ftsMatchExpr quotes each query token so user input cannot carry FTS5
// operators, OR-joining the tokens.
func ftsMatchExpr(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, `""`)
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func qualifiedColumns(alias string) string {
	cols := strings.Split(recordColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}
