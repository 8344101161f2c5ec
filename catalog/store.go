package catalog

import "context"

// Store is the record-store collaborator contract the search engine requires.
// The SQLite implementation lives in catalog/store; tests substitute counting
// fakes.
type Store interface {
	// FindByID returns the record with the exact id, or nil when absent.
	FindByID(ctx context.Context, id string) (*ApiRecord, error)

	// FindByIDOrPrefix returns the record with the exact id plus any records
	// scoped under it (id + ":" prefix).
	FindByIDOrPrefix(ctx context.Context, id string) ([]*ApiRecord, error)

	// FilterBySubstring returns records where any term matches any of the
	// named fields as a substring, up to limit rows in stable id order.
	FilterBySubstring(ctx context.Context, fields, terms []string, limit int) ([]*ApiRecord, error)

	// RangePage returns one page of records in stable id order plus the
	// total record count.
	RangePage(ctx context.Context, offset, limit int) ([]*ApiRecord, int, error)

	// HybridRank runs the server-side hybrid ranking procedure: lexical
	// match fused with vector similarity against queryEmbedding, returning
	// up to matchCount rows ordered by descending score.
	HybridRank(ctx context.Context, queryText string, queryEmbedding []float32, matchCount int) ([]*RankedRecord, error)
}
