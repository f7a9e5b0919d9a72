package ingest

import (
	"context"
	"strconv"
)

// Source is one raw upload item. Metadata arrives as header-style string
// fields alongside the raw bytes; nothing is inferred from the content.
type Source struct {
	Tenant   string
	Filename string
	Title    string
	Type     string
	Modified string
	Provider string
	Content  []byte
}

// Document is a decoded Source. Source is the dedup key within a tenant;
// an empty Source means the document cannot be deduplicated.
type Document struct {
	Source   string
	Title    string
	Type     string
	Modified int64
	Provider string
	Content  string
}

// Chunk is a split fragment of a Document, carrying the parent's metadata.
type Chunk struct {
	Content  string
	Source   string
	Title    string
	Type     string
	Modified int64
	Provider string
}

// Record is an entry already committed to the store for a source path.
type Record struct {
	ID       string
	Modified int64
}

// Decoder turns a Source into text. An empty result means the source is
// skipped, not that the batch failed.
type Decoder interface {
	Decode(src Source) (string, error)
}

// Splitter converts documents of one declared type into chunks.
type Splitter interface {
	Split(docs []Document) ([]Chunk, error)
}

// SplitterRegistry resolves a type-specific Splitter.
type SplitterRegistry interface {
	SplitterFor(mimetype string) (Splitter, error)
}

// Client is a store handle already scoped to one tenant.
type Client interface {
	// Add writes all chunks and returns one id per successfully written chunk.
	Add(ctx context.Context, chunks []Chunk) ([]string, error)
}

// Store is the tenant-scoped vector store consumed by the pipeline.
type Store interface {
	// GetClient returns nil when the tenant's store scope is unusable.
	GetClient(tenant string) Client
	GetRecordsBySource(ctx context.Context, tenant, keyField string, sources []string) (map[string]Record, error)
	DeleteByIDs(ctx context.Context, tenant string, ids []string) error
}

// coerceEpoch parses a header-style modification timestamp. Missing,
// unparseable or negative values coerce to 0, which sorts strictly older
// than any real timestamp.
func coerceEpoch(value string) int64 {
	if value == "" {
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
