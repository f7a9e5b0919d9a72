package ingest

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrDecoderRequired is returned when a decoder is not provided.
	ErrDecoderRequired = errors.New("decoder required")

	// ErrSplitterRegistryRequired is returned when a splitter registry is not provided.
	ErrSplitterRegistryRequired = errors.New("splitter registry required")

	// ErrStoreUnavailable indicates the tenant's store client could not be resolved.
	ErrStoreUnavailable = errors.New("store client unavailable")

	// ErrPartialWrite indicates the store returned fewer ids than chunks written.
	// The mismatch is surfaced as a tenant failure; no compensating delete is issued.
	ErrPartialWrite = errors.New("partial write: id count does not match chunk count")
)
