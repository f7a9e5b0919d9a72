// Package splitter resolves type-specific text splitters for the ingestion
// pipeline, backed by langchaingo's textsplitter implementations.
package splitter

import (
	"errors"
	"fmt"
	"strings"

	"corpora/backend/internal/ingest"

	"github.com/tmc/langchaingo/textsplitter"
)

// ErrNoSplitter indicates no splitter is registered for a declared type.
var ErrNoSplitter = errors.New("no splitter for mimetype")

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
)

// Registry maps declared content types to splitters.
type Registry struct {
	chunkSize    int
	chunkOverlap int
}

// Option configures a Registry.
type Option func(*Registry)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(r *Registry) {
		if size > 0 {
			r.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between adjacent chunks.
func WithChunkOverlap(overlap int) Option {
	return func(r *Registry) {
		if overlap >= 0 {
			r.chunkOverlap = overlap
		}
	}
}

// NewRegistry creates a splitter registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SplitterFor resolves the splitter for a declared type. Markdown gets the
// structure-aware markdown splitter; other textual types get the recursive
// character splitter. Unknown binary types have no splitter and the caller
// decides what that failure means for the bucket.
func (r *Registry) SplitterFor(mimetype string) (ingest.Splitter, error) {
	switch {
	case mimetype == "text/markdown":
		return &adapter{inner: textsplitter.NewMarkdownTextSplitter(
			textsplitter.WithChunkSize(r.chunkSize),
			textsplitter.WithChunkOverlap(r.chunkOverlap),
		)}, nil
	case mimetype == "" || strings.HasPrefix(mimetype, "text/") || textualApplication(mimetype):
		return &adapter{inner: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(r.chunkSize),
			textsplitter.WithChunkOverlap(r.chunkOverlap),
		)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrNoSplitter, mimetype)
	}
}

func textualApplication(mimetype string) bool {
	switch mimetype {
	case "application/json", "application/xml", "application/yaml", "message/rfc822":
		return true
	}
	return false
}

// adapter drives a langchaingo splitter over whole documents, stamping each
// produced chunk with its parent document's metadata.
type adapter struct {
	inner textsplitter.TextSplitter
}

func (a *adapter) Split(docs []ingest.Document) ([]ingest.Chunk, error) {
	var chunks []ingest.Chunk
	for _, doc := range docs {
		parts, err := a.inner.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("splitting %q: %w", doc.Source, err)
		}
		for _, part := range parts {
			chunks = append(chunks, ingest.Chunk{
				Content:  part,
				Source:   doc.Source,
				Title:    doc.Title,
				Type:     doc.Type,
				Modified: doc.Modified,
				Provider: doc.Provider,
			})
		}
	}
	return chunks, nil
}
