package ingest

import (
	"context"
	"fmt"
)

// bucketAndSplit groups documents by declared type and drives the
// type-specific splitter over each bucket. Documents with no type form
// their own bucket under the empty key. A splitter resolution or split
// failure propagates and fails the tenant; buckets are never dropped
// silently.
func (p *Pipeline) bucketAndSplit(ctx context.Context, documents []Document) ([]Chunk, error) {
	buckets := make(map[string][]Document)
	for _, doc := range documents {
		buckets[doc.Type] = append(buckets[doc.Type], doc)
	}

	var chunks []Chunk
	for mimetype, docs := range buckets {
		splitter, err := p.splitters.SplitterFor(mimetype)
		if err != nil {
			return nil, fmt.Errorf("resolving splitter for %q: %w", mimetype, err)
		}

		split, err := splitter.Split(docs)
		if err != nil {
			return nil, fmt.Errorf("splitting %q bucket: %w", mimetype, err)
		}

		p.logger.DebugContext(ctx, "bucket split", "type", mimetype, "documents", len(docs), "chunks", len(split))
		chunks = append(chunks, split...)
	}

	return chunks, nil
}
