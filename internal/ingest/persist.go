package ingest

import (
	"context"
	"fmt"
)

// persist commits a tenant's chunks to the store in one call. The write
// succeeds only when the store returns exactly one id per chunk; a count
// mismatch is reported but not rolled back, and the store gives no
// per-chunk attribution of what failed.
func (p *Pipeline) persist(ctx context.Context, tenant string, chunks []Chunk) error {
	client := p.store.GetClient(tenant)
	if client == nil {
		return ErrStoreUnavailable
	}

	ids, err := client.Add(ctx, chunks)
	if err != nil {
		return fmt.Errorf("adding chunks: %w", err)
	}

	if len(ids) != len(chunks) {
		return fmt.Errorf("%w: wrote %d of %d", ErrPartialWrite, len(ids), len(chunks))
	}

	return nil
}
