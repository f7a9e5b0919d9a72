package ingest

import (
	"context"
	"fmt"
)

// sourceKeyField is the metadata field records are queried and deduplicated by.
const sourceKeyField = "source"

// reconcile decides which of a tenant's documents are new or changed
// relative to the records already in the store, deletes the superseded
// records, and returns the survivors.
//
// A stored record is superseded only when the incoming modified timestamp is
// strictly greater; equal or lesser timestamps leave the record untouched
// and drop the incoming document. Documents without a source path cannot be
// deduplicated and always survive.
//
// A store query or delete failure fails the whole tenant: partial-batch
// delete semantics of the store are not guessed at.
func (p *Pipeline) reconcile(ctx context.Context, tenant string, documents []Document) ([]Document, error) {
	inputSources := make(map[string]int64)
	for _, doc := range documents {
		if doc.Source == "" {
			continue
		}
		inputSources[doc.Source] = doc.Modified
	}

	keys := make([]string, 0, len(inputSources))
	for source := range inputSources {
		keys = append(keys, source)
	}

	existing, err := p.store.GetRecordsBySource(ctx, tenant, sourceKeyField, keys)
	if err != nil {
		return nil, fmt.Errorf("querying existing records: %w", err)
	}

	toDelete := make(map[string]string)
	for source, record := range existing {
		if inputSources[source] > record.Modified {
			toDelete[source] = record.ID
		}
	}

	if len(toDelete) > 0 {
		ids := make([]string, 0, len(toDelete))
		for _, id := range toDelete {
			ids = append(ids, id)
		}
		if err := p.store.DeleteByIDs(ctx, tenant, ids); err != nil {
			return nil, fmt.Errorf("deleting superseded records: %w", err)
		}
	}

	survivors := make([]Document, 0, len(documents))
	for _, doc := range documents {
		if doc.Source == "" {
			survivors = append(survivors, doc)
			continue
		}
		if _, found := existing[doc.Source]; !found {
			survivors = append(survivors, doc)
			continue
		}
		if _, marked := toDelete[doc.Source]; marked {
			survivors = append(survivors, doc)
		}
	}

	return survivors, nil
}
