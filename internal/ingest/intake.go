package ingest

import "context"

// sourcesToDocuments decodes sources and groups the resulting documents by
// tenant, preserving input order within each tenant. Sources with no tenant
// id are logged and skipped; sources that decode to nothing are skipped
// silently. Neither fails the batch.
func (p *Pipeline) sourcesToDocuments(ctx context.Context, sources []Source) map[string][]Document {
	documents := make(map[string][]Document)

	for _, src := range sources {
		if src.Tenant == "" {
			p.logger.ErrorContext(ctx, "tenant id missing for source, skipping", "filename", src.Filename)
			continue
		}

		content, err := p.decoder.Decode(src)
		if err != nil {
			p.logger.DebugContext(ctx, "decode failed, skipping source", "filename", src.Filename, "error", err)
			continue
		}
		if content == "" {
			continue
		}

		documents[src.Tenant] = append(documents[src.Tenant], Document{
			Source:   src.Filename,
			Title:    src.Title,
			Type:     src.Type,
			Modified: coerceEpoch(src.Modified),
			Provider: src.Provider,
			Content:  content,
		})
	}

	return documents
}
