package weaviate

import (
	"context"
	"fmt"

	"corpora/backend/internal/ingest"
	"corpora/backend/internal/vector"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// recordQueryLimit bounds the reconciliation query. A batch carries at most
// one document per source path, so one representative record per path is
// enough for the timestamp comparison.
const recordQueryLimit = 10000

// Embedder produces the vector committed with each chunk.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store implements ingest.Store on a Weaviate class shared by all tenants.
// Every operation filters on the tenant property; no call reaches objects
// outside the given tenant's scope.
type Store struct {
	client   *weaviate.Client
	embedder Embedder
}

func NewStore(client *weaviate.Client, embedder Embedder) *Store {
	return &Store{client: client, embedder: embedder}
}

// GetClient returns a handle scoped to the tenant, or nil when the store is
// not usable for it.
func (s *Store) GetClient(tenant string) ingest.Client {
	if s.client == nil || s.embedder == nil || tenant == "" {
		return nil
	}
	return &tenantClient{store: s, tenant: tenant}
}

// GetRecordsBySource returns one committed record per source path present in
// the store for this tenant. All chunks of a source share its modified
// timestamp, so any one of them represents the source's live version.
func (s *Store) GetRecordsBySource(ctx context.Context, tenant, keyField string, sources []string) (map[string]ingest.Record, error) {
	records := make(map[string]ingest.Record)
	if len(sources) == 0 {
		return records, nil
	}

	where := filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().
				WithPath([]string{"tenant"}).
				WithOperator(filters.Equal).
				WithValueString(tenant),
			filters.Where().
				WithPath([]string{keyField}).
				WithOperator(filters.ContainsAny).
				WithValueText(sources...),
		})

	fields := []graphql.Field{
		{Name: keyField},
		{Name: "modified"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithWhere(where).
		WithLimit(recordQueryLimit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if objects, ok := data[vector.ClassName].([]interface{}); ok {
			for _, o := range objects {
				props, ok := o.(map[string]interface{})
				if !ok {
					continue
				}
				source, _ := props[keyField].(string)
				if source == "" {
					continue
				}
				rec := ingest.Record{}
				if modified, ok := props["modified"].(float64); ok {
					rec.Modified = int64(modified)
				}
				if additional, ok := props["_additional"].(map[string]interface{}); ok {
					rec.ID, _ = additional["id"].(string)
				}
				records[source] = rec
			}
		}
	}

	return records, nil
}

// DeleteByIDs removes every record of the sources the identified records
// belong to. A source that split into several chunks stores one object per
// chunk but reconciliation marks a single representative id, so the ids are
// first resolved to their source paths and the delete filters on those.
// Both steps stay scoped to the tenant so a stray id can never cross a
// tenant boundary.
func (s *Store) DeleteByIDs(ctx context.Context, tenant string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	paths, err := s.sourcesForIDs(ctx, tenant, ids)
	if err != nil {
		return fmt.Errorf("resolving sources for ids: %w", err)
	}
	if len(paths) == 0 {
		return nil
	}

	where := filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().
				WithPath([]string{"tenant"}).
				WithOperator(filters.Equal).
				WithValueString(tenant),
			filters.Where().
				WithPath([]string{"source"}).
				WithOperator(filters.ContainsAny).
				WithValueText(paths...),
		})

	_, err = s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(where).
		Do(ctx)
	return err
}

// sourcesForIDs maps record ids to the distinct source paths they belong to.
func (s *Store) sourcesForIDs(ctx context.Context, tenant string, ids []string) ([]string, error) {
	where := filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().
				WithPath([]string{"tenant"}).
				WithOperator(filters.Equal).
				WithValueString(tenant),
			filters.Where().
				WithPath([]string{"id"}).
				WithOperator(filters.ContainsAny).
				WithValueText(ids...),
		})

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithWhere(where).
		WithLimit(recordQueryLimit).
		WithFields(graphql.Field{Name: "source"}).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	seen := make(map[string]struct{})
	var paths []string
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if objects, ok := data[vector.ClassName].([]interface{}); ok {
			for _, o := range objects {
				props, ok := o.(map[string]interface{})
				if !ok {
					continue
				}
				source, _ := props["source"].(string)
				if source == "" {
					continue
				}
				if _, dup := seen[source]; dup {
					continue
				}
				seen[source] = struct{}{}
				paths = append(paths, source)
			}
		}
	}
	return paths, nil
}

type tenantClient struct {
	store  *Store
	tenant string
}

// Add embeds and writes all chunks in one batch call, returning one id per
// chunk the store accepted.
func (c *tenantClient) Add(ctx context.Context, chunks []ingest.Chunk) ([]string, error) {
	objects := make([]*models.Object, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := c.store.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk: %w", err)
		}
		objects = append(objects, &models.Object{
			Class: vector.ClassName,
			Properties: map[string]interface{}{
				"content":  chunk.Content,
				"tenant":   c.tenant,
				"source":   chunk.Source,
				"title":    chunk.Title,
				"type":     chunk.Type,
				"provider": chunk.Provider,
				"modified": chunk.Modified,
			},
			Vector: vec,
		})
	}

	res, err := c.store.client.Batch().ObjectsBatcher().
		WithObjects(objects...).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, obj := range res {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			continue
		}
		ids = append(ids, obj.ID.String())
	}
	return ids, nil
}
