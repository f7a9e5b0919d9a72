package ingest_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"corpora/backend/internal/ingest"

	"github.com/google/uuid"
)

// fakeStore is an in-memory tenant-scoped store tracking call counts so
// tests can assert how many queries, deletes and adds a batch performed.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]map[string]ingest.Record // tenant -> source -> record

	queryErr  error
	deleteErr error
	addErr    error

	// unavailable lists tenants for which GetClient returns nil.
	unavailable map[string]bool
	// shortWrite lists tenants whose Add drops the last id to simulate a
	// partial write.
	shortWrite map[string]bool

	queries int
	deletes int
	adds    int
	added   map[string][]ingest.Chunk // tenant -> chunks written
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:     make(map[string]map[string]ingest.Record),
		unavailable: make(map[string]bool),
		shortWrite:  make(map[string]bool),
		added:       make(map[string][]ingest.Chunk),
	}
}

func (s *fakeStore) seed(tenant, source string, modified int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[tenant] == nil {
		s.records[tenant] = make(map[string]ingest.Record)
	}
	id := uuid.New().String()
	s.records[tenant][source] = ingest.Record{ID: id, Modified: modified}
	return id
}

func (s *fakeStore) GetRecordsBySource(ctx context.Context, tenant, keyField string, sources []string) (map[string]ingest.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	found := make(map[string]ingest.Record)
	for _, source := range sources {
		if rec, ok := s.records[tenant][source]; ok {
			found[source] = rec
		}
	}
	return found, nil
}

func (s *fakeStore) DeleteByIDs(ctx context.Context, tenant string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	byID := make(map[string]bool, len(ids))
	for _, id := range ids {
		byID[id] = true
	}
	for source, rec := range s.records[tenant] {
		if byID[rec.ID] {
			delete(s.records[tenant], source)
		}
	}
	return nil
}

func (s *fakeStore) GetClient(tenant string) ingest.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable[tenant] {
		return nil
	}
	return &fakeClient{store: s, tenant: tenant}
}

type fakeClient struct {
	store  *fakeStore
	tenant string
}

func (c *fakeClient) Add(ctx context.Context, chunks []ingest.Chunk) ([]string, error) {
	s := c.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adds++
	if s.addErr != nil {
		return nil, s.addErr
	}
	var ids []string
	for _, chunk := range chunks {
		s.added[c.tenant] = append(s.added[c.tenant], chunk)
		id := uuid.New().String()
		ids = append(ids, id)
		if chunk.Source != "" {
			if s.records[c.tenant] == nil {
				s.records[c.tenant] = make(map[string]ingest.Record)
			}
			s.records[c.tenant][chunk.Source] = ingest.Record{ID: id, Modified: chunk.Modified}
		}
	}
	if s.shortWrite[c.tenant] && len(ids) > 0 {
		ids = ids[:len(ids)-1]
	}
	return ids, nil
}

// utf8Decoder decodes content as-is; empty bytes mean skip.
type utf8Decoder struct{}

func (utf8Decoder) Decode(src ingest.Source) (string, error) {
	return string(src.Content), nil
}

// lineSplitter splits document content on blank lines, one chunk per block.
type lineSplitter struct{}

func (lineSplitter) Split(docs []ingest.Document) ([]ingest.Chunk, error) {
	var chunks []ingest.Chunk
	for _, doc := range docs {
		for _, block := range strings.Split(doc.Content, "\n\n") {
			chunks = append(chunks, ingest.Chunk{
				Content:  block,
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

var errNoSplitter = errors.New("no splitter registered")

// fakeRegistry resolves lineSplitter for every type except those listed in
// failFor.
type fakeRegistry struct {
	failFor map[string]bool
}

func (r *fakeRegistry) SplitterFor(mimetype string) (ingest.Splitter, error) {
	if r.failFor[mimetype] {
		return nil, errNoSplitter
	}
	return lineSplitter{}, nil
}
