package ingest

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// virtualFilePrefix marks filenames that are not real files. Sources carrying
// it are only admitted when their declared type is in the allowlist.
const virtualFilePrefix = "file: "

// Pipeline reconciles batches of uploaded sources against the tenant-scoped
// vector store. Tenants are processed concurrently; work for a single tenant
// is serialized so two overlapping batches cannot race a delete against an
// insert for the same source.
type Pipeline struct {
	store     Store
	decoder   Decoder
	splitters SplitterRegistry
	allowed   map[string]struct{}
	pool      *ants.Pool
	logger    *slog.Logger

	mu      sync.Mutex
	tenants map[string]*sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of tenants processed concurrently.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithAllowedTypes sets the mimetype allowlist consulted for sources whose
// filename carries the virtual-file marker.
func WithAllowedTypes(mimetypes []string) Option {
	return func(p *Pipeline) error {
		allowed := make(map[string]struct{}, len(mimetypes))
		for _, m := range mimetypes {
			allowed[m] = struct{}{}
		}
		p.allowed = allowed
		return nil
	}
}

// NewPipeline creates an ingestion pipeline over the given collaborators.
func NewPipeline(store Store, decoder Decoder, splitters SplitterRegistry, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if decoder == nil {
		return nil, ErrDecoderRequired
	}
	if splitters == nil {
		return nil, ErrSplitterRegistryRequired
	}

	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:     store,
		decoder:   decoder,
		splitters: splitters,
		allowed:   make(map[string]struct{}),
		pool:      pool,
		logger:    slog.Default(),
		tenants:   make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.pool.Release()
			return nil, err
		}
	}

	return p, nil
}

// Close releases the worker pool.
func (p *Pipeline) Close() {
	p.pool.Release()
}

// EmbedSources ingests a batch of sources and reports whether every tenant
// touched by the batch succeeded. An empty batch is trivially successful.
func (p *Pipeline) EmbedSources(ctx context.Context, sources []Source) bool {
	ok := true
	for _, outcome := range p.Run(ctx, sources) {
		if !outcome.OK() {
			ok = false
		}
	}
	return ok
}

// Run ingests a batch of sources and returns one outcome per tenant.
// Every tenant is attempted regardless of earlier tenants' failures.
func (p *Pipeline) Run(ctx context.Context, sources []Source) []TenantOutcome {
	admitted := make([]Source, 0, len(sources))
	for _, src := range sources {
		if p.admitted(src) {
			admitted = append(admitted, src)
		} else {
			p.logger.InfoContext(ctx, "source rejected by mimetype gate", "filename", src.Filename, "type", src.Type)
		}
	}

	documents := p.sourcesToDocuments(ctx, admitted)
	if len(documents) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = make([]TenantOutcome, 0, len(documents))
	)

	for tenant, docs := range documents {
		wg.Add(1)
		task := func() {
			defer wg.Done()

			lock := p.tenantLock(tenant)
			lock.Lock()
			outcome := p.processTenant(ctx, tenant, docs)
			lock.Unlock()

			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
		}
		if err := p.pool.Submit(task); err != nil {
			// Pool rejected the task (e.g. released); run inline rather than drop the tenant.
			task()
		}
	}

	wg.Wait()
	return outcomes
}

// processTenant runs reconcile → split → normalize → persist for one tenant.
// Steps are strictly sequential; the first failure ends the tenant's run.
func (p *Pipeline) processTenant(ctx context.Context, tenant string, documents []Document) TenantOutcome {
	survivors, err := p.reconcile(ctx, tenant, documents)
	if err != nil {
		p.logger.ErrorContext(ctx, "reconciliation failed", "tenant", tenant, "error", err)
		return TenantOutcome{Tenant: tenant, Stage: StageReconcile, Err: err}
	}
	if len(survivors) == 0 {
		return TenantOutcome{Tenant: tenant, Stage: StageReconcile}
	}

	chunks, err := p.bucketAndSplit(ctx, survivors)
	if err != nil {
		p.logger.ErrorContext(ctx, "splitting failed", "tenant", tenant, "error", err)
		return TenantOutcome{Tenant: tenant, Stage: StageSplit, Err: err}
	}

	chunks = Normalize(chunks)
	if len(chunks) == 0 {
		return TenantOutcome{Tenant: tenant, Stage: StageNormalize}
	}

	if err := p.persist(ctx, tenant, chunks); err != nil {
		p.logger.ErrorContext(ctx, "persistence failed", "tenant", tenant, "chunks", len(chunks), "error", err)
		return TenantOutcome{Tenant: tenant, Stage: StagePersist, Err: err}
	}

	p.logger.InfoContext(ctx, "tenant ingested", "tenant", tenant, "documents", len(survivors), "chunks", len(chunks))
	return TenantOutcome{Tenant: tenant, Stage: StagePersist}
}

// admitted applies the virtual-file gate: sources whose filename starts with
// the marker prefix are only let through when their type is allowlisted.
func (p *Pipeline) admitted(src Source) bool {
	if src.Filename == "" || !strings.HasPrefix(src.Filename, virtualFilePrefix) {
		return true
	}
	_, ok := p.allowed[src.Type]
	return ok
}

func (p *Pipeline) tenantLock(tenant string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.tenants[tenant]
	if !ok {
		lock = &sync.Mutex{}
		p.tenants[tenant] = lock
	}
	return lock
}
