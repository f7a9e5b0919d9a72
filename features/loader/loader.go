// Package loader exposes the document ingestion surface: the multipart
// upload endpoint, the batch audit trail in postgres, and outcome events.
package loader

import (
	"context"
	"encoding/json"
	"log/slog"

	"corpora/backend/internal/config"
	"corpora/backend/internal/ingest"
	"corpora/backend/internal/middleware"
)

// Batch is one recorded ingestion request.
type Batch struct {
	ID          string `json:"id"`
	Status      string `json:"status"` // in_progress, completed, failed
	SourceCount int    `json:"source_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Outcome is one tenant's persisted result within a batch.
type Outcome struct {
	ID      string `json:"id"`
	BatchID string `json:"batch_id"`
	Tenant  string `json:"tenant"`
	Stage   string `json:"stage"`
	Error   string `json:"error,omitempty"`
}

type Repository interface {
	CreateBatch(ctx context.Context, sourceCount int) (string, error)
	FinishBatch(ctx context.Context, id string, ok bool) error
	SaveOutcomes(ctx context.Context, batchID string, outcomes []ingest.TenantOutcome) error
	ListBatches(ctx context.Context) ([]Batch, error)
}

// Runner drives one ingestion batch through the pipeline.
type Runner interface {
	Run(ctx context.Context, sources []ingest.Source) []ingest.TenantOutcome
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	runner Runner
	repo   Repository
	pub    EventPublisher
}

func NewService(runner Runner, repo Repository, pub EventPublisher) *Service {
	return &Service{runner: runner, repo: repo, pub: pub}
}

// Result is what LoadSources reports back to the handler.
type Result struct {
	BatchID  string                 `json:"batch_id,omitempty"`
	Loaded   bool                   `json:"loaded"`
	Outcomes []ingest.TenantOutcome `json:"-"`
}

// LoadSources runs the batch through the pipeline, records the audit trail
// and publishes per-tenant outcome events. Audit and event failures are
// logged, not surfaced: the pipeline result is the authoritative answer.
func (s *Service) LoadSources(ctx context.Context, sources []ingest.Source) Result {
	batchID, err := s.repo.CreateBatch(ctx, len(sources))
	if err != nil {
		slog.Error("failed to record ingestion batch", "error", err)
	}

	outcomes := s.runner.Run(ctx, sources)

	loaded := true
	for _, o := range outcomes {
		if !o.OK() {
			loaded = false
			break
		}
	}

	if batchID != "" {
		if err := s.repo.SaveOutcomes(ctx, batchID, outcomes); err != nil {
			slog.Error("failed to record tenant outcomes", "error", err, "batch_id", batchID)
		}
		if err := s.repo.FinishBatch(ctx, batchID, loaded); err != nil {
			slog.Error("failed to finish ingestion batch", "error", err, "batch_id", batchID)
		}
	}

	s.publishOutcomes(ctx, batchID, outcomes)

	return Result{BatchID: batchID, Loaded: loaded, Outcomes: outcomes}
}

func (s *Service) publishOutcomes(ctx context.Context, batchID string, outcomes []ingest.TenantOutcome) {
	if s.pub == nil {
		return
	}
	for _, o := range outcomes {
		msg := map[string]interface{}{
			"batch_id":       batchID,
			"tenant":         o.Tenant,
			"stage":          string(o.Stage),
			"ok":             o.OK(),
			"correlation_id": middleware.GetCorrelationID(ctx),
		}
		if o.Err != nil {
			msg["error"] = o.Err.Error()
		}
		payload, _ := json.Marshal(msg)
		if err := s.pub.Publish(config.TopicIngestOutcome, payload); err != nil {
			slog.Error("failed to publish outcome event", "error", err, "tenant", o.Tenant)
		}
	}
}

func (s *Service) ListBatches(ctx context.Context) ([]Batch, error) {
	return s.repo.ListBatches(ctx)
}
