package ingest

// Stage identifies how far a tenant's pipeline got before stopping,
// whether by completing, skipping, or failing.
type Stage string

const (
	StageReconcile Stage = "reconcile"
	StageSplit     Stage = "split"
	StageNormalize Stage = "normalize"
	StagePersist   Stage = "persist"
)

// TenantOutcome records one tenant's result for a single ingestion batch.
// A nil Err with a stage short of persist means the tenant was skipped at
// that stage (nothing new to write), which is not a failure.
type TenantOutcome struct {
	Tenant string
	Stage  Stage
	Err    error
}

// OK reports whether the tenant's pipeline ended without a failure.
func (o TenantOutcome) OK() bool {
	return o.Err == nil
}
