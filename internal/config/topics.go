package config

const (
	// TopicIngestOutcome is the NSQ topic carrying per-tenant ingestion outcomes.
	TopicIngestOutcome = "ingest.outcome"
)
