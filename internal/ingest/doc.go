// Package ingest keeps a tenant's vector store consistent with the latest
// set of uploaded sources. It decodes uploads into documents, reconciles
// them against the records already committed per tenant (deleting superseded
// entries), splits the survivors into retrieval-sized chunks via type-specific
// splitters, normalizes their content, and persists them through a
// tenant-scoped store client.
//
// Decoding, splitting, embedding, and the store itself are collaborators
// behind interfaces; this package owns only the reconciliation-and-ingestion
// semantics: at most one live set of records per source path per tenant, and
// tenant failures that never leak across tenants.
package ingest
