// Package driven defines the interfaces the collection engine calls out to:
// source adapters, the enrichment and ingestion boundaries, and persistence.
// Adapters implement these; the core services depend only on the interfaces.
package driven
