// Package store implements the data access layer for the pdf-extractor.
//
// It records the outcome of every processed document in DuckDB. Records are
// an audit trail: nothing stored here is replayed when the process restarts.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                         Store (facade)                          │
//	├─────────────────────────────────────────────────────────────────┤
//	│                        ExtractionStore                          │
//	│                               ▼                                 │
//	│                     QueryInterceptor (debug log)                │
//	│                               ▼                                 │
//	│                          extractions                            │
//	└─────────────────────────────────────────────────────────────────┘
//
// Tables created by migrations (internal/store/migrations/sql/):
//
//	┌────────────────────┬─────────────────────────────────────────────┐
//	│  Table             │  Purpose                                    │
//	├────────────────────┼─────────────────────────────────────────────┤
//	│  extractions       │  One row per resolved job                   │
//	│  schema_migrations │  Migration version tracking                 │
//	└────────────────────┴─────────────────────────────────────────────┘
//
// Schema:
//
//	extractions (
//	    id VARCHAR PRIMARY KEY,
//	    label VARCHAR NOT NULL,
//	    worker_id VARCHAR,
//	    status VARCHAR NOT NULL,        -- succeeded | failed
//	    content VARCHAR,
//	    error VARCHAR,
//	    duration_ms BIGINT NOT NULL DEFAULT 0,
//	    created_at TIMESTAMP NOT NULL DEFAULT now()
//	)
//
// # List Options
//
// ExtractionStore.List and Count take functional options, each modifying a
// squirrel.SelectBuilder:
//
//	extractions, err := st.Extractions().List(ctx,
//	    store.ByLabel("report.pdf"),
//	    store.ByStatus(models.ExtractionStatusFailed),
//	    store.WithDefaultSort(),
//	    store.WithLimit(20),
//	    store.WithOffset(40),
//	)
//
// WithDefaultSort orders by created_at descending with id as tie-breaker.
package store
