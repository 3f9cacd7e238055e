// Package services implements the business logic layer for the pdf-extractor.
//
// Services sit between the HTTP handlers and the worker pool and store.
//
// # Service Dependency Graph
//
//	Handlers (HTTP endpoints)
//	    │
//	    ▼
//	ExtractionService ──► Dispatcher (pkg/pool), Store
//
// # ExtractionService
//
// Extract submits a batch of jobs to the pool in one go, so that they run
// concurrently up to the pool size, then waits for each future in job order.
// Every result, failed or not, is recorded as a models.Extraction.
//
//	┌────────┐  Submit x N   ┌──────┐   results   ┌──────────────┐
//	│ Extract│ ────────────► │ Pool │ ──────────► │ Store.Save   │
//	└────────┘               └──────┘             └──────────────┘
//
// Recording is best effort: a store error is logged and the extraction is
// still returned to the caller.
//
// List, Get and Export read the history. Export renders it as an XLSX
// workbook with one row per extraction.
//
// Usage:
//
//	srv := services.NewExtractionService(p, st)
//	extractions, err := srv.Extract(ctx, []pool.Job{{Locator: path, Label: "report.pdf"}})
//
//	result, err := srv.List(ctx, services.ExtractionListParams{
//	    Statuses: []models.ExtractionStatus{models.ExtractionStatusFailed},
//	    Limit:    20,
//	})
//
// # Thread Safety
//
// ExtractionService is stateless; concurrency is handled by the pool's event
// loop and the database.
package services
