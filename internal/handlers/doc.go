// Package handlers implements the HTTP API layer for the pdf-extractor.
//
// Handlers validate requests, delegate to the services layer and map errors
// to HTTP status codes. They never talk to the worker pool directly.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     HTTP Request (Gin)                          │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Handler (this package)                     │
//	│  - Multipart upload handling                                    │
//	│  - Parameter parsing                                            │
//	│  - Error mapping to HTTP status codes                           │
//	│  - Model-to-API conversion                                      │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                 ExtractionService (services)                    │
//	└─────────────────────────────────────────────────────────────────┘
//
// The Handler implements v1.ServerInterface and is mounted with:
//
//	v1.RegisterHandlers(router, handler)
//
// # API Endpoints
//
//	┌────────┬─────────────────────┬─────────────────────────────────────────┐
//	│ Method │ Endpoint            │ Description                             │
//	├────────┼─────────────────────┼─────────────────────────────────────────┤
//	│ POST   │ /upload             │ Extract text from uploaded PDFs         │
//	│ GET    │ /extractions        │ List history (label, status, paging)    │
//	│ GET    │ /extractions/{id}   │ Get one recorded extraction             │
//	│ GET    │ /extractions/export │ Download history as XLSX                │
//	│ GET    │ /pool               │ Worker pool status                      │
//	└────────┴─────────────────────┴─────────────────────────────────────────┘
//
// # Upload Flow
//
// POST /upload reads the multipart field "pdfs". Every file must carry a
// .pdf extension; otherwise, or when no file is sent, the request fails with
// 400 before anything is submitted. Files are written to the uploads folder
// under a random name, submitted together, and removed once every result is
// in. The response lists one result per file in upload order:
//
//	[
//	    {"fileName": "a.pdf", "text": "...", "error": null},
//	    {"fileName": "b.pdf", "text": null, "error": "worker ... faulted: ..."}
//	]
//
// # Error Mapping
//
//	┌─────────────────────────┬────────────────┐
//	│ Error                   │ HTTP Status    │
//	├─────────────────────────┼────────────────┤
//	│ InvalidUploadError      │ 400            │
//	│ invalid query parameter │ 400            │
//	│ ResourceNotFoundError   │ 404            │
//	│ anything else           │ 500            │
//	└─────────────────────────┴────────────────┘
//
// # Pagination
//
// GET /extractions accepts page (default 1) and pageSize (default 20, capped
// at 100) and answers with page, pageCount and total alongside the items.
package handlers
