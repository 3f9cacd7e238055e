// Package server provides the HTTP server of the pdf-extractor.
//
// The server is a Gin engine with the following middleware stack, applied in
// order to every request:
//
//	┌─────────────────────────────────────────────────────────┐
//	│  ginzap logger      (request/response logging)          │
//	│  ginzap recovery    (panic recovery with zap logging)   │
//	│  cors               (configured origins, GET and POST)  │
//	│  metrics            (per-route request counter)         │
//	├─────────────────────────────────────────────────────────┤
//	│  /metrics           prometheus exposition               │
//	│  /health            liveness                            │
//	│  /api/v1            handlers registered via callback,   │
//	│                     behind a bearer token check when    │
//	│                     authentication is enabled           │
//	└─────────────────────────────────────────────────────────┘
//
// Start blocks in ListenAndServe; Stop drains in-flight requests.
package server
