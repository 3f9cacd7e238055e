// Package config defines the configuration structure for the pdf-extractor.
//
// Configuration is organized into logical sections (Server, Pool, Store,
// Authentication) and uses code generation via optgen to create functional
// option helpers.
//
// # Configuration Structure
//
//	Configuration
//	├── Server         - HTTP server settings
//	├── Pool           - Worker pool sizing and fault handling
//	├── Store          - Extraction history storage
//	├── Auth           - Authentication settings
//	├── LogFormat      - Logging format (console, json)
//	└── LogLevel       - Logging verbosity
//
// # Server Configuration
//
//	┌──────────────────┬─────────────────────────┬──────────────────────────────────┐
//	│ Field            │ Default                 │ Description                      │
//	├──────────────────┼─────────────────────────┼──────────────────────────────────┤
//	│ ServerMode       │ "dev"                   │ Server mode: "prod" or "dev"     │
//	│ HTTPPort         │ 3001                    │ HTTP server listen port          │
//	│ UploadsFolder    │ "uploads"               │ Where uploads wait for workers   │
//	│ CORSOrigins      │ [http://localhost:3000] │ Origins allowed by CORS          │
//	└──────────────────┴─────────────────────────┴──────────────────────────────────┘
//
// # Pool Configuration
//
//	┌───────────────┬───────────┬──────────────────────────────────────────────┐
//	│ Field         │ Default   │ Description                                  │
//	├───────────────┼───────────┼──────────────────────────────────────────────┤
//	│ Workers       │ 1         │ Number of worker units                       │
//	│ Isolation     │ "process" │ "process" (child process) or "goroutine"     │
//	│ JobTimeout    │ 2m        │ Worker holding a job longer is faulted       │
//	│ SpawnMaxTries │ 5         │ Attempts to spawn a replacement worker       │
//	│ FailureRate   │ 0         │ Share of jobs failed on purpose (testing)    │
//	└───────────────┴───────────┴──────────────────────────────────────────────┘
//
// # Store Configuration
//
//	┌────────────┬─────────┬────────────────────────────────────────────────┐
//	│ Field      │ Default │ Description                                    │
//	├────────────┼─────────┼────────────────────────────────────────────────┤
//	│ DataFolder │ ""      │ Folder of the DuckDB file, in-memory if empty  │
//	└────────────┴─────────┴────────────────────────────────────────────────┘
//
// # Authentication Configuration
//
//	┌─────────┬─────────┬──────────────────────────────────────────┐
//	│ Field   │ Default │ Description                              │
//	├─────────┼─────────┼──────────────────────────────────────────┤
//	│ Enabled │ false   │ Require a HS256 bearer token on the API  │
//	│ Secret  │ ""      │ Secret used to verify tokens             │
//	└─────────┴─────────┴──────────────────────────────────────────┘
//
// # Code Generation
//
// The package uses optgen to generate functional option helpers:
//
//	//go:generate go run github.com/ecordell/optgen -output zz_generated.configuration.go . Configuration Server Pool Store Authentication
//
// Generated helpers include:
//
//   - NewConfigurationWithOptions(...ConfigurationOption) - Create with options
//   - NewConfigurationWithOptionsAndDefaults(...ConfigurationOption) - Create with defaults + options
//   - WithServer(Server), WithPool(Pool), etc. - Set nested structs
//   - DebugMap() - Returns map for debug logging (respects debugmap tags)
//
// # Usage Example
//
//	cfg := config.NewConfigurationWithOptionsAndDefaults(
//	    config.WithPool(*config.NewPoolWithOptionsAndDefaults(
//	        config.WithWorkers(4),
//	        config.WithIsolation(config.IsolationGoroutine),
//	    )),
//	    config.WithLogLevel("debug"),
//	)
//
// # Debug Logging
//
// Auth.Secret is tagged `debugmap:"sensitive"` and is masked by DebugMap():
//
//	zap.S().Infow("configuration loaded", "config", cfg.DebugMap())
package config
