package config

import (
	"fmt"
	"time"
)

//go:generate go run github.com/ecordell/optgen -output zz_generated.configuration.go . Configuration Server Pool Store Authentication

const (
	IsolationProcess   = "process"
	IsolationGoroutine = "goroutine"
)

type Configuration struct {
	Server    Server         `debugmap:"visible"`
	Pool      Pool           `debugmap:"visible"`
	Store     Store          `debugmap:"visible"`
	Auth      Authentication `debugmap:"visible"`
	LogFormat string         `debugmap:"visible" default:"console"`
	LogLevel  string         `debugmap:"visible" default:"info"`
}

type Server struct {
	ServerMode    string   `debugmap:"visible" default:"dev"`
	HTTPPort      int      `debugmap:"visible" default:"3001"`
	UploadsFolder string   `debugmap:"visible" default:"uploads"`
	CORSOrigins   []string `debugmap:"visible" default:"[\"http://localhost:3000\"]"`
}

type Pool struct {
	Workers       int           `debugmap:"visible" default:"1"`
	Isolation     string        `debugmap:"visible" default:"process"`
	JobTimeout    time.Duration `debugmap:"visible" default:"2m"`
	SpawnMaxTries uint          `debugmap:"visible" default:"5"`
	FailureRate   float64       `debugmap:"visible" default:"0"`
}

type Store struct {
	DataFolder string `debugmap:"visible" default:""`
}

type Authentication struct {
	Enabled bool   `debugmap:"visible" default:"false"`
	Secret  string `debugmap:"sensitive" default:""`
}

func (c *Configuration) Validate() error {
	if c.Server.ServerMode != "dev" && c.Server.ServerMode != "prod" {
		return fmt.Errorf("invalid server mode %q: must be dev or prod", c.Server.ServerMode)
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http port %d", c.Server.HTTPPort)
	}
	if c.Pool.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Pool.Workers)
	}
	if c.Pool.Isolation != IsolationProcess && c.Pool.Isolation != IsolationGoroutine {
		return fmt.Errorf("invalid isolation %q: must be %s or %s", c.Pool.Isolation, IsolationProcess, IsolationGoroutine)
	}
	if c.Pool.FailureRate < 0 || c.Pool.FailureRate > 1 {
		return fmt.Errorf("failure rate must be between 0 and 1, got %v", c.Pool.FailureRate)
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("authentication is enabled but no secret is set")
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q: must be console or json", c.LogFormat)
	}
	return nil
}
