package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kubev2v/pdf-extractor/pkg/pool"
)

type ExtractionStatus string

const (
	ExtractionStatusSucceeded ExtractionStatus = "succeeded"
	ExtractionStatusFailed    ExtractionStatus = "failed"
)

func ParseExtractionStatus(s string) (ExtractionStatus, error) {
	switch s {
	case "succeeded":
		return ExtractionStatusSucceeded, nil
	case "failed":
		return ExtractionStatusFailed, nil
	default:
		return "", fmt.Errorf("invalid extraction status: %s", s)
	}
}

// Extraction is the recorded outcome of one processed document.
type Extraction struct {
	ID        string
	Label     string
	WorkerID  string
	Status    ExtractionStatus
	Content   string
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

func NewExtraction(res pool.Result) Extraction {
	e := Extraction{
		ID:        uuid.NewString(),
		Label:     res.Label,
		WorkerID:  res.WorkerID,
		Status:    ExtractionStatusSucceeded,
		Content:   res.Text,
		Duration:  res.Elapsed,
		CreatedAt: time.Now().UTC(),
	}
	if res.Err != nil {
		e.Status = ExtractionStatusFailed
		e.Content = ""
		e.Error = res.Err.Error()
	}
	return e
}

func (e Extraction) Failed() bool {
	return e.Status == ExtractionStatusFailed
}
