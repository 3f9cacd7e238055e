package v1

import (
	"github.com/kubev2v/pdf-extractor/internal/models"
	"github.com/kubev2v/pdf-extractor/pkg/pool"
)

// NewExtractionResultFromModel converts a models.Extraction to an upload result.
func NewExtractionResultFromModel(e models.Extraction) ExtractionResult {
	r := ExtractionResult{FileName: e.Label}
	if e.Failed() {
		r.Error = &e.Error
	} else {
		r.Text = &e.Content
	}
	return r
}

// NewExtractionFromModel converts a models.Extraction to an API Extraction.
func NewExtractionFromModel(e models.Extraction) Extraction {
	apiExtraction := Extraction{
		Id:         e.ID,
		FileName:   e.Label,
		Status:     string(e.Status),
		WorkerId:   e.WorkerID,
		DurationMs: e.Duration.Milliseconds(),
		CreatedAt:  e.CreatedAt,
	}

	if e.Failed() {
		apiExtraction.Error = &e.Error
	} else {
		apiExtraction.Text = &e.Content
	}

	return apiExtraction
}

func NewPoolStatus(stats pool.Stats) PoolStatus {
	return PoolStatus{
		Size:     stats.Size,
		Workers:  stats.Workers(),
		Idle:     stats.Idle,
		Busy:     stats.Busy,
		Retiring: stats.Retiring,
		Queued:   stats.Queued,
		Spawning: stats.Spawning,
	}
}
