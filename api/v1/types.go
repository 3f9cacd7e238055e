package v1

import "time"

// ExtractionResult is the per-file outcome returned by POST /upload.
// Exactly one of Text and Error is set.
type ExtractionResult struct {
	FileName string  `json:"fileName"`
	Text     *string `json:"text"`
	Error    *string `json:"error"`
}

// Extraction is a recorded extraction returned by the history endpoints.
type Extraction struct {
	Id         string    `json:"id"`
	FileName   string    `json:"fileName"`
	Status     string    `json:"status"`
	WorkerId   string    `json:"workerId,omitempty"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
	Text       *string   `json:"text"`
	Error      *string   `json:"error"`
}

type ExtractionListResponse struct {
	Page        int          `json:"page"`
	PageCount   int          `json:"pageCount"`
	Total       int          `json:"total"`
	Extractions []Extraction `json:"extractions"`
}

type PoolStatus struct {
	Size     int `json:"size"`
	Workers  int `json:"workers"`
	Idle     int `json:"idle"`
	Busy     int `json:"busy"`
	Retiring int `json:"retiring"`
	Queued   int `json:"queued"`
	Spawning int `json:"spawning"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// ListExtractionsParams defines parameters for GET /extractions.
type ListExtractionsParams struct {
	Label    *string `form:"label"`
	Status   *string `form:"status" binding:"omitempty,oneof=succeeded failed"`
	Page     *int    `form:"page" binding:"omitempty,min=1"`
	PageSize *int    `form:"pageSize" binding:"omitempty,min=1"`
}
