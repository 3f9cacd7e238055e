package services

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kubev2v/pdf-extractor/internal/models"
	"github.com/kubev2v/pdf-extractor/internal/store"
	"github.com/kubev2v/pdf-extractor/pkg/pool"
)

const exportSheet = "Extractions"

// Dispatcher is the part of the worker pool used by the service.
type Dispatcher interface {
	Submit(job pool.Job) *pool.Future
	Stats() pool.Stats
}

type ExtractionService struct {
	pool  Dispatcher
	store *store.Store
}

func NewExtractionService(p Dispatcher, st *store.Store) *ExtractionService {
	return &ExtractionService{pool: p, store: st}
}

// Extract submits every job to the pool at once and waits for all of them.
// Results are returned in job order. A failed extraction is a normal outcome;
// the error is only set when ctx is done. Every result is recorded in the
// history even after ctx is done, and settled, when not nil, is called once
// all jobs have resolved.
func (s *ExtractionService) Extract(ctx context.Context, jobs []pool.Job, settled func()) ([]models.Extraction, error) {
	futures := make([]*pool.Future, 0, len(jobs))
	for _, job := range jobs {
		futures = append(futures, s.pool.Submit(job))
	}

	recordCtx := context.WithoutCancel(ctx)
	results := make(chan models.Extraction, len(futures))
	go func() {
		if settled != nil {
			defer settled()
		}
		for _, f := range futures {
			e := models.NewExtraction(<-f.C())
			if err := s.store.Extractions().Save(recordCtx, e); err != nil {
				zap.S().Named("extraction_service").Errorw("failed to record extraction", "label", e.Label, "error", err)
			}
			results <- e
		}
	}()

	extractions := make([]models.Extraction, 0, len(jobs))
	for range futures {
		select {
		case e := <-results:
			extractions = append(extractions, e)
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for extraction results: %w", ctx.Err())
		}
	}

	return extractions, nil
}

type ExtractionListParams struct {
	Labels   []string
	Statuses []models.ExtractionStatus
	Limit    uint64
	Offset   uint64
}

type ExtractionListResult struct {
	Extractions []models.Extraction
	Total       int
}

func (s *ExtractionService) List(ctx context.Context, params ExtractionListParams) (*ExtractionListResult, error) {
	filters := []store.ListOption{
		store.ByLabel(params.Labels...),
		store.ByStatus(params.Statuses...),
	}

	opts := append([]store.ListOption{store.WithDefaultSort()}, filters...)
	if params.Limit > 0 {
		opts = append(opts, store.WithLimit(params.Limit))
	}
	if params.Offset > 0 {
		opts = append(opts, store.WithOffset(params.Offset))
	}

	extractions, err := s.store.Extractions().List(ctx, opts...)
	if err != nil {
		return nil, err
	}

	total, err := s.store.Extractions().Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	return &ExtractionListResult{
		Extractions: extractions,
		Total:       total,
	}, nil
}

func (s *ExtractionService) Get(ctx context.Context, id string) (*models.Extraction, error) {
	return s.store.Extractions().Get(ctx, id)
}

func (s *ExtractionService) PoolStats() pool.Stats {
	return s.pool.Stats()
}

// Export writes the whole history as an XLSX workbook, most recent first.
func (s *ExtractionService) Export(ctx context.Context, w io.Writer) error {
	extractions, err := s.store.Extractions().List(ctx, store.WithDefaultSort())
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			zap.S().Named("extraction_service").Debugw("failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := f.SetColWidth(exportSheet, "A", "A", 38); err != nil {
		return err
	}

	header := []any{"ID", "File", "Status", "Worker", "Duration (ms)", "Created", "Error", "Text"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}

	for i, e := range extractions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			e.ID,
			e.Label,
			string(e.Status),
			e.WorkerID,
			e.Duration.Milliseconds(),
			e.CreatedAt,
			truncate(e.Error),
			truncate(e.Content),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// truncate keeps s within the character limit of a spreadsheet cell.
func truncate(s string) string {
	r := []rune(s)
	if len(r) <= excelize.TotalCellChars {
		return s
	}
	return string(r[:excelize.TotalCellChars])
}
