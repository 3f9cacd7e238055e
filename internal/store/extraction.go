package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/kubev2v/pdf-extractor/internal/models"
	srvErrors "github.com/kubev2v/pdf-extractor/pkg/errors"
)

const extractionsTable = "extractions"

var extractionColumns = []string{
	"id",
	"label",
	"worker_id",
	"status",
	"content",
	"error",
	"duration_ms",
	"created_at",
}

type ExtractionStore struct {
	db QueryInterceptor
}

func NewExtractionStore(db QueryInterceptor) *ExtractionStore {
	return &ExtractionStore{db: db}
}

func (s *ExtractionStore) Save(ctx context.Context, e models.Extraction) error {
	query, args, err := sq.Insert(extractionsTable).
		Columns(extractionColumns...).
		Values(
			e.ID,
			e.Label,
			nullString(e.WorkerID),
			string(e.Status),
			nullString(e.Content),
			nullString(e.Error),
			e.Duration.Milliseconds(),
			e.CreatedAt,
		).ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *ExtractionStore) Get(ctx context.Context, id string) (*models.Extraction, error) {
	query, args, err := sq.Select(extractionColumns...).
		From(extractionsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	e, err := scanExtraction(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srvErrors.NewExtractionNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *ExtractionStore) List(ctx context.Context, opts ...ListOption) ([]models.Extraction, error) {
	builder := sq.Select(extractionColumns...).From(extractionsTable)

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var extractions []models.Extraction
	for rows.Next() {
		e, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		extractions = append(extractions, e)
	}

	return extractions, rows.Err()
}

func (s *ExtractionStore) Count(ctx context.Context, opts ...ListOption) (int, error) {
	builder := sq.Select("COUNT(*)").From(extractionsTable)

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

type ListOption func(sq.SelectBuilder) sq.SelectBuilder

func ByLabel(labels ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(labels) == 0 {
			return b
		}
		return b.Where(sq.Eq{"label": labels})
	}
}

func ByStatus(statuses ...models.ExtractionStatus) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(statuses) == 0 {
			return b
		}
		values := make([]string, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, string(s))
		}
		return b.Where(sq.Eq{"status": values})
	}
}

func ByWorker(workerID string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"worker_id": workerID})
	}
}

func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(limit)
	}
}

func WithOffset(offset uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Offset(offset)
	}
}

// WithDefaultSort lists the most recent extractions first.
func WithDefaultSort() ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.OrderBy("created_at DESC", "id")
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExtraction(row scanner) (models.Extraction, error) {
	var (
		e          models.Extraction
		status     string
		workerID   sql.NullString
		content    sql.NullString
		errMessage sql.NullString
		durationMs int64
	)
	err := row.Scan(
		&e.ID,
		&e.Label,
		&workerID,
		&status,
		&content,
		&errMessage,
		&durationMs,
		&e.CreatedAt,
	)
	if err != nil {
		return models.Extraction{}, err
	}

	e.WorkerID = workerID.String
	e.Status = models.ExtractionStatus(status)
	e.Content = content.String
	e.Error = errMessage.String
	e.Duration = time.Duration(durationMs) * time.Millisecond
	return e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
