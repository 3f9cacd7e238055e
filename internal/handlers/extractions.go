package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/pdf-extractor/api/v1"
	"github.com/kubev2v/pdf-extractor/internal/models"
	"github.com/kubev2v/pdf-extractor/internal/services"
	srvErrors "github.com/kubev2v/pdf-extractor/pkg/errors"
	"github.com/kubev2v/pdf-extractor/pkg/pool"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	uploadField     = "pdfs"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// UploadPDFs extracts the text of every uploaded PDF
// (POST /upload)
func (h *Handler) UploadPDFs(c *gin.Context) {
	start := time.Now()

	jobs, err := h.saveUploads(c)
	if err != nil {
		removeUploads(jobs)
		if srvErrors.IsInvalidUploadError(err) {
			c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
			return
		}
		zap.S().Named("extraction_handler").Errorw("failed to save uploads", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to save uploads"})
		return
	}

	zap.S().Named("extraction_handler").Infow("processing uploaded files", "count", len(jobs))

	// uploads stay on disk until every job resolved, even if the client left
	extractions, err := h.extractionSrv.Extract(c.Request.Context(), jobs, func() { removeUploads(jobs) })
	if err != nil {
		zap.S().Named("extraction_handler").Errorw("failed to extract uploads", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: err.Error()})
		return
	}

	results := make([]v1.ExtractionResult, 0, len(extractions))
	for _, e := range extractions {
		results = append(results, v1.NewExtractionResultFromModel(e))
	}

	zap.S().Named("extraction_handler").Infow("uploaded files processed", "count", len(results), "elapsed", time.Since(start))

	c.JSON(http.StatusOK, results)
}

func removeUploads(jobs []pool.Job) {
	for _, job := range jobs {
		if err := os.Remove(job.Locator); err != nil && !os.IsNotExist(err) {
			zap.S().Named("extraction_handler").Warnw("failed to remove upload", "path", job.Locator, "error", err)
		}
	}
}

// saveUploads stores every uploaded file in the uploads folder and returns
// one job per file. Jobs already saved are returned alongside an error so
// the caller can remove them.
func (h *Handler) saveUploads(c *gin.Context) ([]pool.Job, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, srvErrors.NewInvalidUploadError("no files were uploaded")
	}

	files := form.File[uploadField]
	if len(files) == 0 {
		return nil, srvErrors.NewInvalidUploadError("no files were uploaded")
	}
	for _, file := range files {
		if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
			return nil, srvErrors.NewInvalidUploadError("%s is not a PDF file", file.Filename)
		}
	}

	if err := os.MkdirAll(h.uploadsFolder, 0o750); err != nil {
		return nil, err
	}

	jobs := make([]pool.Job, 0, len(files))
	for _, file := range files {
		path := filepath.Join(h.uploadsFolder, uuid.NewString()+".pdf")
		if err := c.SaveUploadedFile(file, path); err != nil {
			return jobs, fmt.Errorf("failed to save %s: %w", file.Filename, err)
		}
		jobs = append(jobs, pool.Job{Locator: path, Label: file.Filename})
	}

	return jobs, nil
}

// ListExtractions returns the extraction history with filtering and pagination
// (GET /extractions)
func (h *Handler) ListExtractions(c *gin.Context, params v1.ListExtractionsParams) {
	page := 1
	if params.Page != nil {
		page = *params.Page
	}
	pageSize := defaultPageSize
	if params.PageSize != nil {
		pageSize = min(*params.PageSize, maxPageSize)
	}

	svcParams := services.ExtractionListParams{
		Limit:  uint64(pageSize),
		Offset: uint64((page - 1) * pageSize),
	}
	if params.Label != nil {
		svcParams.Labels = []string{*params.Label}
	}
	if params.Status != nil {
		status, err := models.ParseExtractionStatus(*params.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
			return
		}
		svcParams.Statuses = []models.ExtractionStatus{status}
	}

	result, err := h.extractionSrv.List(c.Request.Context(), svcParams)
	if err != nil {
		zap.S().Named("extraction_handler").Errorw("failed to list extractions", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to list extractions"})
		return
	}

	pageCount := (result.Total + pageSize - 1) / pageSize
	if pageCount == 0 {
		pageCount = 1
	}

	apiExtractions := make([]v1.Extraction, 0, len(result.Extractions))
	for _, e := range result.Extractions {
		apiExtractions = append(apiExtractions, v1.NewExtractionFromModel(e))
	}

	c.JSON(http.StatusOK, v1.ExtractionListResponse{
		Page:        page,
		PageCount:   pageCount,
		Total:       result.Total,
		Extractions: apiExtractions,
	})
}

// GetExtraction returns one recorded extraction
// (GET /extractions/:id)
func (h *Handler) GetExtraction(c *gin.Context, id string) {
	e, err := h.extractionSrv.Get(c.Request.Context(), id)
	if err != nil {
		if srvErrors.IsResourceNotFoundError(err) {
			c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: err.Error()})
			return
		}
		zap.S().Named("extraction_handler").Errorw("failed to get extraction", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to get extraction"})
		return
	}

	c.JSON(http.StatusOK, v1.NewExtractionFromModel(*e))
}

// ExportExtractions returns the extraction history as an XLSX workbook
// (GET /extractions/export)
func (h *Handler) ExportExtractions(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.extractionSrv.Export(c.Request.Context(), &buf); err != nil {
		zap.S().Named("extraction_handler").Errorw("failed to export extractions", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to export extractions"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="extractions.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetPoolStatus returns a snapshot of the worker pool
// (GET /pool)
func (h *Handler) GetPoolStatus(c *gin.Context) {
	c.JSON(http.StatusOK, v1.NewPoolStatus(h.extractionSrv.PoolStats()))
}
