package handlers

import (
	"github.com/kubev2v/pdf-extractor/internal/services"
)

type Handler struct {
	extractionSrv *services.ExtractionService
	uploadsFolder string
}

func New(extractionSrv *services.ExtractionService, uploadsFolder string) *Handler {
	return &Handler{
		extractionSrv: extractionSrv,
		uploadsFolder: uploadsFolder,
	}
}
