package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (POST /upload)
	UploadPDFs(c *gin.Context)
	// (GET /extractions)
	ListExtractions(c *gin.Context, params ListExtractionsParams)
	// (GET /extractions/export)
	ExportExtractions(c *gin.Context)
	// (GET /extractions/:id)
	GetExtraction(c *gin.Context, id string)
	// (GET /pool)
	GetPoolStatus(c *gin.Context)
}

type serverInterfaceWrapper struct {
	handler ServerInterface
}

func (w *serverInterfaceWrapper) ListExtractions(c *gin.Context) {
	var params ListExtractionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query parameters: " + err.Error()})
		return
	}
	w.handler.ListExtractions(c, params)
}

func (w *serverInterfaceWrapper) GetExtraction(c *gin.Context) {
	w.handler.GetExtraction(c, c.Param("id"))
}

// RegisterHandlers adds each server route to the router.
func RegisterHandlers(router gin.IRoutes, si ServerInterface) {
	w := &serverInterfaceWrapper{handler: si}

	router.POST("/upload", si.UploadPDFs)
	router.GET("/extractions", w.ListExtractions)
	router.GET("/extractions/export", si.ExportExtractions)
	router.GET("/extractions/:id", w.GetExtraction)
	router.GET("/pool", si.GetPoolStatus)
}
