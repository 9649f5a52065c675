package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alex-lapipa/lawton-engine/internal/model"
	"github.com/alex-lapipa/lawton-engine/internal/service"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

// IndexHandler serves document ingestion.
type IndexHandler struct {
	ingestService service.IngestService
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(ingestService service.IngestService) *IndexHandler {
	return &IndexHandler{ingestService: ingestService}
}

// Index ingests one document synchronously.
func (h *IndexHandler) Index(c *gin.Context) {
	req, err := bindBody[model.IngestRequest](c)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.ingestService.Ingest(c.Request.Context(), req)
	if err != nil {
		log.Errorf("[IndexHandler] ingestion failed, path: %s, error: %v", req.Path, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"doc_id":          res.DocID,
		"chunks_inserted": res.ChunksInserted,
	})
}

// IndexAsync queues one document for background ingestion.
func (h *IndexHandler) IndexAsync(c *gin.Context) {
	req, err := bindBody[model.IngestRequest](c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.ingestService.Enqueue(c.Request.Context(), req); err != nil {
		log.Errorf("[IndexHandler] enqueue failed, path: %s, error: %v", req.Path, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true, "queued": true})
}
