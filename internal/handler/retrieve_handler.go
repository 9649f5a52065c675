package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alex-lapipa/lawton-engine/internal/model"
	"github.com/alex-lapipa/lawton-engine/internal/service"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

// RetrieveHandler serves similarity search over stored chunks.
type RetrieveHandler struct {
	retrievalService service.RetrievalService
}

// NewRetrieveHandler creates a new RetrieveHandler.
func NewRetrieveHandler(retrievalService service.RetrievalService) *RetrieveHandler {
	return &RetrieveHandler{retrievalService: retrievalService}
}

// Retrieve returns the chunks most similar to the query.
func (h *RetrieveHandler) Retrieve(c *gin.Context) {
	req, err := bindBody[model.RetrieveRequest](c)
	if err != nil {
		writeError(c, err)
		return
	}

	results, err := h.retrievalService.Retrieve(c.Request.Context(), req)
	if err != nil {
		log.Errorf("[RetrieveHandler] retrieval failed: %v", err)
		writeError(c, err)
		return
	}
	log.Infof("[RetrieveHandler] returning %d results", len(results))
	c.JSON(http.StatusOK, gin.H{"results": results})
}
