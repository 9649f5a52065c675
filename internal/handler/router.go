package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/alex-lapipa/lawton-engine/internal/middleware"
	"github.com/alex-lapipa/lawton-engine/internal/service"
)

// RouterOptions selects the optional surfaces of the API.
type RouterOptions struct {
	ServiceKey   string
	AsyncEnabled bool
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(ingestService service.IngestService, retrievalService service.RetrievalService, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoMethod(MethodNotAllowed)
	r.Use(middleware.RequestLogger(), gin.Recovery())

	indexHandler := NewIndexHandler(ingestService)
	api := r.Group("/api")
	{
		index := api.Group("/index")
		index.Use(middleware.ServiceKeyAuth(opts.ServiceKey))
		{
			index.POST("", indexHandler.Index)
			if opts.AsyncEnabled {
				index.POST("/async", indexHandler.IndexAsync)
			}
		}

		api.POST("/retrieve", NewRetrieveHandler(retrievalService).Retrieve)
	}
	return r
}
