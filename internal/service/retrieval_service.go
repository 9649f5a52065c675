package service

import (
	"context"

	"github.com/alex-lapipa/lawton-engine/internal/model"
	"github.com/alex-lapipa/lawton-engine/internal/retrieval"
	"github.com/alex-lapipa/lawton-engine/pkg/embedding"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

// DefaultLimit is used when a retrieval request carries no limit.
const DefaultLimit = 8

// RetrievalService answers free-text queries with ranked chunks.
type RetrievalService interface {
	Retrieve(ctx context.Context, req model.RetrieveRequest) ([]model.RetrievalResult, error)
}

type retrievalService struct {
	embeddingClient embedding.Client
	retriever       retrieval.Retriever
	defaultLimit    int
}

// NewRetrievalService creates a RetrievalService. A non-positive defaultLimit uses DefaultLimit.
func NewRetrievalService(embeddingClient embedding.Client, retriever retrieval.Retriever, defaultLimit int) RetrievalService {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &retrievalService{
		embeddingClient: embeddingClient,
		retriever:       retriever,
		defaultLimit:    defaultLimit,
	}
}

// Retrieve embeds the query once, then delegates to the retriever.
// An absent limit takes the default; any given limit is clamped to [1, 50].
func (s *retrievalService) Retrieve(ctx context.Context, req model.RetrieveRequest) ([]model.RetrievalResult, error) {
	if req.Query == "" {
		return nil, &ValidationError{Message: "Missing 'query'"}
	}
	limit := s.defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	limit = retrieval.ClampLimit(limit)
	log.Infof("[RetrievalService] query_len: %d, limit: %d, filters: %+v", len(req.Query), limit, req.Filters)

	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, req.Query)
	if err != nil {
		log.Errorf("[RetrievalService] query embedding failed: %v", err)
		return nil, err
	}

	results, err := s.retriever.Retrieve(ctx, queryVector, req.Filters, limit)
	if err != nil {
		log.Errorf("[RetrievalService] retriever failed: %v", err)
		return nil, &StorageError{Op: "retrieve chunks", Err: err}
	}
	if results == nil {
		results = []model.RetrievalResult{}
	}
	return results, nil
}
