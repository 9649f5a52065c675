package retrieval

import (
	"context"
	"fmt"

	"github.com/alex-lapipa/lawton-engine/internal/model"
	"github.com/alex-lapipa/lawton-engine/internal/repository"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

// DefaultCandidateCap bounds how many filtered chunks are scored per query.
const DefaultCandidateCap = 200

// Retriever returns the chunks closest to a query vector among those matching filter.
type Retriever interface {
	Retrieve(ctx context.Context, query []float32, filter model.ChunkFilter, limit int) ([]model.RetrievalResult, error)
}

// ScanRetriever loads a capped, filtered candidate set from the chunk store
// and ranks it in memory.
type ScanRetriever struct {
	chunks       repository.ChunkRepository
	candidateCap int
}

// NewScanRetriever creates a ScanRetriever. A non-positive cap uses DefaultCandidateCap.
func NewScanRetriever(chunks repository.ChunkRepository, candidateCap int) *ScanRetriever {
	if candidateCap <= 0 {
		candidateCap = DefaultCandidateCap
	}
	return &ScanRetriever{chunks: chunks, candidateCap: candidateCap}
}

func (r *ScanRetriever) Retrieve(ctx context.Context, query []float32, filter model.ChunkFilter, limit int) ([]model.RetrievalResult, error) {
	candidates, err := r.chunks.Scan(ctx, filter, r.candidateCap)
	if err != nil {
		return nil, fmt.Errorf("failed to scan candidate chunks: %w", err)
	}
	results := Rank(query, candidates, limit)
	log.Infof("[ScanRetriever] scored %d candidates, returning %d", len(candidates), len(results))
	return results, nil
}
