package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/alex-lapipa/lawton-engine/internal/model"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

// ESRetriever answers queries with a filtered kNN search on the chunk mirror index.
type ESRetriever struct {
	client       *elasticsearch.Client
	indexName    string
	candidateCap int
}

// NewESRetriever creates an ESRetriever. A non-positive cap uses DefaultCandidateCap.
func NewESRetriever(client *elasticsearch.Client, indexName string, candidateCap int) *ESRetriever {
	if candidateCap <= 0 {
		candidateCap = DefaultCandidateCap
	}
	return &ESRetriever{client: client, indexName: indexName, candidateCap: candidateCap}
}

// buildKNNQuery turns the filter into term clauses inside the kNN pre-filter.
func (r *ESRetriever) buildKNNQuery(query []float32, filter model.ChunkFilter, limit int) map[string]interface{} {
	terms := make([]map[string]interface{}, 0, 4)
	for _, p := range filter.Predicates() {
		terms = append(terms, map[string]interface{}{
			"term": map[string]interface{}{p.Column: p.Value},
		})
	}

	numCandidates := r.candidateCap
	if numCandidates < limit {
		numCandidates = limit
	}
	knn := map[string]interface{}{
		"field":          "vector",
		"query_vector":   query,
		"k":              limit,
		"num_candidates": numCandidates,
	}
	if len(terms) > 0 {
		knn["filter"] = map[string]interface{}{
			"bool": map[string]interface{}{"filter": terms},
		}
	}

	return map[string]interface{}{
		"knn":     knn,
		"size":    limit,
		"_source": map[string]interface{}{"excludes": []string{"vector"}},
	}
}

func (r *ESRetriever) Retrieve(ctx context.Context, query []float32, filter model.ChunkFilter, limit int) ([]model.RetrievalResult, error) {
	limit = ClampLimit(limit)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(r.buildKNNQuery(query, filter, limit)); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.indexName),
		r.client.Search.WithBody(&buf),
	)
	if err != nil {
		log.Errorf("[ESRetriever] search request failed: %v", err)
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		log.Errorf("[ESRetriever] elasticsearch returned %s: %s", res.Status(), string(body))
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.Status())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source model.EsChunk `json:"_source"`
				Score  float64       `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]model.RetrievalResult, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		// dense_vector cosine scores are (1 + cos) / 2.
		results = append(results, hit.Source.ToResult(2*hit.Score-1))
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
