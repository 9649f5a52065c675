package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-lapipa/lawton-engine/internal/model"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 2}, []float32{-1, -2}), 1e-9)
	assert.True(t, math.IsNaN(Cosine([]float32{0, 0}, []float32{1, 0})))
}

func TestCosine_Symmetric(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 2, 3}, {4, 5, 6}},
		{{0.3, -0.7}, {0.9, 0.1}},
		{{1, 0, 0, 1}, {0, 1, 1, 0}},
	}
	for _, p := range pairs {
		assert.Equal(t, Cosine(p[0], p[1]), Cosine(p[1], p[0]))
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 1, ClampLimit(-3))
	assert.Equal(t, 1, ClampLimit(0))
	assert.Equal(t, 8, ClampLimit(8))
	assert.Equal(t, 50, ClampLimit(51))
}

func candidate(id uint64, vec ...float32) *model.Chunk {
	return &model.Chunk{ChunkID: id, Text: fmt.Sprintf("chunk %d", id), Embedding: vec}
}

func TestRank_OrdersByScore(t *testing.T) {
	query := []float32{1, 0}
	candidates := []*model.Chunk{
		candidate(1, 0, 1),
		candidate(2, 1, 0),
		candidate(3, 1, 1),
	}

	results := Rank(query, candidates, 10)

	require.Len(t, results, 3)
	assert.Equal(t, []uint64{2, 3, 1}, []uint64{results[0].ChunkID, results[1].ChunkID, results[2].ChunkID})
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestRank_LengthAndMonotonic(t *testing.T) {
	var candidates []*model.Chunk
	for i := 0; i < 80; i++ {
		candidates = append(candidates, candidate(uint64(i), float32(i%7), float32(i%5)+1))
	}

	for _, limit := range []int{-1, 0, 1, 8, 50, 100} {
		results := Rank([]float32{1, 1}, candidates, limit)
		want := ClampLimit(limit)
		if want > len(candidates) {
			want = len(candidates)
		}
		require.Len(t, results, want, "limit %d", limit)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	}
}

func TestRank_FewerCandidatesThanLimit(t *testing.T) {
	results := Rank([]float32{1}, []*model.Chunk{candidate(1, 1), candidate(2, 2)}, 8)
	assert.Len(t, results, 2)
}

func TestRank_SkipsUnusableEmbeddings(t *testing.T) {
	candidates := []*model.Chunk{
		candidate(1),
		candidate(2, 1, 0, 0),
		candidate(3, 0, 0),
		nil,
		candidate(4, 1, 1),
	}

	results := Rank([]float32{1, 0}, candidates, 10)

	require.Len(t, results, 1)
	assert.Equal(t, uint64(4), results[0].ChunkID)
}

func TestRank_StableTies(t *testing.T) {
	candidates := []*model.Chunk{candidate(5, 2, 0), candidate(6, 1, 0), candidate(7, 3, 0)}

	results := Rank([]float32{1, 0}, candidates, 3)

	assert.Equal(t, []uint64{5, 6, 7}, []uint64{results[0].ChunkID, results[1].ChunkID, results[2].ChunkID})
}

func TestRank_ResultsCarryNoVector(t *testing.T) {
	results := Rank([]float32{1, 0}, []*model.Chunk{candidate(1, 1, 0)}, 1)

	raw, err := json.Marshal(results)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "embedding")
}

type fakeChunkRepo struct {
	chunks    []*model.Chunk
	lastLimit int
	err       error
}

func (f *fakeChunkRepo) Create(_ context.Context, c *model.Chunk) error {
	c.ChunkID = uint64(len(f.chunks) + 1)
	f.chunks = append(f.chunks, c)
	return nil
}

func (f *fakeChunkRepo) Scan(_ context.Context, filter model.ChunkFilter, limit int) ([]*model.Chunk, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	var out []*model.Chunk
	for _, c := range f.chunks {
		if filter.Matches(c) && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestScanRetriever_FiltersAndCaps(t *testing.T) {
	repo := &fakeChunkRepo{}
	for i := 0; i < 300; i++ {
		cefr := "A2"
		if i%2 == 0 {
			cefr = "B1"
		}
		_ = repo.Create(context.Background(), &model.Chunk{CEFR: cefr, Topic: "verbs", Embedding: []float32{1, float32(i)}})
	}

	r := NewScanRetriever(repo, 0)
	results, err := r.Retrieve(context.Background(), []float32{1, 0}, model.ChunkFilter{CEFR: "A2", Topic: "verbs"}, 20)
	require.NoError(t, err)

	assert.Equal(t, DefaultCandidateCap, repo.lastLimit)
	assert.Len(t, results, 20)
	for _, res := range results {
		assert.Equal(t, "A2", res.CEFR)
		assert.Equal(t, "verbs", res.Topic)
	}
}

func TestScanRetriever_StoreError(t *testing.T) {
	r := NewScanRetriever(&fakeChunkRepo{err: errors.New("db down")}, 200)

	_, err := r.Retrieve(context.Background(), []float32{1}, model.ChunkFilter{}, 8)
	assert.ErrorContains(t, err, "db down")
}

func newESRetriever(t *testing.T, handler http.HandlerFunc) *ESRetriever {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewESRetriever(client, "lawton_chunks", 200)
}

func TestESRetriever_Retrieve(t *testing.T) {
	var sent map[string]interface{}
	r := newESRetriever(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/lawton_chunks/_search", req.URL.Path)
		require.NoError(t, json.NewDecoder(req.Body).Decode(&sent))
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":{"hits":[
			{"_score":1.0,"_source":{"chunk_id":1,"doc_id":9,"text":"a","cefr":"A2"}},
			{"_score":0.75,"_source":{"chunk_id":2,"doc_id":9,"text":"b","cefr":"A2"}}
		]}}`))
	})

	results, err := r.Retrieve(context.Background(), []float32{1, 0}, model.ChunkFilter{CEFR: "A2"}, 8)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.5, results[1].Score, 1e-9)
	assert.Equal(t, uint64(9), results[1].DocID)

	knn := sent["knn"].(map[string]interface{})
	assert.Equal(t, float64(8), knn["k"])
	assert.Equal(t, float64(200), knn["num_candidates"])
	filter := knn["filter"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	require.Len(t, filter, 1)
	assert.Equal(t, map[string]interface{}{"term": map[string]interface{}{"cefr": "A2"}}, filter[0])
}

func TestESRetriever_NoFilterOmitsClause(t *testing.T) {
	r := NewESRetriever(nil, "idx", 200)

	q := r.buildKNNQuery([]float32{1}, model.ChunkFilter{}, 5)

	knn := q["knn"].(map[string]interface{})
	assert.NotContains(t, knn, "filter")
	assert.Equal(t, 5, q["size"])
}

func TestESRetriever_ErrorStatus(t *testing.T) {
	r := newESRetriever(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	})

	_, err := r.Retrieve(context.Background(), []float32{1}, model.ChunkFilter{}, 8)
	assert.Error(t, err)
}
