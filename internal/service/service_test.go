package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-lapipa/lawton-engine/internal/model"
	"github.com/alex-lapipa/lawton-engine/internal/retrieval"
	"github.com/alex-lapipa/lawton-engine/pkg/embedding"
	"github.com/alex-lapipa/lawton-engine/pkg/tasks"
)

type memDocRepo struct {
	byPath map[string]*model.Document
	nextID uint64
	err    error
}

func newMemDocRepo() *memDocRepo {
	return &memDocRepo{byPath: map[string]*model.Document{}}
}

func (r *memDocRepo) Upsert(_ context.Context, path string, attrs model.DocumentAttrs) (uint64, error) {
	if r.err != nil {
		return 0, r.err
	}
	if doc, ok := r.byPath[path]; ok {
		doc.SharepointURL, doc.Title, doc.MimeType = attrs.SharepointURL, attrs.Title, attrs.MimeType
		return doc.DocID, nil
	}
	r.nextID++
	r.byPath[path] = &model.Document{DocID: r.nextID, Path: path, SharepointURL: attrs.SharepointURL, Title: attrs.Title, MimeType: attrs.MimeType}
	return r.nextID, nil
}

func (r *memDocRepo) FindByPath(_ context.Context, path string) (*model.Document, error) {
	return r.byPath[path], nil
}

type memChunkRepo struct {
	chunks   []*model.Chunk
	failFrom int
}

func (r *memChunkRepo) Create(_ context.Context, c *model.Chunk) error {
	if r.failFrom > 0 && len(r.chunks)+1 >= r.failFrom {
		return errors.New("disk full")
	}
	c.ChunkID = uint64(len(r.chunks) + 1)
	r.chunks = append(r.chunks, c)
	return nil
}

func (r *memChunkRepo) Scan(_ context.Context, filter model.ChunkFilter, limit int) ([]*model.Chunk, error) {
	var out []*model.Chunk
	for _, c := range r.chunks {
		if filter.Matches(c) && len(out) < limit {
			out = append(out, c)
		}
	}
	return out, nil
}

// keywordEmbedder maps text onto a fixed three-dimensional space.
type keywordEmbedder struct {
	calls int
	err   error
}

func (e *keywordEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	t := strings.ToLower(text)
	v := []float32{0.01, 0.01, 0.01}
	if strings.Contains(t, "past") {
		v[0] = 1
	}
	if strings.Contains(t, "drill") {
		v[1] = 1
	}
	if strings.Contains(t, "audio") {
		v[2] = 1
	}
	return v, nil
}

func (e *keywordEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.CreateEmbedding(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type recordingIndexer struct {
	ids []uint64
	err error
}

func (i *recordingIndexer) IndexChunk(_ context.Context, c *model.Chunk) error {
	if i.err != nil {
		return i.err
	}
	i.ids = append(i.ids, c.ChunkID)
	return nil
}

type recordingArchive struct {
	docIDs []uint64
	err    error
}

func (a *recordingArchive) Archive(_ context.Context, docID uint64, _, _ string) (string, error) {
	a.docIDs = append(a.docIDs, docID)
	return "documents/x/source.txt", a.err
}

type recordingProducer struct {
	tasks []tasks.IngestTask
	err   error
}

func (p *recordingProducer) ProduceIngestTask(_ context.Context, task tasks.IngestTask) error {
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, task)
	return nil
}

func validIngest() model.IngestRequest {
	return model.IngestRequest{
		SharepointURL: "https://sp.example/doc",
		Path:          "/Courses/B1/unit3.docx",
		Title:         "Unit 3",
		Text:          "Intro\nRule: past simple uses -ed\nDrill: change to the past",
		CEFR:          "B1",
		Skill:         "grammar",
		Tags:          []string{"past"},
	}
}

func TestIngest_MissingFields(t *testing.T) {
	docs := newMemDocRepo()
	embedder := &keywordEmbedder{}
	svc := NewIngestService(docs, &memChunkRepo{}, embedder, 1000, nil, nil, nil)

	for _, mutate := range []func(*model.IngestRequest){
		func(r *model.IngestRequest) { r.Text = "" },
		func(r *model.IngestRequest) { r.SharepointURL = "" },
		func(r *model.IngestRequest) { r.Path = "" },
	} {
		req := validIngest()
		mutate(&req)
		_, err := svc.Ingest(context.Background(), req)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Missing required fields: text, sharepoint_url, path", verr.Message)
	}
	assert.Empty(t, docs.byPath)
	assert.Zero(t, embedder.calls)
}

func TestIngest_StoresChunksWithMetadata(t *testing.T) {
	chunks := &memChunkRepo{}
	indexer := &recordingIndexer{}
	archive := &recordingArchive{}
	svc := NewIngestService(newMemDocRepo(), chunks, &keywordEmbedder{}, 1000, indexer, archive, nil)

	res, err := svc.Ingest(context.Background(), validIngest())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.DocID)
	assert.Equal(t, 3, res.ChunksInserted)

	require.Len(t, chunks.chunks, 3)
	for i, c := range chunks.chunks {
		assert.Equal(t, i, c.OrderInDoc)
		assert.Equal(t, uint64(1), c.DocID)
		assert.Equal(t, "B1", c.CEFR)
		assert.Equal(t, "https://sp.example/doc", c.SharepointURL)
		assert.Len(t, c.Embedding, 3)
	}
	assert.Equal(t, "Rule: past simple uses -ed", chunks.chunks[1].Text)
	assert.Equal(t, []uint64{1, 2, 3}, indexer.ids)
	assert.Equal(t, []uint64{1}, archive.docIDs)
}

func TestIngest_ReingestKeepsDocID(t *testing.T) {
	docs := newMemDocRepo()
	chunks := &memChunkRepo{}
	svc := NewIngestService(docs, chunks, &keywordEmbedder{}, 1000, nil, nil, nil)

	first, err := svc.Ingest(context.Background(), validIngest())
	require.NoError(t, err)

	req := validIngest()
	req.Text = "Only one paragraph now"
	req.Title = "Unit 3 (rev)"
	second, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.DocID, second.DocID)
	assert.Equal(t, 1, second.ChunksInserted)
	assert.Len(t, chunks.chunks, 4)
	assert.Equal(t, "Unit 3 (rev)", docs.byPath[req.Path].Title)
}

func TestIngest_UpsertFailure(t *testing.T) {
	docs := newMemDocRepo()
	docs.err = errors.New("connection refused")
	embedder := &keywordEmbedder{}
	svc := NewIngestService(docs, &memChunkRepo{}, embedder, 1000, nil, nil, nil)

	_, err := svc.Ingest(context.Background(), validIngest())
	var serr *StorageError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Zero(t, embedder.calls)
}

func TestIngest_EmbeddingFailureSurfacesUpstream(t *testing.T) {
	chunks := &memChunkRepo{}
	embedder := &keywordEmbedder{err: &embedding.UpstreamServiceError{StatusCode: 429, Body: "rate limited"}}
	svc := NewIngestService(newMemDocRepo(), chunks, embedder, 1000, nil, nil, nil)

	_, err := svc.Ingest(context.Background(), validIngest())
	var uerr *embedding.UpstreamServiceError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "OpenAI error: rate limited", err.Error())
	assert.Empty(t, chunks.chunks)
}

func TestIngest_PartialFailureKeepsEarlierChunks(t *testing.T) {
	chunks := &memChunkRepo{failFrom: 3}
	svc := NewIngestService(newMemDocRepo(), chunks, &keywordEmbedder{}, 1000, nil, nil, nil)

	_, err := svc.Ingest(context.Background(), validIngest())
	var serr *StorageError
	require.ErrorAs(t, err, &serr)
	assert.Len(t, chunks.chunks, 2)
}

func TestIngest_IndexerFailure(t *testing.T) {
	svc := NewIngestService(newMemDocRepo(), &memChunkRepo{}, &keywordEmbedder{}, 1000, &recordingIndexer{err: errors.New("es down")}, nil, nil)

	_, err := svc.Ingest(context.Background(), validIngest())
	var serr *StorageError
	assert.ErrorAs(t, err, &serr)
}

func TestIngest_ArchiveFailureIsIgnored(t *testing.T) {
	svc := NewIngestService(newMemDocRepo(), &memChunkRepo{}, &keywordEmbedder{}, 1000, nil, &recordingArchive{err: errors.New("bucket gone")}, nil)

	res, err := svc.Ingest(context.Background(), validIngest())
	require.NoError(t, err)
	assert.Equal(t, 3, res.ChunksInserted)
}

func TestEnqueue(t *testing.T) {
	producer := &recordingProducer{}
	svc := NewIngestService(newMemDocRepo(), &memChunkRepo{}, &keywordEmbedder{}, 1000, nil, nil, producer)

	require.NoError(t, svc.Enqueue(context.Background(), validIngest()))
	require.Len(t, producer.tasks, 1)
	assert.Equal(t, "/Courses/B1/unit3.docx", producer.tasks[0].PartitionKey())
	assert.NotEmpty(t, producer.tasks[0].TaskID)
	assert.Equal(t, producer.tasks[0].TaskID, producer.tasks[0].Key())

	require.NoError(t, svc.Enqueue(context.Background(), validIngest()))
	require.Len(t, producer.tasks, 2)
	assert.NotEqual(t, producer.tasks[0].Key(), producer.tasks[1].Key())

	bad := validIngest()
	bad.Path = ""
	var verr *ValidationError
	assert.ErrorAs(t, svc.Enqueue(context.Background(), bad), &verr)
	assert.Len(t, producer.tasks, 2)
}

func TestEnqueue_Disabled(t *testing.T) {
	svc := NewIngestService(newMemDocRepo(), &memChunkRepo{}, &keywordEmbedder{}, 1000, nil, nil, nil)
	assert.ErrorIs(t, svc.Enqueue(context.Background(), validIngest()), ErrQueueDisabled)
}

type stubRetriever struct {
	gotLimit int
	results  []model.RetrievalResult
	err      error
}

func (r *stubRetriever) Retrieve(_ context.Context, _ []float32, _ model.ChunkFilter, limit int) ([]model.RetrievalResult, error) {
	r.gotLimit = limit
	return r.results, r.err
}

func intPtr(n int) *int { return &n }

func TestRetrieve_MissingQuery(t *testing.T) {
	embedder := &keywordEmbedder{}
	svc := NewRetrievalService(embedder, &stubRetriever{}, 8)

	_, err := svc.Retrieve(context.Background(), model.RetrieveRequest{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Missing 'query'", verr.Message)
	assert.Zero(t, embedder.calls)
}

func TestRetrieve_LimitHandling(t *testing.T) {
	cases := []struct {
		name  string
		limit *int
		want  int
	}{
		{"absent", nil, 8},
		{"zero", intPtr(0), 1},
		{"negative", intPtr(-4), 1},
		{"in range", intPtr(12), 12},
		{"too large", intPtr(500), 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &stubRetriever{}
			svc := NewRetrievalService(&keywordEmbedder{}, r, 0)
			_, err := svc.Retrieve(context.Background(), model.RetrieveRequest{Query: "q", Limit: tc.limit})
			require.NoError(t, err)
			assert.Equal(t, tc.want, r.gotLimit)
		})
	}
}

func TestRetrieve_EmptyResultIsNotNil(t *testing.T) {
	svc := NewRetrievalService(&keywordEmbedder{}, &stubRetriever{}, 8)
	res, err := svc.Retrieve(context.Background(), model.RetrieveRequest{Query: "q"})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestRetrieve_Errors(t *testing.T) {
	upstream := &embedding.UpstreamServiceError{StatusCode: 500, Body: "boom"}
	_, err := NewRetrievalService(&keywordEmbedder{err: upstream}, &stubRetriever{}, 8).
		Retrieve(context.Background(), model.RetrieveRequest{Query: "q"})
	assert.ErrorIs(t, err, upstream)

	_, err = NewRetrievalService(&keywordEmbedder{}, &stubRetriever{err: errors.New("scan failed")}, 8).
		Retrieve(context.Background(), model.RetrieveRequest{Query: "q"})
	var serr *StorageError
	assert.ErrorAs(t, err, &serr)
}

func TestIngestThenRetrieve(t *testing.T) {
	chunks := &memChunkRepo{}
	embedder := &keywordEmbedder{}
	ingest := NewIngestService(newMemDocRepo(), chunks, embedder, 1000, nil, nil, nil)
	_, err := ingest.Ingest(context.Background(), validIngest())
	require.NoError(t, err)

	other := validIngest()
	other.Path = "/Courses/A2/unit1.docx"
	other.CEFR = "A2"
	other.Text = "Audio: listen and repeat"
	_, err = ingest.Ingest(context.Background(), other)
	require.NoError(t, err)

	svc := NewRetrievalService(embedder, retrieval.NewScanRetriever(chunks, 200), 8)
	res, err := svc.Retrieve(context.Background(), model.RetrieveRequest{
		Query:   "past tense drill",
		Filters: model.ChunkFilter{CEFR: "B1"},
		Limit:   intPtr(2),
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Drill: change to the past", res[0].Text)
	assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
	for _, r := range res {
		assert.Equal(t, "B1", r.CEFR)
	}
}
