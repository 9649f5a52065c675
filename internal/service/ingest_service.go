package service

import (
	"context"
	"errors"

	"github.com/alex-lapipa/lawton-engine/internal/model"
	"github.com/alex-lapipa/lawton-engine/internal/repository"
	"github.com/alex-lapipa/lawton-engine/pkg/chunker"
	"github.com/alex-lapipa/lawton-engine/pkg/embedding"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
	"github.com/alex-lapipa/lawton-engine/pkg/tasks"
)

const missingIngestFields = "Missing required fields: text, sharepoint_url, path"

// ChunkIndexer mirrors stored chunks into a search index.
type ChunkIndexer interface {
	IndexChunk(ctx context.Context, chunk *model.Chunk) error
}

// SourceArchiver keeps the raw text of an ingestion.
type SourceArchiver interface {
	Archive(ctx context.Context, docID uint64, path, text string) (string, error)
}

// TaskProducer publishes queued ingestion tasks.
type TaskProducer interface {
	ProduceIngestTask(ctx context.Context, task tasks.IngestTask) error
}

// IngestService registers documents and stores their embedded chunks.
type IngestService interface {
	// Ingest runs the whole pipeline synchronously. A failure part way
	// leaves the chunks stored so far in place.
	Ingest(ctx context.Context, req model.IngestRequest) (*model.IngestResult, error)
	// Enqueue validates req and hands it to the ingestion queue.
	Enqueue(ctx context.Context, req model.IngestRequest) error
}

type ingestService struct {
	docRepo         repository.DocumentRepository
	chunkRepo       repository.ChunkRepository
	embeddingClient embedding.Client
	maxChunkSize    int
	indexer         ChunkIndexer
	archive         SourceArchiver
	producer        TaskProducer
}

// NewIngestService creates an IngestService. indexer, archive and producer may be nil.
func NewIngestService(
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	embeddingClient embedding.Client,
	maxChunkSize int,
	indexer ChunkIndexer,
	archive SourceArchiver,
	producer TaskProducer,
) IngestService {
	return &ingestService{
		docRepo:         docRepo,
		chunkRepo:       chunkRepo,
		embeddingClient: embeddingClient,
		maxChunkSize:    maxChunkSize,
		indexer:         indexer,
		archive:         archive,
		producer:        producer,
	}
}

func validateIngest(req model.IngestRequest) error {
	if req.Text == "" || req.SharepointURL == "" || req.Path == "" {
		return &ValidationError{Message: missingIngestFields}
	}
	return nil
}

func (s *ingestService) Ingest(ctx context.Context, req model.IngestRequest) (*model.IngestResult, error) {
	if err := validateIngest(req); err != nil {
		return nil, err
	}
	log.Infof("[IngestService] ingesting path: %s, text_len: %d", req.Path, len(req.Text))

	docID, err := s.docRepo.Upsert(ctx, req.Path, req.Attrs())
	if err != nil {
		log.Errorf("[IngestService] document upsert failed, path: %s, error: %v", req.Path, err)
		return nil, &StorageError{Op: "upsert document", Err: err}
	}
	if docID == 0 {
		return nil, &StorageError{Op: "upsert document", Err: errors.New("no doc_id returned")}
	}

	if s.archive != nil {
		if object, err := s.archive.Archive(ctx, docID, req.Path, req.Text); err != nil {
			log.Warnf("[IngestService] source archive failed, doc_id: %d, error: %v", docID, err)
		} else {
			log.Infof("[IngestService] source archived at %s", object)
		}
	}

	pieces := chunker.Split(req.Text, s.maxChunkSize)
	log.Infof("[IngestService] doc_id: %d split into %d chunks", docID, len(pieces))

	meta := req.Metadata()
	inserted := 0
	for _, piece := range pieces {
		vector, err := s.embeddingClient.CreateEmbedding(ctx, piece.Text)
		if err != nil {
			log.Errorf("[IngestService] embedding failed at chunk %d, %d/%d stored: %v", piece.OrderInDoc, inserted, len(pieces), err)
			return nil, err
		}

		chunk := &model.Chunk{
			DocID:         docID,
			Text:          piece.Text,
			Embedding:     vector,
			Topic:         meta.Topic,
			CEFR:          meta.CEFR,
			Skill:         meta.Skill,
			Format:        meta.Format,
			Difficulty:    meta.Difficulty,
			Tags:          meta.Tags,
			ErrorPatterns: meta.ErrorPatterns,
			Section:       piece.Section,
			OrderInDoc:    piece.OrderInDoc,
			SharepointURL: req.SharepointURL,
		}
		if err := s.chunkRepo.Create(ctx, chunk); err != nil {
			log.Errorf("[IngestService] chunk insert failed at chunk %d, %d/%d stored: %v", piece.OrderInDoc, inserted, len(pieces), err)
			return nil, &StorageError{Op: "insert chunk", Err: err}
		}
		if s.indexer != nil {
			if err := s.indexer.IndexChunk(ctx, chunk); err != nil {
				log.Errorf("[IngestService] chunk %d index failed: %v", chunk.ChunkID, err)
				return nil, &StorageError{Op: "index chunk", Err: err}
			}
		}
		inserted++
	}

	log.Infof("[IngestService] ingestion done, doc_id: %d, chunks_inserted: %d", docID, inserted)
	return &model.IngestResult{DocID: docID, ChunksInserted: inserted}, nil
}

func (s *ingestService) Enqueue(ctx context.Context, req model.IngestRequest) error {
	if err := validateIngest(req); err != nil {
		return err
	}
	if s.producer == nil {
		return ErrQueueDisabled
	}
	task := tasks.NewIngestTask(req)
	if err := s.producer.ProduceIngestTask(ctx, task); err != nil {
		log.Errorf("[IngestService] failed to queue path %s: %v", req.Path, err)
		return err
	}
	log.Infof("[IngestService] queued path: %s, task_id: %s", req.Path, task.TaskID)
	return nil
}
