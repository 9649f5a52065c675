// Package pipeline runs queued ingestion tasks.
package pipeline

import (
	"context"
	"errors"

	"github.com/alex-lapipa/lawton-engine/internal/service"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
	"github.com/alex-lapipa/lawton-engine/pkg/tasks"
)

// Processor feeds queued tasks through the ingestion service.
type Processor struct {
	ingestService service.IngestService
}

// NewProcessor creates a new Processor.
func NewProcessor(ingestService service.IngestService) *Processor {
	return &Processor{ingestService: ingestService}
}

// Process ingests one task. Validation failures are marked tasks.ErrPermanent.
func (p *Processor) Process(ctx context.Context, task tasks.IngestTask) error {
	log.Infof("[Processor] processing queued task %s, path: %s", task.Key(), task.Request.Path)

	res, err := p.ingestService.Ingest(ctx, task.Request)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			log.Warnf("[Processor] dropping invalid task %s: %s", task.Key(), verr.Message)
			return errors.Join(tasks.ErrPermanent, err)
		}
		log.Errorf("[Processor] task %s failed: %v", task.Key(), err)
		return err
	}

	log.Infof("[Processor] task %s done, doc_id: %d, chunks_inserted: %d", task.Key(), res.DocID, res.ChunksInserted)
	return nil
}
