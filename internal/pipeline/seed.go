package pipeline

import (
	"context"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alex-lapipa/lawton-engine/internal/model"
	"github.com/alex-lapipa/lawton-engine/internal/repository"
	"github.com/alex-lapipa/lawton-engine/internal/service"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

// SeedPrefix is prepended to the relative path of every seeded document.
const SeedPrefix = "seed/"

// SeedImporter ingests the files of a local directory once.
type SeedImporter struct {
	docRepo       repository.DocumentRepository
	ingestService service.IngestService
}

// NewSeedImporter creates a new SeedImporter.
func NewSeedImporter(docRepo repository.DocumentRepository, ingestService service.IngestService) *SeedImporter {
	return &SeedImporter{docRepo: docRepo, ingestService: ingestService}
}

// Import walks dir and ingests every regular, non-empty file whose
// document path is not registered yet. It returns how many were ingested.
// Per-file failures are logged and skipped.
func (s *SeedImporter) Import(ctx context.Context, dir string) int {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("[SeedImporter] directory '%s' not available, skipping seed import", dir)
		return 0
	}

	imported := 0
	walkErr := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !d.Type().IsRegular() {
			return nil
		}

		req, ok := s.seedRequest(ctx, dir, p)
		if !ok {
			return nil
		}
		res, err := s.ingestService.Ingest(ctx, req)
		if err != nil {
			log.Warnf("[SeedImporter] failed to ingest %s: %v", p, err)
			return nil
		}
		imported++
		log.Infof("[SeedImporter] imported %s as doc_id %d (%d chunks)", req.Path, res.DocID, res.ChunksInserted)
		return nil
	})
	if walkErr != nil {
		log.Warnf("[SeedImporter] walk of '%s' stopped: %v", dir, walkErr)
	}
	return imported
}

func (s *SeedImporter) seedRequest(ctx context.Context, dir, p string) (model.IngestRequest, bool) {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return model.IngestRequest{}, false
	}
	docPath := SeedPrefix + filepath.ToSlash(rel)

	existing, err := s.docRepo.FindByPath(ctx, docPath)
	if err != nil {
		log.Warnf("[SeedImporter] lookup of %s failed: %v", docPath, err)
		return model.IngestRequest{}, false
	}
	if existing != nil {
		log.Infof("[SeedImporter] %s already registered, skipping", docPath)
		return model.IngestRequest{}, false
	}

	content, err := os.ReadFile(p)
	if err != nil {
		log.Warnf("[SeedImporter] failed to read %s: %v", p, err)
		return model.IngestRequest{}, false
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		log.Infof("[SeedImporter] empty file skipped: %s", p)
		return model.IngestRequest{}, false
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return model.IngestRequest{
		SharepointURL: "file://" + filepath.ToSlash(abs),
		Path:          docPath,
		Title:         filepath.Base(p),
		MimeType:      mimeType(p),
		Text:          string(content),
	}, true
}

func mimeType(name string) string {
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case "":
		return "application/octet-stream"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
