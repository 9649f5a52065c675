// Package repository implements persistence for documents, chunks and retry counters.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alex-lapipa/lawton-engine/internal/model"
)

// DocumentRepository is the document registry keyed by path.
type DocumentRepository interface {
	// Upsert inserts the document or replaces its metadata and returns its id.
	// Chunks of an existing document are left untouched.
	Upsert(ctx context.Context, path string, attrs model.DocumentAttrs) (uint64, error)
	// FindByPath returns (nil, nil) when no document is registered for path.
	FindByPath(ctx context.Context, path string) (*model.Document, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a GORM-backed DocumentRepository.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Upsert(ctx context.Context, path string, attrs model.DocumentAttrs) (uint64, error) {
	doc := model.Document{
		Path:          path,
		SharepointURL: attrs.SharepointURL,
		Title:         attrs.Title,
		MimeType:      attrs.MimeType,
	}
	if err := r.db.WithContext(ctx).Clauses(upsertByPath()).Create(&doc).Error; err != nil {
		return 0, err
	}

	// The id reported for an updated row is driver dependent, so read it back.
	var stored model.Document
	if err := r.db.WithContext(ctx).Select("doc_id").Where("path = ?", path).Take(&stored).Error; err != nil {
		return 0, err
	}
	return stored.DocID, nil
}

// upsertByPath replaces the metadata columns when the path already exists.
func upsertByPath() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"sharepoint_url", "title", "mime_type", "updated_at"}),
	}
}

func (r *documentRepository) FindByPath(ctx context.Context, path string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Where("path = ?", path).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
