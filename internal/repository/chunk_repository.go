package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alex-lapipa/lawton-engine/internal/model"
)

// ChunkRepository stores chunks and serves the filtered candidate scan.
type ChunkRepository interface {
	Create(ctx context.Context, chunk *model.Chunk) error
	// Scan returns at most limit chunks whose metadata equals every present
	// filter value. Order is whatever the store yields.
	Scan(ctx context.Context, filter model.ChunkFilter, limit int) ([]*model.Chunk, error)
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository creates a GORM-backed ChunkRepository.
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// Create inserts one chunk and fills in its ChunkID.
func (r *chunkRepository) Create(ctx context.Context, chunk *model.Chunk) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(chunk).Error
}

func (r *chunkRepository) Scan(ctx context.Context, filter model.ChunkFilter, limit int) ([]*model.Chunk, error) {
	var chunks []*model.Chunk
	err := scanQuery(r.db.WithContext(ctx), filter, limit).Find(&chunks).Error
	return chunks, err
}

// scanQuery binds every predicate as a parameter; values never reach the SQL text.
func scanQuery(db *gorm.DB, filter model.ChunkFilter, limit int) *gorm.DB {
	q := db.Model(&model.Chunk{})
	for _, p := range filter.Predicates() {
		q = q.Where(clause.Eq{Column: clause.Column{Name: p.Column}, Value: p.Value})
	}
	return q.Limit(limit)
}
