package model

import "time"

// Chunk is a bounded slice of a document with its vector and
// denormalized pedagogical metadata.
type Chunk struct {
	ChunkID       uint64    `gorm:"primaryKey;autoIncrement;column:chunk_id"`
	DocID         uint64    `gorm:"not null;index;column:doc_id"`
	Text          string    `gorm:"type:text;not null;column:text"`
	Embedding     []float32 `gorm:"type:json;serializer:json;column:embedding"`
	Topic         string    `gorm:"type:varchar(128);index;column:topic"`
	CEFR          string    `gorm:"type:varchar(16);index;column:cefr"`
	Skill         string    `gorm:"type:varchar(128);index;column:skill"`
	Format        string    `gorm:"type:varchar(128);index;column:format"`
	Difficulty    string    `gorm:"type:varchar(64);column:difficulty"`
	Tags          []string  `gorm:"type:json;serializer:json;column:tags"`
	ErrorPatterns []string  `gorm:"type:json;serializer:json;column:error_patterns"`
	Section       string    `gorm:"type:varchar(64);column:section"`
	OrderInDoc    int       `gorm:"not null;column:order_in_doc"`
	SharepointURL string    `gorm:"type:text;column:sharepoint_url"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`

	Document *Document `gorm:"foreignKey:DocID;references:DocID;constraint:OnDelete:CASCADE"`
}

// TableName pins the table name.
func (Chunk) TableName() string {
	return "chunks"
}

// ChunkMetadata is applied uniformly to every chunk of one ingestion.
type ChunkMetadata struct {
	Topic         string
	CEFR          string
	Skill         string
	Format        string
	Difficulty    string
	Tags          []string
	ErrorPatterns []string
}
