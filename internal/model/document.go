// Package model defines the persisted entities and request/response shapes.
package model

import "time"

// Document is one ingested source, identified by its path.
type Document struct {
	DocID         uint64    `gorm:"primaryKey;autoIncrement;column:doc_id" json:"doc_id"`
	Path          string    `gorm:"type:varchar(768);not null;uniqueIndex;column:path" json:"path"`
	SharepointURL string    `gorm:"type:text;column:sharepoint_url" json:"sharepoint_url"`
	Title         string    `gorm:"type:varchar(512);column:title" json:"title"`
	MimeType      string    `gorm:"type:varchar(255);column:mime_type" json:"mime_type"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName pins the table name.
func (Document) TableName() string {
	return "documents"
}

// DocumentAttrs are the metadata fields replaced on every upsert.
type DocumentAttrs struct {
	SharepointURL string
	Title         string
	MimeType      string
}
