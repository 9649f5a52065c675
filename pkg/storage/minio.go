// Package storage archives ingested source text in MinIO.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/alex-lapipa/lawton-engine/internal/config"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

// MinioClient is the process-wide MinIO client.
var MinioClient *minio.Client

// InitMinIO creates MinioClient and makes sure the bucket exists.
func InitMinIO(cfg config.MinIOConfig) {
	var err error
	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("failed to initialize MinIO client", err)
	}
	log.Info("MinIO client initialized")

	ctx := context.Background()
	exists, err := MinioClient.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		log.Fatal("failed to check MinIO bucket", err)
	}
	if !exists {
		log.Infof("bucket '%s' does not exist, creating", cfg.BucketName)
		if err := MinioClient.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			log.Fatal("failed to create MinIO bucket", err)
		}
	}
}

// SourceArchive keeps the raw text of every ingestion.
type SourceArchive struct {
	client     *minio.Client
	bucketName string
}

// NewSourceArchive creates a SourceArchive writing into bucketName.
func NewSourceArchive(client *minio.Client, bucketName string) *SourceArchive {
	return &SourceArchive{client: client, bucketName: bucketName}
}

// ObjectName is where the source text of docID is stored.
func ObjectName(docID uint64) string {
	return fmt.Sprintf("documents/%d/source.txt", docID)
}

// Archive stores text for docID, replacing any earlier version, and returns the object name.
func (a *SourceArchive) Archive(ctx context.Context, docID uint64, path, text string) (string, error) {
	objectName := ObjectName(docID)
	_, err := a.client.PutObject(ctx, a.bucketName, objectName, strings.NewReader(text), int64(len(text)), minio.PutObjectOptions{
		ContentType:  "text/plain; charset=utf-8",
		UserMetadata: map[string]string{"source-path": path},
	})
	if err != nil {
		return "", err
	}
	return objectName, nil
}
