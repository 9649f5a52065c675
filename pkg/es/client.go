// Package es manages the Elasticsearch chunk mirror index.
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/alex-lapipa/lawton-engine/internal/config"
	"github.com/alex-lapipa/lawton-engine/internal/model"
	"github.com/alex-lapipa/lawton-engine/pkg/log"
)

var ESClient *elasticsearch.Client

// InitES creates ESClient and makes sure the chunk index exists with a
// dense_vector field of the given dimension.
func InitES(esCfg config.ElasticsearchConfig, dims int) error {
	cfg := elasticsearch.Config{
		Addresses: strings.Split(esCfg.Addresses, ","),
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return CreateIndexIfNotExists(client, esCfg.IndexName, dims)
}

// IndexMapping returns the chunk index mapping for vectors of dims dimensions.
func IndexMapping(dims int) string {
	return `{
		"mappings": {
			"properties": {
				"chunk_id": { "type": "long" },
				"doc_id": { "type": "long" },
				"text": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": ` + strconv.Itoa(dims) + `,
					"index": true,
					"similarity": "cosine"
				},
				"topic": { "type": "keyword" },
				"cefr": { "type": "keyword" },
				"skill": { "type": "keyword" },
				"format": { "type": "keyword" },
				"difficulty": { "type": "keyword" },
				"tags": { "type": "keyword" },
				"error_patterns": { "type": "keyword" },
				"section": { "type": "keyword" },
				"order_in_doc": { "type": "integer" },
				"sharepoint_url": { "type": "keyword", "index": false },
				"model_version": { "type": "keyword" }
			}
		}
	}`
}

// CreateIndexIfNotExists creates indexName unless it is already present.
func CreateIndexIfNotExists(client *elasticsearch.Client, indexName string, dims int) error {
	res, err := client.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("failed to check index existence: %v", err)
		return err
	}
	defer res.Body.Close()

	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("index '%s' already exists", indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("unexpected status checking index '%s': %d", indexName, res.StatusCode)
		return fmt.Errorf("unexpected status checking index: %d", res.StatusCode)
	}

	created, err := client.Indices.Create(
		indexName,
		client.Indices.Create.WithBody(strings.NewReader(IndexMapping(dims))),
	)
	if err != nil {
		log.Errorf("failed to create index '%s': %v", indexName, err)
		return err
	}
	defer created.Body.Close()
	if created.IsError() {
		log.Errorf("elasticsearch rejected index '%s': %s", indexName, created.String())
		return errors.New("elasticsearch returned an error while creating index")
	}

	log.Infof("index '%s' created", indexName)
	return nil
}

// ChunkIndexer mirrors stored chunks into the index.
type ChunkIndexer struct {
	client       *elasticsearch.Client
	indexName    string
	modelVersion string
}

// NewChunkIndexer creates a ChunkIndexer writing to indexName.
func NewChunkIndexer(client *elasticsearch.Client, indexName, modelVersion string) *ChunkIndexer {
	return &ChunkIndexer{client: client, indexName: indexName, modelVersion: modelVersion}
}

// IndexChunk writes one chunk, keyed by its chunk id.
func (i *ChunkIndexer) IndexChunk(ctx context.Context, chunk *model.Chunk) error {
	docBytes, err := json.Marshal(model.NewEsChunk(chunk, i.modelVersion))
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      i.indexName,
		DocumentID: strconv.FormatUint(chunk.ChunkID, 10),
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("failed to index chunk %d: %s", chunk.ChunkID, res.String())
		return fmt.Errorf("failed to index chunk %d: %s", chunk.ChunkID, res.Status())
	}
	return nil
}
