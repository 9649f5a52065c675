package model

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// IngestRequest is the body of the ingestion endpoint and the payload of
// queued ingestion tasks.
type IngestRequest struct {
	SharepointURL string   `json:"sharepoint_url"`
	Path          string   `json:"path"`
	Title         string   `json:"title"`
	MimeType      string   `json:"mime_type"`
	Text          string   `json:"text"`
	Topic         string   `json:"topic"`
	CEFR          string   `json:"cefr"`
	Skill         string   `json:"skill"`
	Format        string   `json:"format"`
	Difficulty    string   `json:"difficulty"`
	Tags          []string `json:"tags"`
	ErrorPatterns []string `json:"error_patterns"`
}

// Metadata returns the per-chunk metadata carried by the request.
func (r IngestRequest) Metadata() ChunkMetadata {
	return ChunkMetadata{
		Topic:         r.Topic,
		CEFR:          r.CEFR,
		Skill:         r.Skill,
		Format:        r.Format,
		Difficulty:    r.Difficulty,
		Tags:          r.Tags,
		ErrorPatterns: r.ErrorPatterns,
	}
}

// Attrs returns the document metadata carried by the request.
func (r IngestRequest) Attrs() DocumentAttrs {
	return DocumentAttrs{
		SharepointURL: r.SharepointURL,
		Title:         r.Title,
		MimeType:      r.MimeType,
	}
}

// IngestResult summarizes a completed ingestion.
type IngestResult struct {
	DocID          uint64 `json:"doc_id"`
	ChunksInserted int    `json:"chunks_inserted"`
}

// RetrieveRequest is the body of the retrieval endpoint.
// Limit is a pointer so that an absent value can take the default.
type RetrieveRequest struct {
	Query   string      `json:"query"`
	Filters ChunkFilter `json:"filters"`
	Limit   *int        `json:"limit"`
}

// maxLimitValue keeps out-of-range limits representable; they are clamped later.
const maxLimitValue = 1 << 30

// UnmarshalJSON accepts limit as a number or a numeric string and floors
// fractional values. Any other limit type is an *json.UnmarshalTypeError.
func (r *RetrieveRequest) UnmarshalJSON(data []byte) error {
	type plain RetrieveRequest
	aux := struct {
		*plain
		Limit json.RawMessage `json:"limit"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	limit, err := parseLimit(aux.Limit)
	if err != nil {
		return err
	}
	r.Limit = limit
	return nil
}

func parseLimit(raw json.RawMessage) (*int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil, limitTypeError(raw)
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return nil, limitTypeError(raw)
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, limitTypeError(raw)
	}

	f = math.Floor(f)
	if f > maxLimitValue {
		f = maxLimitValue
	} else if f < -maxLimitValue {
		f = -maxLimitValue
	}
	n := int(f)
	return &n, nil
}

func limitTypeError(raw json.RawMessage) error {
	return &json.UnmarshalTypeError{Value: string(raw), Type: reflect.TypeOf(0), Field: "limit"}
}
