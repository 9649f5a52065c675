package model

// EsChunk is the shape of a chunk in the Elasticsearch mirror index.
type EsChunk struct {
	ChunkID       uint64    `json:"chunk_id"`
	DocID         uint64    `json:"doc_id"`
	Text          string    `json:"text"`
	Vector        []float32 `json:"vector,omitempty"`
	Topic         string    `json:"topic"`
	CEFR          string    `json:"cefr"`
	Skill         string    `json:"skill"`
	Format        string    `json:"format"`
	Difficulty    string    `json:"difficulty"`
	Tags          []string  `json:"tags"`
	ErrorPatterns []string  `json:"error_patterns"`
	Section       string    `json:"section"`
	OrderInDoc    int       `json:"order_in_doc"`
	SharepointURL string    `json:"sharepoint_url"`
	ModelVersion  string    `json:"model_version"`
}

// NewEsChunk builds the index document for a stored chunk.
func NewEsChunk(c *Chunk, modelVersion string) EsChunk {
	return EsChunk{
		ChunkID:       c.ChunkID,
		DocID:         c.DocID,
		Text:          c.Text,
		Vector:        c.Embedding,
		Topic:         c.Topic,
		CEFR:          c.CEFR,
		Skill:         c.Skill,
		Format:        c.Format,
		Difficulty:    c.Difficulty,
		Tags:          c.Tags,
		ErrorPatterns: c.ErrorPatterns,
		Section:       c.Section,
		OrderInDoc:    c.OrderInDoc,
		SharepointURL: c.SharepointURL,
		ModelVersion:  modelVersion,
	}
}

// ToResult converts an index hit into a retrieval result with the given score.
func (e EsChunk) ToResult(score float64) RetrievalResult {
	return RetrievalResult{
		ChunkID:       e.ChunkID,
		DocID:         e.DocID,
		Text:          e.Text,
		Topic:         e.Topic,
		CEFR:          e.CEFR,
		Skill:         e.Skill,
		Format:        e.Format,
		Difficulty:    e.Difficulty,
		Tags:          e.Tags,
		ErrorPatterns: e.ErrorPatterns,
		Section:       e.Section,
		OrderInDoc:    e.OrderInDoc,
		SharepointURL: e.SharepointURL,
		Score:         score,
	}
}
