package model

// ChunkFilter holds the exact-match retrieval filters. Empty fields are unconstrained.
type ChunkFilter struct {
	Topic  string `json:"topic"`
	CEFR   string `json:"cefr"`
	Skill  string `json:"skill"`
	Format string `json:"format"`
}

// Predicate is one column equality constraint.
type Predicate struct {
	Column string
	Value  string
}

// Predicates lists the constraints for every non-empty filter, in a fixed column order.
func (f ChunkFilter) Predicates() []Predicate {
	var preds []Predicate
	add := func(column, value string) {
		if value != "" {
			preds = append(preds, Predicate{Column: column, Value: value})
		}
	}
	add("topic", f.Topic)
	add("cefr", f.CEFR)
	add("skill", f.Skill)
	add("format", f.Format)
	return preds
}

// Matches reports whether c satisfies every predicate of f.
func (f ChunkFilter) Matches(c *Chunk) bool {
	return (f.Topic == "" || c.Topic == f.Topic) &&
		(f.CEFR == "" || c.CEFR == f.CEFR) &&
		(f.Skill == "" || c.Skill == f.Skill) &&
		(f.Format == "" || c.Format == f.Format)
}

// RetrievalResult is a scored chunk as returned to callers. It has no vector field.
type RetrievalResult struct {
	ChunkID       uint64   `json:"chunk_id"`
	DocID         uint64   `json:"doc_id"`
	Text          string   `json:"text"`
	Topic         string   `json:"topic"`
	CEFR          string   `json:"cefr"`
	Skill         string   `json:"skill"`
	Format        string   `json:"format"`
	Difficulty    string   `json:"difficulty"`
	Tags          []string `json:"tags"`
	ErrorPatterns []string `json:"error_patterns"`
	Section       string   `json:"section"`
	OrderInDoc    int      `json:"order_in_doc"`
	SharepointURL string   `json:"sharepoint_url"`
	Score         float64  `json:"score"`
}

// NewRetrievalResult copies the chunk's text and metadata, leaving the vector behind.
func NewRetrievalResult(c *Chunk, score float64) RetrievalResult {
	return RetrievalResult{
		ChunkID:       c.ChunkID,
		DocID:         c.DocID,
		Text:          c.Text,
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
		Score:         score,
	}
}
