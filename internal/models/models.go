package models

import "time"

// Chunk is a contiguous slice of cleaned document text paired with its
// embedding vector. Chunks belong to exactly one document and are immutable
// once created.
type Chunk struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
}

// DocumentSummary is the catalog view of an ingested document, without
// chunk bodies.
type DocumentSummary struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	ContentType   string    `json:"content_type"`
	UploadedAt    time.Time `json:"uploaded_at"`
	TextLength    int       `json:"text_length"`
	ChunkCount    int       `json:"chunk_count"`
	EmbeddedCount int       `json:"embedded_count"`
}

// DocumentRecord is the full persisted form of an ingested document,
// one JSON file per document id.
type DocumentRecord struct {
	DocumentSummary
	Chunks []Chunk `json:"chunks"`
}

// Passage origins, used by retrieval fusion to prefer curated index results
// over ad hoc local uploads at equal relevance.
const (
	OriginRemote = "index"
	OriginLocal  = "local"
)

// Passage is a single retrieved excerpt. Produced per query, never persisted.
type Passage struct {
	Title   string  `json:"title"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Origin  string  `json:"origin"`
	Score   float64 `json:"score"`
}
