package models

// Embedding is a fixed length dense vector.
type Embedding []float32

// DistanceCosine is the only distance collections are created with.
const DistanceCosine = "Cosine"

// Collection describes a named vector collection. PointsCount is -1 when the
// backend cannot report it.
type Collection struct {
	Name        string `json:"name"`
	VectorSize  int    `json:"vector_size"`
	Distance    string `json:"distance"`
	PointsCount int64  `json:"vectors_count"`
}

// PointMetadata is stored with every point. ChunkIndex is the chunk's position
// within the upload it came from.
type PointMetadata struct {
	Filename   string `json:"filename,omitempty"    mapstructure:"filename"`
	DocumentID string `json:"document_id,omitempty" mapstructure:"document_id"`
	ChatID     string `json:"chat_id,omitempty"     mapstructure:"chat_id"`
	ChunkIndex int    `json:"chunk_index"           mapstructure:"chunk_index"`
}

// Payload is what a vector service returns with each hit.
type Payload struct {
	Content  string        `json:"content"`
	Metadata PointMetadata `json:"metadata"`
}

// IndexedPoint is a stored chunk and its vector.
type IndexedPoint struct {
	ID      string    `json:"id"`
	Vector  Embedding `json:"vector"`
	Payload Payload   `json:"payload"`
}

// ScoredHit is a search result. Higher scores are more similar.
type ScoredHit struct {
	ID       string        `json:"id,omitempty"`
	Content  string        `json:"content"`
	Score    float64       `json:"score"`
	Metadata PointMetadata `json:"metadata"`
}
