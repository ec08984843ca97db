package domain

// Passage is one already-chunked, already-embedded piece of source text.
// Created by the external ingestion pipeline; read-only here.
type Passage struct {
	Domain    string    `json:"domain"`
	SourceID  string    `json:"source_id"`
	Seq       int       `json:"seq"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// RetrievedPassage is a Passage plus its similarity score and rank
// within one retrieval call.
type RetrievedPassage struct {
	Passage
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}
