package models

import "time"

// DuplicateCandidate is a likely duplicate returned by analysis. Never stored.
type DuplicateCandidate struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	DescriptionSnippet string    `json:"descriptionSnippet"`
	Status             Status    `json:"status"`
	Priority           Priority  `json:"priority"`
	CreatedAt          time.Time `json:"createdAt"`
	Similarity         float64   `json:"similarity"`
}

// SearchResult is one hit of the smart search. Never stored.
//
// Similarity is set by the semantic tier, RelevanceScore by the keyword tier.
type SearchResult struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Status         Status    `json:"status"`
	Priority       Priority  `json:"priority"`
	Tags           []string  `json:"tags"`
	CreatedAt      time.Time `json:"createdAt"`
	Similarity     float64   `json:"similarity,omitempty"`
	RelevanceScore float64   `json:"relevanceScore"`
	IsHighPriority bool      `json:"isHighPriority"`
	IsRecent       bool      `json:"isRecent"`
}

// EmbeddingStats summarises embedding coverage for one owner.
type EmbeddingStats struct {
	Total         int64 `json:"total"`
	WithEmbedding int64 `json:"withEmbedding"`
	Missing       int64 `json:"missing"`
}
