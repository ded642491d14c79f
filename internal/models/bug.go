package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the workflow state of a bug.
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
	StatusClosed     Status = "Closed"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Priority is the triage priority of a bug.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Bug is a bug record as stored in the "bugs" collection.
type Bug struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"                json:"id"`
	Title              string             `bson:"title"                        json:"title"`
	Description        string             `bson:"description"                  json:"description"`
	Status             Status             `bson:"status"                       json:"status"`
	Priority           Priority           `bson:"priority"                     json:"priority"`
	Component          string             `bson:"component,omitempty"          json:"component,omitempty"`
	Tags               []string           `bson:"tags,omitempty"               json:"tags"`
	Embedding          []float64          `bson:"embedding,omitempty"          json:"-"` // empty until computed
	EmbeddingUpdatedAt *time.Time         `bson:"embeddingUpdatedAt,omitempty" json:"embeddingUpdatedAt,omitempty"`
	CreatedBy          string             `bson:"createdBy"                    json:"createdBy"`
	CreatedAt          time.Time          `bson:"createdAt"                    json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt"                    json:"updatedAt"`
}

// EmbeddingText is the text fed to the embedding provider for this bug.
func (b Bug) EmbeddingText() string {
	return EmbeddingText(b.Title, b.Description)
}

// EmbeddingText joins a title and description the same way for stored
// records and for incoming analyze requests, so their vectors are comparable.
func EmbeddingText(title, description string) string {
	if title == "" {
		return description
	}
	if description == "" {
		return title
	}
	return title + " " + description
}

// HasEmbedding reports whether a vector has been computed.
func (b Bug) HasEmbedding() bool {
	return len(b.Embedding) > 0
}

// Report is a cached, rendered bug report.
type Report struct {
	BugID     primitive.ObjectID `bson:"_id"       json:"bugId"`
	Owner     string             `bson:"owner"     json:"-"`
	Text      string             `bson:"text"      json:"text"`
	Narrative string             `bson:"narrative" json:"narrative,omitempty"`
	Source    string             `bson:"source"    json:"source"` // "template" or the LLM model name
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
