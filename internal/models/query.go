package models

// AnalyzeRequest is the payload for POST /ai-analyze.
type AnalyzeRequest struct {
	Description string `json:"description"`
	Component   string `json:"component,omitempty"`
	Title       string `json:"title,omitempty"`
}

// SearchRequest is the payload for POST /ai-search.
type SearchRequest struct {
	Query string `json:"query"`
}

// CreateBugRequest is the payload for POST /bugs.
type CreateBugRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	Component   string   `json:"component,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}
