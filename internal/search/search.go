package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultProject ResultType = "project"
	ResultEntry   ResultType = "entry"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type      ResultType `json:"type"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet"`
	ProjectID string     `json:"projectId"`
	PassionID string     `json:"passionId,omitempty"`
	Privacy   string     `json:"privacy,omitempty"`
}

// Query describes a search request. UserID scopes results to the caller's
// own projects and entries.
type Query struct {
	Text            string
	UserID          string
	FilterType      ResultType // empty = all types
	FilterPassionID string
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ProjectRecord is the data we index for a project.
type ProjectRecord struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	PassionID   string `json:"passionId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Privacy     string `json:"privacy"`
}

// EntryRecord is the data we index for an entry.
type EntryRecord struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	Privacy   string `json:"privacy"`
}
