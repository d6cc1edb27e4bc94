package model

// Document is a single stored chunk of a knowledge collection.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentPage is one page of documents as returned by the backend.
type DocumentPage struct {
	Items []Document `json:"items"`
	Total int        `json:"total"`
}
