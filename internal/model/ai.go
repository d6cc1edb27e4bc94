// Package model defines the resource types exchanged with the workshop backend.
package model

// Ai is a configured chat agent.
type Ai struct {
	ID          int               `json:"id,omitempty"`
	Name        string            `json:"name"`
	InputKeys   []string          `json:"input_keys"`
	InputLabels map[string]string `json:"input_labels,omitempty"`
	Chain       map[string]any    `json:"chain"`
	Greeting    string            `json:"greeting,omitempty"`
}

// ResourceID returns the backend-assigned id, 0 while pending creation.
func (a Ai) ResourceID() int { return a.ID }

// IsPending reports whether the AI has not been created on the backend yet.
func (a Ai) IsPending() bool { return a.ID == 0 }

// Label returns the display label for an input key, falling back to the key.
func (a Ai) Label(inputKey string) string {
	if l, ok := a.InputLabels[inputKey]; ok && l != "" {
		return l
	}
	return inputKey
}

// Knowledge is a document collection that AIs can draw on.
type Knowledge struct {
	ID         int    `json:"id,omitempty"`
	Name       string `json:"name"`
	Embeddings string `json:"embeddings"`
	ChunkSize  int    `json:"chunk_size"`
}

// ResourceID returns the backend-assigned id, 0 while pending creation.
func (k Knowledge) ResourceID() int { return k.ID }

// IsPending reports whether the knowledge has not been created on the backend yet.
func (k Knowledge) IsPending() bool { return k.ID == 0 }

// ValidEmbeddings are the embedding types the backend accepts.
var ValidEmbeddings = map[string]bool{
	"huggingface": true,
}
