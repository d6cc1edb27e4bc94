// Package store keeps client-side caches of backend resources in sync with
// the REST collection endpoints.
//
// Every cache only ever holds server-confirmed state: a mutation touches the
// cache after the backend has answered with success, and a failed request
// leaves it as it was. Errors from the transport are returned unchanged.
package store

import (
	"context"
	"errors"
	"io"

	"github.com/rcliao/ownai-workshop/internal/model"
)

var (
	// ErrNotPending is returned by Create for a resource that already has an id.
	ErrNotPending = errors.New("resource already has an id")
	// ErrPending is returned by Update for a resource without an id.
	ErrPending = errors.New("resource has no id yet")
	// ErrMissingID is returned when the backend answers a create or update
	// with a resource that has no id. The cache is left as it was.
	ErrMissingID = errors.New("backend returned a resource without an id")
	// ErrInvalidPage is returned for page numbers below 1.
	ErrInvalidPage = errors.New("page numbers start at 1")
	// ErrUnsupportedDocument is returned for uploads of unknown file types.
	ErrUnsupportedDocument = errors.New("unsupported document type (supported: txt, pdf, docx)")
)

// Doer sends one JSON request. A nil in sends no body; a nil out discards the
// response body.
type Doer interface {
	Do(ctx context.Context, method, path string, in, out any) error
}

// Uploader posts a file as a multipart form.
type Uploader interface {
	Upload(ctx context.Context, path, filename string, r io.Reader) error
}

// Transport is what the document store needs from the backend connection.
type Transport interface {
	Doer
	Uploader
}

// Resource is a record with a backend-assigned integer id.
type Resource interface {
	ResourceID() int
}

const (
	aiPath        = "/api/ai/"
	knowledgePath = "/api/knowledge/"
)

// NewAiStore returns the collection for /api/ai/.
func NewAiStore(d Doer) *Collection[model.Ai] {
	return NewCollection[model.Ai](d, aiPath)
}

// NewKnowledgeStore returns the collection for /api/knowledge/.
func NewKnowledgeStore(d Doer) *Collection[model.Knowledge] {
	return NewCollection[model.Knowledge](d, knowledgePath)
}

// Workshop bundles the stores a workshop view works with.
type Workshop struct {
	Ais       *Collection[model.Ai]
	Knowledge *Collection[model.Knowledge]
	Documents *DocumentRegistry
}

// NewWorkshop creates empty stores sharing one transport.
func NewWorkshop(t Transport) *Workshop {
	return &Workshop{
		Ais:       NewAiStore(t),
		Knowledge: NewKnowledgeStore(t),
		Documents: NewDocumentRegistry(t),
	}
}
