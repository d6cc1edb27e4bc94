package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rcliao/ownai-workshop/internal/model"
)

// DocumentsPerPage is the fixed page size of the document listing.
const DocumentsPerPage = 10

// documentKinds maps upload file extensions to the backend's upload routes.
var documentKinds = map[string]string{
	".txt":  "txt",
	".pdf":  "pdf",
	".docx": "docx",
}

// DocumentPages caches the documents of one knowledge collection page by page.
//
// A fetched page stays cached until a delete on it edits it or the cache is
// invalidated; refetching a cached page is a no-op. Deleting a document only
// edits the current page, so later pages and the total drift from the server
// until Invalidate is called.
type DocumentPages struct {
	t           Transport
	knowledgeID int

	mu          sync.Mutex
	pages       map[int][]model.Document
	total       int
	currentPage int
}

// NewDocumentPages creates an empty cache positioned on page 1.
func NewDocumentPages(t Transport, knowledgeID int) *DocumentPages {
	return &DocumentPages{
		t:           t,
		knowledgeID: knowledgeID,
		pages:       make(map[int][]model.Document),
		currentPage: 1,
	}
}

// KnowledgeID returns the parent knowledge collection.
func (d *DocumentPages) KnowledgeID() int { return d.knowledgeID }

// PageSize returns DocumentsPerPage.
func (d *DocumentPages) PageSize() int { return DocumentsPerPage }

// FetchDocumentsForPage loads page unless it is already cached.
func (d *DocumentPages) FetchDocumentsForPage(ctx context.Context, page int) error {
	if page < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidPage, page)
	}

	d.mu.Lock()
	_, cached := d.pages[page]
	d.mu.Unlock()
	if cached {
		return nil
	}

	q := url.Values{}
	q.Set("offset", strconv.Itoa((page-1)*DocumentsPerPage))
	q.Set("limit", strconv.Itoa(DocumentsPerPage))

	var resp model.DocumentPage
	if err := d.t.Do(ctx, http.MethodGet, d.basePath()+"?"+q.Encode(), nil, &resp); err != nil {
		return err
	}

	items := resp.Items
	if items == nil {
		items = []model.Document{}
	}

	d.mu.Lock()
	d.pages[page] = items
	d.total = resp.Total
	d.mu.Unlock()
	return nil
}

// GoToPage makes page current and fetches it if needed. The page pointer
// moves even when the fetch fails.
func (d *DocumentPages) GoToPage(ctx context.Context, page int) error {
	d.mu.Lock()
	d.currentPage = page
	d.mu.Unlock()
	return d.FetchDocumentsForPage(ctx, page)
}

// DeleteDocument deletes a document and drops it from the current page's
// cached list. removed reports whether the current page held it.
func (d *DocumentPages) DeleteDocument(ctx context.Context, documentID string) (removed bool, err error) {
	path := d.basePath() + "/" + url.PathEscape(documentID)
	if err := d.t.Do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	docs, ok := d.pages[d.currentPage]
	if !ok {
		return false, nil
	}
	kept := make([]model.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.ID == documentID {
			removed = true
			continue
		}
		kept = append(kept, doc)
	}
	d.pages[d.currentPage] = kept
	return removed, nil
}

// UploadDocument sends a txt, pdf or docx file to the knowledge collection.
// The page cache is not touched.
func (d *DocumentPages) UploadDocument(ctx context.Context, filename string, r io.Reader) error {
	kind, ok := documentKinds[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedDocument, filepath.Base(filename))
	}
	return d.t.Upload(ctx, d.basePath()+"/"+kind, filename, r)
}

// Invalidate drops every cached page and the total.
func (d *DocumentPages) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages = make(map[int][]model.Document)
	d.total = 0
}

// CurrentPage returns the page pointer.
func (d *DocumentPages) CurrentPage() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentPage
}

// CurrentDocuments returns the cached documents of the current page, or an
// empty slice when that page isn't cached.
func (d *DocumentPages) CurrentDocuments() []model.Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneDocuments(d.pages[d.currentPage])
}

// Page returns a cached page.
func (d *DocumentPages) Page(page int) ([]model.Document, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	docs, ok := d.pages[page]
	return cloneDocuments(docs), ok
}

// TotalDocuments returns the total from the last page response.
func (d *DocumentPages) TotalDocuments() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

// TotalPages returns ceil(TotalDocuments / DocumentsPerPage).
func (d *DocumentPages) TotalPages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return (d.total + DocumentsPerPage - 1) / DocumentsPerPage
}

func (d *DocumentPages) basePath() string {
	return knowledgePath + strconv.Itoa(d.knowledgeID) + "/document"
}

func cloneDocuments(docs []model.Document) []model.Document {
	out := make([]model.Document, len(docs))
	copy(out, docs)
	return out
}
