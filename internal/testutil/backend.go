// Package testutil provides an in-memory stand-in for the workshop backend.
package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rcliao/ownai-workshop/internal/model"
)

const sessionCookie = "session"

type injected struct {
	status int
	body   string
}

// Backend serves the workshop REST contract from memory. It counts requests
// per "METHOD /path" (query excluded) and can be told to fail the next ones.
type Backend struct {
	srv *httptest.Server

	mu           sync.Mutex
	ais          []model.Ai
	knowledge    []model.Knowledge
	documents    map[int][]model.Document
	nextID       int
	hits         map[string]int
	failures     []injected
	users        map[string]string
	sessions     map[string]string
	requireLogin bool
}

// NewBackend starts a backend that is shut down with the test.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		documents: make(map[int][]model.Document),
		hits:      make(map[string]int),
		users:     make(map[string]string),
		sessions:  make(map[string]string),
	}
	b.srv = httptest.NewServer(b.router())
	t.Cleanup(b.srv.Close)
	return b
}

// URL returns the server's base URL.
func (b *Backend) URL() string { return b.srv.URL }

func (b *Backend) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(b.count, b.inject)

	r.POST("/auth/login", b.login)
	r.GET("/auth/logout", b.logout)

	api := r.Group("/api", b.auth)
	{
		ai := api.Group("/ai")
		ai.GET("/", b.listAis)
		ai.POST("/", b.createAi)
		ai.PUT("/:id", b.updateAi)
		ai.DELETE("/:id", b.deleteAi)

		kb := api.Group("/knowledge")
		kb.GET("/", b.listKnowledge)
		kb.POST("/", b.createKnowledge)
		kb.PUT("/:id", b.updateKnowledge)
		kb.DELETE("/:id", b.deleteKnowledge)
		kb.GET("/:id/document", b.listDocuments)
		kb.DELETE("/:id/document/:docID", b.deleteDocument)
		kb.POST("/:id/document/:kind", b.uploadDocument)
	}
	return r
}

// Hits returns how often method+path was requested.
func (b *Backend) Hits(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[method+" "+path]
}

// TotalHits returns the number of requests served.
func (b *Backend) TotalHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, h := range b.hits {
		n += h
	}
	return n
}

// FailNext makes the next request answer status with body, as-is.
func (b *Backend) FailNext(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = append(b.failures, injected{status: status, body: body})
}

// AddUser registers credentials for /auth/login and turns on session checks
// for /api routes.
func (b *Backend) AddUser(username, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = password
	b.requireLogin = true
}

// ActiveSessions returns the number of logged-in sessions.
func (b *Backend) ActiveSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// SeedAi stores ai with a fresh id.
func (b *Backend) SeedAi(ai model.Ai) model.Ai {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	ai.ID = b.nextID
	b.ais = append(b.ais, ai)
	return ai
}

// SeedKnowledge stores k with a fresh id.
func (b *Backend) SeedKnowledge(k model.Knowledge) model.Knowledge {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	k.ID = b.nextID
	b.knowledge = append(b.knowledge, k)
	return k
}

// SeedDocuments appends n documents to a knowledge collection.
func (b *Backend) SeedDocuments(knowledgeID, n int) []model.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	docs := make([]model.Document, n)
	for i := range docs {
		docs[i] = model.Document{
			ID:      uuid.NewString(),
			Content: fmt.Sprintf("chunk %d", len(b.documents[knowledgeID])+i+1),
		}
	}
	b.documents[knowledgeID] = append(b.documents[knowledgeID], docs...)
	return docs
}

// Documents returns the stored documents of a knowledge collection.
func (b *Backend) Documents(knowledgeID int) []model.Document {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Document(nil), b.documents[knowledgeID]...)
}

// Ais returns the stored AIs.
func (b *Backend) Ais() []model.Ai {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Ai(nil), b.ais...)
}

func (b *Backend) count(c *gin.Context) {
	b.mu.Lock()
	b.hits[c.Request.Method+" "+c.Request.URL.Path]++
	b.mu.Unlock()
	c.Next()
}

func (b *Backend) inject(c *gin.Context) {
	b.mu.Lock()
	if len(b.failures) == 0 {
		b.mu.Unlock()
		c.Next()
		return
	}
	f := b.failures[0]
	b.failures = b.failures[1:]
	b.mu.Unlock()

	c.Data(f.status, "application/json", []byte(f.body))
	c.Abort()
}

func (b *Backend) auth(c *gin.Context) {
	b.mu.Lock()
	required := b.requireLogin
	b.mu.Unlock()
	if !required {
		c.Next()
		return
	}

	token, err := c.Cookie(sessionCookie)
	b.mu.Lock()
	_, ok := b.sessions[token]
	b.mu.Unlock()
	if err != nil || !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Next()
}

func (b *Backend) login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	b.mu.Lock()
	want, ok := b.users[username]
	if !ok || want != password {
		b.mu.Unlock()
		c.Data(http.StatusOK, "text/html", []byte("<p>Incorrect username or password.</p>"))
		return
	}
	token := uuid.NewString()
	b.sessions[token] = username
	b.mu.Unlock()

	c.SetCookie(sessionCookie, token, 0, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func (b *Backend) logout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil {
		b.mu.Lock()
		delete(b.sessions, token)
		b.mu.Unlock()
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func paramID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func (b *Backend) listAis(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]model.Ai{}, b.ais...)
	c.JSON(http.StatusOK, out)
}

func validateAi(ai model.Ai) string {
	switch {
	case ai.Name == "":
		return `The property "name" is required.`
	case ai.InputKeys == nil:
		return `The property "input_keys" is required.`
	case ai.Chain == nil:
		return `The property "chain" is required.`
	}
	return ""
}

func (b *Backend) createAi(c *gin.Context) {
	var ai model.Ai
	if err := c.ShouldBindJSON(&ai); err != nil {
		badRequest(c, "The AI file cannot be empty.")
		return
	}
	if msg := validateAi(ai); msg != "" {
		badRequest(c, msg)
		return
	}
	c.JSON(http.StatusCreated, b.SeedAi(ai))
}

func (b *Backend) updateAi(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var ai model.Ai
	if err := c.ShouldBindJSON(&ai); err != nil {
		badRequest(c, "The AI file cannot be empty.")
		return
	}
	if msg := validateAi(ai); msg != "" {
		badRequest(c, msg)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.ais {
		if b.ais[i].ID == id {
			ai.ID = id
			b.ais[i] = ai
			c.JSON(http.StatusOK, ai)
			return
		}
	}
	c.AbortWithStatus(http.StatusNotFound)
}

func (b *Backend) deleteAi(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.ais {
		if b.ais[i].ID == id {
			b.ais = append(b.ais[:i], b.ais[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	c.AbortWithStatus(http.StatusNotFound)
}

func (b *Backend) listKnowledge(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]model.Knowledge{}, b.knowledge...)
	c.JSON(http.StatusOK, out)
}

func validateKnowledge(k model.Knowledge) string {
	switch {
	case k.Name == "":
		return `The property "name" is required.`
	case !model.ValidEmbeddings[k.Embeddings]:
		return "Unknown embeddings type."
	case k.ChunkSize == 0:
		return `The property "chunk_size" is required.`
	}
	return ""
}

func (b *Backend) createKnowledge(c *gin.Context) {
	var k model.Knowledge
	if err := c.ShouldBindJSON(&k); err != nil {
		badRequest(c, "The knowledge data cannot be empty.")
		return
	}
	if msg := validateKnowledge(k); msg != "" {
		badRequest(c, msg)
		return
	}
	c.JSON(http.StatusCreated, b.SeedKnowledge(k))
}

func (b *Backend) updateKnowledge(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var k model.Knowledge
	if err := c.ShouldBindJSON(&k); err != nil {
		badRequest(c, "The knowledge data cannot be empty.")
		return
	}
	if msg := validateKnowledge(k); msg != "" {
		badRequest(c, msg)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.knowledge {
		if b.knowledge[i].ID != id {
			continue
		}
		if b.knowledge[i].Embeddings != k.Embeddings {
			badRequest(c, "Cannot change the embeddings type afterwards.")
			return
		}
		k.ID = id
		b.knowledge[i] = k
		c.JSON(http.StatusOK, k)
		return
	}
	c.AbortWithStatus(http.StatusNotFound)
}

func (b *Backend) deleteKnowledge(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.knowledge {
		if b.knowledge[i].ID == id {
			b.knowledge = append(b.knowledge[:i], b.knowledge[i+1:]...)
			delete(b.documents, id)
			c.Status(http.StatusNoContent)
			return
		}
	}
	c.AbortWithStatus(http.StatusNotFound)
}

func (b *Backend) listDocuments(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		limit = 10
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		offset = 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	docs := b.documents[id]
	items := []model.Document{}
	if offset < len(docs) {
		end := min(offset+limit, len(docs))
		items = append(items, docs[offset:end]...)
	}
	c.JSON(http.StatusOK, model.DocumentPage{Items: items, Total: len(docs)})
}

func (b *Backend) deleteDocument(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	docID := c.Param("docID")

	b.mu.Lock()
	defer b.mu.Unlock()
	docs := b.documents[id]
	for i := range docs {
		if docs[i].ID == docID {
			b.documents[id] = append(docs[:i:i], docs[i+1:]...)
			break
		}
	}
	c.Status(http.StatusNoContent)
}

func (b *Backend) uploadDocument(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	kind := c.Param("kind")
	if kind != "txt" && kind != "pdf" && kind != "docx" {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "No file has been uploaded.")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer f.Close()
	content, _ := io.ReadAll(f)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.documents[id] = append(b.documents[id], model.Document{
		ID:       uuid.NewString(),
		Content:  strings.TrimSpace(string(content)),
		Metadata: map[string]any{"source": filepath.Base(fh.Filename), "type": kind},
	})
	c.Status(http.StatusNoContent)
}
