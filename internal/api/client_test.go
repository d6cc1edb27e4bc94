package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", time.Second, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient("/api", 0, zerolog.Nop())
	assert.Error(t, err)
}

func TestDo_SendsJSONAndDecodes(t *testing.T) {
	var gotMethod, gotPath, gotType, gotID string
	var gotBody map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotID = r.Header.Get(RequestIDHeader)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":3,"name":"A"}`))
	}))

	var out struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	err := c.Do(context.Background(), http.MethodPost, "/api/ai/", map[string]string{"name": "A"}, &out)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/ai/", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "A", gotBody["name"])
	_, err = ulid.Parse(gotID)
	assert.NoError(t, err, "request id should be a ULID")
	assert.Equal(t, 3, out.ID)
	assert.Equal(t, "A", out.Name)
}

func TestDo_UniqueRequestIDs(t *testing.T) {
	seen := map[string]bool{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.Header.Get(RequestIDHeader)] = true
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Do(context.Background(), http.MethodDelete, "/api/ai/1", nil, nil))
	}
	assert.Len(t, seen, 5)
}

func TestDo_EmptyBodyWithOut(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	var out map[string]any
	err := c.Do(context.Background(), http.MethodPost, "/api/ai/", map[string]any{"name": "A"}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyBody)
	assert.Contains(t, err.Error(), "decode POST /api/ai/")
	assert.Nil(t, out)
}

func TestDo_EmptyBodyWithoutOut(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.NoError(t, c.Do(context.Background(), http.MethodDelete, "/api/knowledge/1", nil, nil))
}

func TestDo_NormalizesErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/structured" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"Unknown embeddings type."}`))
			return
		}
		http.Error(w, "internal", http.StatusInternalServerError)
	}))

	err := c.Do(context.Background(), http.MethodGet, "/structured", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "Unknown embeddings type.", err.Error())

	err = c.Do(context.Background(), http.MethodGet, "/plain", nil, nil)
	require.Error(t, err)
	assert.Equal(t, GenericMessage(500), err.Error())
}

func TestDo_DecodeError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))

	var out []int
	err := c.Do(context.Background(), http.MethodGet, "/api/ai/", nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode GET /api/ai/")
}

func TestDo_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := NewClient(srv.URL, time.Second, zerolog.Nop())
	require.NoError(t, err)
	srv.Close()

	err = c.Do(context.Background(), http.MethodGet, "/api/ai/", nil, nil)
	require.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
	assert.Contains(t, err.Error(), "GET /api/ai/")
}

func TestUpload_Multipart(t *testing.T) {
	var gotName, gotContent string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, `{"error":"No file has been uploaded."}`, http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotName, gotContent = hdr.Filename, string(b)
		w.WriteHeader(http.StatusNoContent)
	}))

	err := c.Upload(context.Background(), "/api/knowledge/1/document/txt", "/tmp/notes/readme.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "readme.txt", gotName)
	assert.Equal(t, "hello", gotContent)
}

func loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/auth/login" {
		if _, err := r.Cookie("session"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[]`))
		return
	}
	r.ParseForm()
	if r.PostForm.Get("username") == "demo" && r.PostForm.Get("password") == "secret" {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/", Expires: time.Now().Add(time.Hour)})
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	w.Write([]byte("<html>Incorrect username or password.</html>"))
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(loginHandler))
	ctx := context.Background()

	cookies, err := c.Login(ctx, "demo", "wrong")
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Empty(t, cookies)
	assert.Empty(t, c.Cookies())

	cookies, err = c.Login(ctx, "demo", "secret")
	require.NoError(t, err)
	require.Len(t, c.Cookies(), 1)
	assert.Equal(t, "session", c.Cookies()[0].Name)

	var ais []any
	assert.NoError(t, c.Do(ctx, http.MethodGet, "/api/ai/", nil, &ais))

	// The jar drops cookie attributes; the login response keeps them.
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc", cookies[0].Value)
	assert.Equal(t, "/", cookies[0].Path)
	assert.False(t, cookies[0].Expires.IsZero())
	assert.WithinDuration(t, time.Now().Add(time.Hour), cookies[0].Expires, time.Minute)
}

func TestLogout(t *testing.T) {
	var loggedOut bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/logout":
			loggedOut = true
			http.Redirect(w, r, "/", http.StatusFound)
		case "/":
			t.Error("logout redirect should not be followed")
		}
	}))

	require.NoError(t, c.Logout(context.Background()))
	assert.True(t, loggedOut)
}

func TestLogout_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := c.Logout(context.Background())
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
}

func TestSetCookies_RestoresSession(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(loginHandler))
	ctx := context.Background()

	err := c.Do(ctx, http.MethodGet, "/api/ai/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))

	c.SetCookies([]*http.Cookie{{Name: "session", Value: "abc"}})
	assert.NoError(t, c.Do(ctx, http.MethodGet, "/api/ai/", nil, nil))
}
