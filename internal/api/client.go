// Package api is the HTTP transport to the workshop backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries a ULID that identifies one request in logs.
const RequestIDHeader = "X-Request-ID"

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Client talks JSON to the backend and keeps the session cookies in a jar.
type Client struct {
	base    *url.URL
	baseURL string
	client  *http.Client
	log     zerolog.Logger

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, _ := cookiejar.New(nil)

	return &Client{
		base:    u,
		baseURL: u.String(),
		client:  &http.Client{Timeout: timeout, Jar: jar},
		log:     log,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends in as JSON (when non-nil) and decodes the response into out (when
// non-nil). Non-2xx responses come back as *Error from CheckResponse. A
// response without a body is an error when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(c.client, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := CheckResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrEmptyBody
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Upload posts r as the multipart form field "file".
func (c *Client) Upload(ctx context.Context, path, filename string, r io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send(c.client, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return CheckResponse(resp)
}

// Login submits the login form. The backend answers a successful login with
// a redirect and sets the session cookie; a failed one re-renders the form.
// The cookies set by a successful login are returned with their attributes,
// which the jar does not report back.
func (c *Client) Login(ctx context.Context, username, password string) ([]*http.Cookie, error) {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.send(c.noRedirect(), req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return resp.Cookies(), nil
	}
	if err := CheckResponse(resp); err != nil {
		return nil, err
	}
	return nil, ErrLoginFailed
}

// Logout ends the backend session. The backend answers with a redirect.
func (c *Client) Logout(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/logout", nil)
	if err != nil {
		return err
	}
	resp, err := c.send(c.noRedirect(), req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return nil
	}
	return CheckResponse(resp)
}

func (c *Client) noRedirect() *http.Client {
	hc := *c.client
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &hc
}

// Cookies returns the jar's cookies for the backend.
func (c *Client) Cookies() []*http.Cookie {
	return c.client.Jar.Cookies(c.base)
}

// SetCookies loads cookies, typically a restored session, into the jar.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.client.Jar.SetCookies(c.base, cookies)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, c.newRequestID())
	return req, nil
}

func (c *Client) send(hc *http.Client, req *http.Request) (*http.Response, error) {
	id := req.Header.Get(RequestIDHeader)
	start := time.Now()

	resp, err := hc.Do(req)
	if err != nil {
		c.log.Warn().Err(err).
			Str("request_id", id).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Msg("request failed")
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}

	c.log.Debug().
		Str("request_id", id).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request")
	return resp, nil
}

func (c *Client) newRequestID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), c.entropy).String()
}
