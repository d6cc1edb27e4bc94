// Package session persists backend login sessions between CLI runs.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/ownai-workshop/internal/model"
)

// ErrNotFound is returned when no session is stored for a base URL.
var ErrNotFound = errors.New("no session stored")

// SaveParams holds parameters for storing a session.
type SaveParams struct {
	BaseURL  string
	Username string
	Cookies  []model.Cookie
}

// SQLiteStore keeps one session per backend base URL.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		base_url    TEXT NOT NULL UNIQUE,
		username    TEXT NOT NULL,
		cookies     TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save stores a session, replacing any previous one for the same base URL.
func (s *SQLiteStore) Save(ctx context.Context, p SaveParams) (*model.Session, error) {
	if p.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	cookies := p.Cookies
	if cookies == nil {
		cookies = []model.Cookie{}
	}
	b, err := json.Marshal(cookies)
	if err != nil {
		return nil, fmt.Errorf("encode cookies: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	id := s.newID()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, base_url, username, cookies, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(base_url) DO UPDATE SET
		   id = excluded.id,
		   username = excluded.username,
		   cookies = excluded.cookies,
		   created_at = excluded.created_at`,
		id, p.BaseURL, p.Username, string(b), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return &model.Session{
		ID:        id,
		BaseURL:   p.BaseURL,
		Username:  p.Username,
		Cookies:   cookies,
		CreatedAt: now,
	}, nil
}

// Get returns the session stored for baseURL.
func (s *SQLiteStore) Get(ctx context.Context, baseURL string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, base_url, username, cookies, created_at FROM sessions WHERE base_url = ?`, baseURL)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for %s", ErrNotFound, baseURL)
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete removes the session for baseURL.
func (s *SQLiteStore) Delete(ctx context.Context, baseURL string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE base_url = ?`, baseURL)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w for %s", ErrNotFound, baseURL)
	}
	return nil
}

// List returns all stored sessions, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, base_url, username, cookies, created_at FROM sessions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (model.Session, error) {
	var sess model.Session
	var cookiesJSON, createdAt string

	if err := row.Scan(&sess.ID, &sess.BaseURL, &sess.Username, &cookiesJSON, &createdAt); err != nil {
		return sess, err
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := json.Unmarshal([]byte(cookiesJSON), &sess.Cookies); err != nil {
		return sess, fmt.Errorf("decode cookies of %s: %w", sess.BaseURL, err)
	}
	return sess, nil
}
