package model

import "time"

// Session is a persisted backend login for one base URL.
type Session struct {
	ID        string    `json:"id"`
	BaseURL   string    `json:"base_url"`
	Username  string    `json:"username"`
	Cookies   []Cookie  `json:"cookies,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Cookie is the persisted subset of an HTTP cookie.
type Cookie struct {
	Name    string     `json:"name"`
	Value   string     `json:"value"`
	Path    string     `json:"path,omitempty"`
	Domain  string     `json:"domain,omitempty"`
	Expires *time.Time `json:"expires,omitempty"`
}
