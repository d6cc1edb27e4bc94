package session

import (
	"net/http"
	"time"

	"github.com/rcliao/ownai-workshop/internal/model"
)

// FromHTTP converts response cookies for persistence. Max-Age takes
// precedence over Expires and is resolved against now.
func FromHTTP(cookies []*http.Cookie, now time.Time) []model.Cookie {
	out := make([]model.Cookie, 0, len(cookies))
	for _, c := range cookies {
		mc := model.Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain}
		switch {
		case c.MaxAge > 0:
			exp := now.Add(time.Duration(c.MaxAge) * time.Second).UTC().Truncate(time.Second)
			mc.Expires = &exp
		case c.MaxAge < 0:
			exp := now.UTC()
			mc.Expires = &exp
		case !c.Expires.IsZero():
			exp := c.Expires.UTC()
			mc.Expires = &exp
		}
		out = append(out, mc)
	}
	return out
}

// ToHTTP converts persisted cookies back, dropping those that have expired.
func ToHTTP(cookies []model.Cookie, now time.Time) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c.Expires != nil && !c.Expires.After(now) {
			continue
		}
		hc := &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Domain: c.Domain}
		if c.Expires != nil {
			hc.Expires = *c.Expires
		}
		out = append(out, hc)
	}
	return out
}
