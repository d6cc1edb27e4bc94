// Package guard blocks destructive actions for the shared demo account.
package guard

import "errors"

// ErrDemoUser is returned for actions the demo user may not perform.
var ErrDemoUser = errors.New("this action is disabled for the demo user")

// RequireFullAccess fails when demo mode is on. Call it before any request.
func RequireFullAccess(demo bool) error {
	if demo {
		return ErrDemoUser
	}
	return nil
}
