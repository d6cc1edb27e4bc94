package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrLoginFailed is returned when the backend rejects the credentials.
	ErrLoginFailed = errors.New("incorrect username or password")
	// ErrEmptyBody is returned when a response to decode has no body.
	ErrEmptyBody = errors.New("empty response body")
)

// Error is a non-success backend response reduced to one readable message.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string { return e.Message }

// GenericMessage is the message used when an error response carries no
// structured error of its own.
func GenericMessage(status int) string {
	return fmt.Sprintf("HTTP error status: %d. Sorry, something went wrong. Please try again later or contact support.", status)
}

type errorBody struct {
	Error string `json:"error"`
}

// CheckResponse returns nil for a 2xx response and an *Error otherwise.
//
// The message is the body's "error" field when the body is JSON and has one,
// else GenericMessage. An unreadable or non-JSON body is not an error in
// itself. The body of a successful response is left unread.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body errorBody
	if b, err := io.ReadAll(resp.Body); err == nil {
		_ = json.Unmarshal(b, &body)
	}
	if body.Error != "" {
		return &Error{StatusCode: resp.StatusCode, Message: body.Error}
	}
	return &Error{StatusCode: resp.StatusCode, Message: GenericMessage(resp.StatusCode)}
}

// StatusCode extracts the HTTP status from an error returned by this
// package, or 0 if there is none.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
