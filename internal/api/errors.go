package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrRequestFailed matches every *RequestFailedError under errors.Is.
var ErrRequestFailed = errors.New("request failed")

// errorBodyLimit caps how much of a failed response is read for its error body.
const errorBodyLimit = 4096

// RequestFailedError reports a response whose status was outside 200-299.
type RequestFailedError struct {
	Op         string // e.g. "load events", "load event abc"
	StatusCode int
	// Message and Detail come from the backend's {"message","detail"} error body, when present.
	Message string
	Detail  string
}

func (e *RequestFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to %s: %d", e.Op, e.StatusCode)
	if e.Message != "" {
		b.WriteString(" (")
		b.WriteString(e.Message)
		if e.Detail != "" {
			b.WriteString(": ")
			b.WriteString(e.Detail)
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}

type errorBody struct {
	Message string  `json:"message"`
	Detail  *string `json:"detail"`
}

func newRequestFailed(op string, resp *http.Response) *RequestFailedError {
	rf := &RequestFailedError{Op: op, StatusCode: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		rf.Message = body.Message
		if body.Detail != nil {
			rf.Detail = *body.Detail
		}
	}
	return rf
}
