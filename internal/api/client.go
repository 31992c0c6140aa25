// Package api reads events, groups and the logged-in user from the vrcal backend.
//
// Every call is a single GET with no retry and no caching. A status outside 200-299
// is reported as a *RequestFailedError.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Doer sends an HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client bundles the event, group and user-info clients over one transport.
type Client struct {
	Events *EventClient
	Groups *GroupClient
	Users  *UserInfoClient
}

// New returns a Client for the backend at baseURL. A nil doer uses http.DefaultClient.
func New(baseURL string, doer Doer) *Client {
	return &Client{
		Events: NewEventClient(baseURL, doer),
		Groups: NewGroupClient(baseURL, doer),
		Users:  NewUserInfoClient(baseURL, doer),
	}
}

type requester struct {
	baseURL string
	doer    Doer
}

func newRequester(baseURL string, doer Doer) requester {
	if doer == nil {
		doer = http.DefaultClient
	}
	return requester{baseURL: strings.TrimRight(baseURL, "/"), doer: doer}
}

// get issues a GET for path and returns the raw response. The caller closes the body.
func (r requester) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return r.doer.Do(req)
}

// getJSON performs a GET and decodes a 2xx body into out. op names the
// operation in errors, e.g. "load event abc".
func (r requester) getJSON(ctx context.Context, op, path string, query url.Values, out any) error {
	resp, err := r.get(ctx, path, query)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return newRequestFailed(op, resp)
	}
	return decode(op, resp.Body, out)
}

func decode(op string, body io.Reader, out any) error {
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("failed to %s: decode response: %w", op, err)
	}
	return nil
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
