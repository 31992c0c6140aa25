// Package transport builds the HTTP client used to talk to the vrcal backend.
package transport

import (
	"net"
	"net/http"
	"time"
)

// SessionCookie is the backend's session cookie name.
const SessionCookie = "__Host-Http-Session"

// DefaultUserAgent is sent when Options.UserAgent is empty. The backend rejects
// API-key requests without a User-Agent.
const DefaultUserAgent = "vrcal/1.0"

// Options configures NewHTTPClient.
type Options struct {
	APIKey    string
	Session   string
	UserAgent string
	// Timeout of zero means no client-side timeout.
	Timeout time.Duration
	// Instrument, when set, wraps the base transport (e.g. with metrics).
	Instrument func(http.RoundTripper) http.RoundTripper
}

// authTransport adds the User-Agent and the backend credentials to each request.
type authTransport struct {
	APIKey    string
	Session   string
	UserAgent string
	Transport http.RoundTripper
}

// RoundTrip clones req before adding headers, as http.RoundTripper requires.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	ua := t.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	r.Header.Set("User-Agent", ua)
	if t.APIKey != "" {
		r.Header.Set("X-API-Key", t.APIKey)
	}
	if t.Session != "" {
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: t.Session})
	}
	return t.Transport.RoundTrip(r)
}

// NewAuthTransport wraps next with credential injection. A nil next uses http.DefaultTransport.
func NewAuthTransport(next http.RoundTripper, apiKey, session, userAgent string) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &authTransport{APIKey: apiKey, Session: session, UserAgent: userAgent, Transport: next}
}

func newBaseTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
}

// NewHTTPClient returns a client that authenticates every request.
func NewHTTPClient(opts Options) *http.Client {
	var rt http.RoundTripper = newBaseTransport()
	if opts.Instrument != nil {
		rt = opts.Instrument(rt)
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: NewAuthTransport(rt, opts.APIKey, opts.Session, opts.UserAgent),
	}
}
