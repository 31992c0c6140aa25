package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"vrcal/internal/api"
	"vrcal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startBackend serves canned responses by request URI and points the CLI at it.
func startBackend(t *testing.T, routes map[string]string, status map[string]int) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, ok := routes[r.URL.RequestURI()]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if code, ok := status[r.URL.RequestURI()]; ok {
			w.WriteHeader(code)
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	t.Setenv("VRCAL_API_URL", srv.URL)
	t.Setenv("VRCAL_API_KEY", "test-key")
	t.Setenv("VRCAL_SESSION", "")
	t.Setenv("PRIMARY_TIMEZONE", "UTC")
	t.Setenv("HTTP_TIMEOUT", "")
	t.Setenv("STATE_FILE", filepath.Join(t.TempDir(), "state.json"))
	t.Setenv("ICLOUD_USERNAME", "")
	t.Setenv("ICLOUD_CALENDAR_NAME", "")
	t.Setenv("GOOGLE_CALENDAR_ID", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).RunContext(context.Background(), append([]string{"vrcal"}, args...))
	return out.String(), err
}

func TestEventsCommand(t *testing.T) {
	startBackend(t, map[string]string{
		"/api/events":                `[{"vrc_event_id":"e1","name":"A","platforms":[]}]`,
		"/api/events?category=music": `[]`,
	}, nil)

	out, err := run(t, "events")
	require.NoError(t, err)
	var events []models.Event
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].ID)

	out, err = run(t, "events", "--filter", "category=music")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestEventCommand(t *testing.T) {
	startBackend(t, map[string]string{
		"/api/event/e1": `{"vrc_event_id":"e1","name":"A","platforms":["android"]}`,
	}, nil)

	out, err := run(t, "event", "e1")
	require.NoError(t, err)
	assert.Contains(t, out, `"vrc_event_id": "e1"`)

	_, err = run(t, "event", "abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrRequestFailed)
	assert.Contains(t, err.Error(), "abc")

	_, err = run(t, "event")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected exactly one argument")
}

func TestGroupCommand(t *testing.T) {
	startBackend(t, map[string]string{
		"/api/group/g1": `{"id":"g1","name":"Night Owls"}`,
	}, nil)

	out, err := run(t, "group", "g1")

	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"g1","name":"Night Owls"}`, out)
}

func TestMeCommand(t *testing.T) {
	t.Run("logged in", func(t *testing.T) {
		startBackend(t, map[string]string{
			"/api/auth/me": `{"id":"1","username":"x","avatar":"a"}`,
		}, nil)

		out, err := run(t, "me")

		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"1","username":"x","display_name":"x","avatar_url":"http://cdn.discordapp.com/avatars/1/a.webp?size=512"}`, out)
	})

	t.Run("logged out", func(t *testing.T) {
		startBackend(t, map[string]string{"/api/auth/me": `{"message":"you are not authorized to access this content"}`},
			map[string]int{"/api/auth/me": http.StatusUnauthorized})

		out, err := run(t, "me")

		require.NoError(t, err)
		assert.Equal(t, "not logged in\n", out)
	})

	t.Run("null body", func(t *testing.T) {
		startBackend(t, map[string]string{"/api/auth/me": `null`}, nil)

		out, err := run(t, "me")

		require.NoError(t, err)
		assert.Equal(t, "not logged in\n", out)
	})

	t.Run("server error", func(t *testing.T) {
		startBackend(t, map[string]string{"/api/auth/me": ``},
			map[string]int{"/api/auth/me": http.StatusInternalServerError})

		_, err := run(t, "me")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})
}

func TestSyncCommand_RequiresTarget(t *testing.T) {
	startBackend(t, map[string]string{"/api/events": `[]`}, nil)

	_, err := run(t, "sync", "--once")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no calendar targets configured")
}

func TestSyncCommand_RejectsNonPositiveWatch(t *testing.T) {
	startBackend(t, map[string]string{"/api/events": `[]`}, nil)
	t.Setenv("METRICS_ADDR", "127.0.0.1:0")

	for _, interval := range []string{"0", "-5"} {
		_, err := run(t, "sync", "--watch", interval)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "--watch must be a positive number of seconds")
		assert.NotContains(t, err.Error(), "no calendar targets configured")
	}
}

func TestCommands_RequireAPIURL(t *testing.T) {
	t.Setenv("VRCAL_API_URL", "")

	_, err := run(t, "events")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "VRCAL_API_URL")
}

func TestParseFilters(t *testing.T) {
	q, err := parseFilters(nil)
	require.NoError(t, err)
	assert.Nil(t, q)

	q, err = parseFilters([]string{"vrc_group_id=g1", "tag=a", "tag=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, url.Values{"vrc_group_id": {"g1"}, "tag": {"a", "b"}, "empty": {""}}, q)

	_, err = parseFilters([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseFilters([]string{"=x"})
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	for _, level := range []string{"debug", "WARN", "error", "other"} {
		assert.NotNil(t, setupLogger(level))
	}
}
