package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNew_SharesTransport(t *testing.T) {
	ctx := context.Background()
	doer := new(mockDoer)
	doer.On("Do", mock.MatchedBy(func(req *http.Request) bool { return req.URL.Path == "/api/events" })).
		Return(cannedResponse(http.StatusOK, "[]"), nil).Once()
	doer.On("Do", mock.MatchedBy(func(req *http.Request) bool { return req.URL.Path == "/api/group/g" })).
		Return(cannedResponse(http.StatusOK, `{"id":"g","name":"G"}`), nil).Once()
	doer.On("Do", mock.MatchedBy(func(req *http.Request) bool { return req.URL.Path == "/api/auth/me" })).
		Return(cannedResponse(http.StatusForbidden, ""), nil).Once()

	c := New("http://backend/", doer)

	events, err := c.Events.FetchEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	g, err := c.Groups.GetGroup(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, "G", g.Name)

	u, err := c.Users.GetInfo(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	doer.AssertExpectations(t)
}

func TestRequester_SendsGETWithContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")

	doer := new(mockDoer)
	doer.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == http.MethodGet &&
			req.Header.Get("Accept") == "application/json" &&
			req.Context().Value(ctxKey{}) == "marker"
	})).Return(cannedResponse(http.StatusOK, "[]"), nil).Once()

	_, err := NewEventClient("http://backend", doer).FetchEvents(ctx)

	require.NoError(t, err)
	doer.AssertExpectations(t)
}

func TestNewRequester_NilDoerUsesDefaultClient(t *testing.T) {
	r := newRequester("http://backend///", nil)

	assert.Equal(t, http.DefaultClient, r.doer)
	assert.Equal(t, "http://backend", r.baseURL)
}

func TestIsSuccess(t *testing.T) {
	assert.True(t, isSuccess(200))
	assert.True(t, isSuccess(204))
	assert.True(t, isSuccess(299))
	assert.False(t, isSuccess(199))
	assert.False(t, isSuccess(300))
	assert.False(t, isSuccess(401))
}
