package api

import (
	"context"
	"net/url"

	"vrcal/internal/models"
)

// EventClient reads events.
type EventClient struct {
	r requester
}

// NewEventClient returns an EventClient for the backend at baseURL.
func NewEventClient(baseURL string, doer Doer) *EventClient {
	return &EventClient{r: newRequester(baseURL, doer)}
}

// FetchEvents returns every event. An empty list is not an error.
func (c *EventClient) FetchEvents(ctx context.Context) ([]models.Event, error) {
	return c.QueryEvents(ctx, nil)
}

// QueryEvents returns the events matching query. The backend interprets the
// parameters; an empty query behaves like FetchEvents.
func (c *EventClient) QueryEvents(ctx context.Context, query url.Values) ([]models.Event, error) {
	events := []models.Event{}
	if err := c.r.getJSON(ctx, "load events", "/api/events", query, &events); err != nil {
		return nil, err
	}
	if events == nil {
		// a literal null body
		events = []models.Event{}
	}
	return events, nil
}

// FetchEvent returns the event with the given id. A missing event is reported
// like any other failure.
func (c *EventClient) FetchEvent(ctx context.Context, id string) (*models.Event, error) {
	var ev models.Event
	if err := c.r.getJSON(ctx, "load event "+id, "/api/event/"+url.PathEscape(id), nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
