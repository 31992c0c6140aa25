package api

import (
	"context"
	"net/url"

	"vrcal/internal/models"
)

// GroupClient reads groups.
type GroupClient struct {
	r requester
}

// NewGroupClient returns a GroupClient for the backend at baseURL.
func NewGroupClient(baseURL string, doer Doer) *GroupClient {
	return &GroupClient{r: newRequester(baseURL, doer)}
}

// GetGroup returns the group with the given id.
func (c *GroupClient) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	var g models.Group
	if err := c.r.getJSON(ctx, "load group "+id, "/api/group/"+url.PathEscape(id), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
