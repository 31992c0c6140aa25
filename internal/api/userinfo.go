package api

import (
	"context"
	"fmt"
	"net/http"

	"vrcal/internal/models"
)

const opUserInfo = "fetch user info"

// UserInfoClient reads the user behind the current session.
type UserInfoClient struct {
	r requester
}

// NewUserInfoClient returns a UserInfoClient for the backend at baseURL.
func NewUserInfoClient(baseURL string, doer Doer) *UserInfoClient {
	return &UserInfoClient{r: newRequester(baseURL, doer)}
}

// GetInfo returns the logged-in user. It returns (nil, nil) when the backend
// answers 401 or 403, or a success with a null body: the caller is logged out,
// which is not an error.
func (c *UserInfoClient) GetInfo(ctx context.Context) (*models.User, error) {
	resp, err := c.r.get(ctx, "/api/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", opUserInfo, err)
	}
	defer resp.Body.Close()

	switch {
	case isSuccess(resp.StatusCode):
		var u *models.User
		if err := decode(opUserInfo, resp.Body, &u); err != nil {
			return nil, err
		}
		return u, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, nil
	default:
		return nil, newRequestFailed(opUserInfo, resp)
	}
}
