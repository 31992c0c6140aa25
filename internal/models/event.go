package models

import "time"

// Event is a group calendar entry as served by the backend.
// Every field is passed through verbatim; the client never validates or rewrites it.
type Event struct {
	ID          string   `json:"vrc_event_id"`
	GroupID     string   `json:"vrc_group_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	StartsAt    string   `json:"starts_at"`
	EndsAt      string   `json:"ends_at"`
	Category    string   `json:"category"`
	AccessType  string   `json:"access_type"`
	Platforms   []string `json:"platforms"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

// StartTime parses StartsAt as RFC3339.
func (e Event) StartTime() (time.Time, error) {
	return time.Parse(time.RFC3339, e.StartsAt)
}

// EndTime parses EndsAt as RFC3339.
func (e Event) EndTime() (time.Time, error) {
	return time.Parse(time.RFC3339, e.EndsAt)
}
