package models

// Group is a named collection of events under common ownership.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
