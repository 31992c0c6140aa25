package models

import "time"

// CalendarEntry is an event resolved for export to a calendar provider.
// This is an internal representation, independent of any specific calendar provider.
type CalendarEntry struct {
	UID         string // iCalendar UID, stable across syncs
	EventID     string // vrc_event_id of the source event
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Categories  []string // category, access type and tags
	URL         string   // image or link for the event, may be empty
	GroupName   string
}
