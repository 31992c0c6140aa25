package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"vrcal/internal/models"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

const (
	iCloudCalDAVEndpoint = "https://caldav.icloud.com/"
	productID            = "-//vrcal//EN"
)

// basicAuthTransport handles adding Basic Auth and custom headers to requests.
type basicAuthTransport struct {
	Username  string
	Password  string
	UserAgent string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.SetBasicAuth(t.Username, t.Password)
	r.Header.Set("User-Agent", t.UserAgent)
	return t.Transport.RoundTrip(r)
}

// CalDAVClient pushes calendar entries to a CalDAV calendar (iCloud).
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	endpoint     string
	calendarURL  string
}

// NewClient connects to iCloud and resolves the calendar named calendarName.
func NewClient(ctx context.Context, logger *slog.Logger, username, password, calendarName, userAgent string) (*CalDAVClient, error) {
	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  username,
		Password:  password,
		UserAgent: userAgent,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     iCloudCalDAVEndpoint,
	}

	logger.Info("Finding iCloud calendar", "calendarName", calendarName)
	calendarURL, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarURL = calendarURL
	logger.Info("Successfully found iCloud calendar", "url", calendarURL)

	return c, nil
}

// Name identifies this target in logs and metrics.
func (c *CalDAVClient) Name() string { return "icloud" }

// SyncEvent creates or replaces the entry's object in the calendar.
func (c *CalDAVClient) SyncEvent(ctx context.Context, entry *models.CalendarEntry) error {
	c.logger.Debug("Syncing event to iCloud", "title", entry.Title, "uid", entry.UID)

	// The object path must be relative to the endpoint for the webdav client.
	objectPath := path.Join(strings.TrimPrefix(c.calendarURL, c.endpoint), entry.UID+".ics")

	writer, err := c.webdavClient.Create(ctx, objectPath)
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	if err := ical.NewEncoder(writer).Encode(ToICal(entry, time.Now().UTC())); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload event: %w", err)
	}

	c.logger.Info("Successfully synced event to iCloud", "title", entry.Title)
	return nil
}

// ToICal wraps the entry in a VCALENDAR holding a single VEVENT stamped at now.
func ToICal(entry *models.CalendarEntry, now time.Time) *ical.Calendar {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, entry.UID)
	ve.Props.SetText(ical.PropSummary, entry.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now)
	ve.Props.SetDateTime(ical.PropDateTimeStart, entry.Start)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, entry.End)

	if entry.Description != "" {
		ve.Props.SetText(ical.PropDescription, entry.Description)
	}
	for _, category := range entry.Categories {
		p := ical.NewProp(ical.PropCategories)
		p.SetText(category)
		ve.Props.Add(p)
	}
	if u, err := url.Parse(entry.URL); err == nil && entry.URL != "" && u.IsAbs() {
		p := ical.NewProp(ical.PropURL)
		p.SetValueType(ical.ValueURI)
		p.Value = u.String()
		ve.Props.Set(p)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, ve)
	return cal
}

// findCalendar discovers the user's calendars and returns the URL for the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return fmt.Sprintf("%s%s", strings.TrimSuffix(c.endpoint, "/"), cal.Path), nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
