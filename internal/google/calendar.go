package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"vrcal/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	credentialsFile = "credentials.json"

	// eventIDProperty holds the vrc_event_id in the event's private extended properties.
	eventIDProperty = "vrc_event_id"
)

// CalendarClient pushes calendar entries to one Google Calendar.
type CalendarClient struct {
	service    *calendar.Service
	logger     *slog.Logger
	calendarID string
}

// NewClient creates a Google Calendar client for accountName writing into calendarID.
// The token is read from token-<accountName>.json, written by the auth command.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName, calendarID string) (*CalendarClient, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := tokenFromFile(TokenFile(accountName))
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return newCalendarClient(service, logger, calendarID), nil
}

func newCalendarClient(service *calendar.Service, logger *slog.Logger, calendarID string) *CalendarClient {
	return &CalendarClient{service: service, logger: logger, calendarID: calendarID}
}

// Name identifies this target in logs and metrics.
func (c *CalendarClient) Name() string { return "google" }

// SyncEvent imports the entry. Import is keyed by iCalUID, so repeating it
// updates the existing event instead of creating a duplicate.
func (c *CalendarClient) SyncEvent(ctx context.Context, entry *models.CalendarEntry) error {
	c.logger.Debug("Importing event into Google Calendar", "title", entry.Title, "uid", entry.UID, "calendarID", c.calendarID)

	if _, err := c.service.Events.Import(c.calendarID, ToGoogleEvent(entry)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to import event: %w", err)
	}

	c.logger.Info("Successfully synced event to Google Calendar", "title", entry.Title)
	return nil
}

// ToGoogleEvent converts a calendar entry to the Google Calendar event model.
func ToGoogleEvent(entry *models.CalendarEntry) *calendar.Event {
	ev := &calendar.Event{
		ICalUID:     entry.UID,
		Summary:     entry.Title,
		Description: entry.Description,
		Start:       toEventDateTime(entry.Start),
		End:         toEventDateTime(entry.End),
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{eventIDProperty: entry.EventID},
		},
	}
	if entry.URL != "" {
		title := entry.GroupName
		if title == "" {
			title = entry.Title
		}
		ev.Source = &calendar.EventSource{Title: title, Url: entry.URL}
	}
	return ev
}

func toEventDateTime(t time.Time) *calendar.EventDateTime {
	dt := &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
	if name := t.Location().String(); name != "Local" {
		dt.TimeZone = name
	}
	return dt
}

// ListCalendars returns the ids and names of the calendars the account can see.
func (c *CalendarClient) ListCalendars(ctx context.Context) (map[string]string, error) {
	list, err := c.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}

	calendars := make(map[string]string, len(list.Items))
	for _, item := range list.Items {
		calendars[item.Id] = item.Summary
	}
	return calendars, nil
}

// GetOAuthConfigForAuthFlow is used by the auth command to get the config for the web flow.
func GetOAuthConfigForAuthFlow(clientID, clientSecret string) (*oauth2.Config, error) {
	return getOAuthConfig(clientID, clientSecret)
}

// getOAuthConfig reads credentials and returns an OAuth2 config.
// It prioritizes environment variables over a local credentials.json file.
func getOAuthConfig(clientID, clientSecret string) (*oauth2.Config, error) {
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
			Scopes:       []string{calendar.CalendarScope},
			Endpoint:     google.Endpoint,
		}, nil
	}

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return nil, fmt.Errorf("credentials.json not found. Please provide GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars or place credentials.json in the root directory")
		}
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = "urn:ietf:wg:oauth:2.0:oob" // For desktop app flow
	return config, nil
}

// TokenFromWeb exchanges an authorization code for a token.
func TokenFromWeb(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	return config.Exchange(ctx, authCode)
}

// TokenFile is the token path for an account name.
func TokenFile(accountName string) string {
	return fmt.Sprintf("token-%s.json", accountName)
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// tokenFromFile retrieves a token from a local file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
