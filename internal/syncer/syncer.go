package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"vrcal/internal/models"

	"github.com/google/uuid"
)

// EventSource lists backend events. *api.EventClient satisfies it.
type EventSource interface {
	QueryEvents(ctx context.Context, query url.Values) ([]models.Event, error)
}

// GroupLookup resolves group names. *api.GroupClient satisfies it.
type GroupLookup interface {
	GetGroup(ctx context.Context, id string) (*models.Group, error)
}

// Target is a calendar that entries are pushed to.
type Target interface {
	Name() string
	SyncEvent(ctx context.Context, entry *models.CalendarEntry) error
}

// Observer receives per-target outcomes. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveSync(target string, err error)
	MarkSyncFinished(t time.Time)
}

// SyncState keeps track of which events have been synced.
// The key is the vrc_event_id, and the value is the UID used in the calendars.
type SyncState map[string]string

// Options tunes a Syncer.
type Options struct {
	StateFile string
	Filter    url.Values
	DryRun    bool
	// Force pushes every event again, even if the state says it was synced.
	Force    bool
	Location *time.Location
	Groups   GroupLookup // optional
	Observer Observer    // optional
}

// Syncer exports backend events into calendar targets.
type Syncer struct {
	logger  *slog.Logger
	source  EventSource
	targets []Target
	opts    Options
	state   SyncState
	now     func() time.Time
}

// NewSyncer creates a new Syncer, loading any existing state from opts.StateFile.
func NewSyncer(logger *slog.Logger, source EventSource, targets []Target, opts Options) (*Syncer, error) {
	if len(targets) == 0 {
		return nil, errors.New("no calendar targets configured")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	state, err := loadState(opts.StateFile)
	if err != nil {
		// If the file doesn't exist, we can start with an empty state.
		if os.IsNotExist(err) {
			logger.Info("No sync state file found, starting fresh.", "file", opts.StateFile)
			state = make(SyncState)
		} else {
			return nil, fmt.Errorf("failed to load sync state: %w", err)
		}
	}

	return &Syncer{
		logger:  logger,
		source:  source,
		targets: targets,
		opts:    opts,
		state:   state,
		now:     time.Now,
	}, nil
}

// State returns a copy of the current sync state.
func (s *Syncer) State() SyncState {
	cp := make(SyncState, len(s.state))
	for k, v := range s.state {
		cp[k] = v
	}
	return cp
}

// Sync performs a full synchronization cycle.
func (s *Syncer) Sync(ctx context.Context) error {
	s.logger.Info("Starting sync cycle.")

	events, err := s.source.QueryEvents(ctx, s.opts.Filter)
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}
	s.logger.Info("Fetched events from backend.", "count", len(events))

	groupNames := make(map[string]string)
	for _, event := range events {
		if ctx.Err() != nil {
			break
		}
		if err := s.syncEvent(ctx, event, groupNames); err != nil {
			s.logger.Error("Failed to sync event", "title", event.Name, "id", event.ID, "error", err)
			// Continue with the next event even if one fails.
		}
	}

	if !s.opts.DryRun {
		if err := s.saveState(); err != nil {
			s.logger.Error("Failed to save sync state", "error", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.opts.Observer != nil {
		s.opts.Observer.MarkSyncFinished(s.now())
	}

	s.logger.Info("Sync cycle finished.")
	return nil
}

// syncEvent pushes one event to every target. The event is recorded in the
// state only when all targets accepted it.
func (s *Syncer) syncEvent(ctx context.Context, event models.Event, groupNames map[string]string) error {
	if _, exists := s.state[event.ID]; exists && !s.opts.Force {
		s.logger.Debug("Event already synced, skipping.", "title", event.Name, "id", event.ID)
		return nil
	}

	entry, err := s.toEntry(ctx, event, groupNames)
	if err != nil {
		s.logger.Warn("Skipping event with unusable times.", "title", event.Name, "id", event.ID, "error", err)
		return nil
	}

	if s.opts.DryRun {
		s.logger.Info("[DRY RUN] Would sync event", "title", entry.Title, "startTime", entry.Start, "targets", len(s.targets))
		return nil
	}

	s.logger.Info("Syncing event.", "title", entry.Title, "id", event.ID)
	var errs []error
	for _, target := range s.targets {
		err := target.SyncEvent(ctx, entry)
		if s.opts.Observer != nil {
			s.opts.Observer.ObserveSync(target.Name(), err)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", target.Name(), err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.state[event.ID] = entry.UID
	return nil
}

// toEntry resolves an event into a calendar entry in the primary timezone.
func (s *Syncer) toEntry(ctx context.Context, event models.Event, groupNames map[string]string) (*models.CalendarEntry, error) {
	start, err := event.StartTime()
	if err != nil {
		return nil, fmt.Errorf("starts_at: %w", err)
	}
	end, err := event.EndTime()
	if err != nil {
		return nil, fmt.Errorf("ends_at: %w", err)
	}

	groupName := s.groupName(ctx, event.GroupID, groupNames)

	var categories []string
	for _, c := range append([]string{event.Category, event.AccessType}, event.Tags...) {
		if c != "" {
			categories = append(categories, c)
		}
	}

	var link string
	if event.ImageURL != nil {
		link = *event.ImageURL
	}

	return &models.CalendarEntry{
		UID:         EntryUID(event.ID),
		EventID:     event.ID,
		Title:       event.Name,
		Description: describe(event, groupName),
		Start:       start.In(s.opts.Location),
		End:         end.In(s.opts.Location),
		Categories:  categories,
		URL:         link,
		GroupName:   groupName,
	}, nil
}

// groupName looks a group up at most once per cycle. Failures leave the name empty.
func (s *Syncer) groupName(ctx context.Context, groupID string, cache map[string]string) string {
	if s.opts.Groups == nil || groupID == "" {
		return ""
	}
	if name, ok := cache[groupID]; ok {
		return name
	}
	name := ""
	g, err := s.opts.Groups.GetGroup(ctx, groupID)
	if err != nil {
		s.logger.Warn("Could not resolve group name", "groupID", groupID, "error", err)
	} else if g != nil {
		name = g.Name
	}
	cache[groupID] = name
	return name
}

func describe(event models.Event, groupName string) string {
	var b strings.Builder
	b.WriteString(event.Description)
	if groupName != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Group: ")
		b.WriteString(groupName)
	}
	if len(event.Platforms) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Platforms: ")
		b.WriteString(strings.Join(event.Platforms, ", "))
	}
	return b.String()
}

// EntryUID derives the calendar UID for an event id. The same id always yields the same UID.
func EntryUID(eventID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("vrcal:"+eventID)).String()
}

// loadState loads the sync state from the JSON file.
func loadState(path string) (SyncState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state == nil {
		state = make(SyncState)
	}
	return state, nil
}

// saveState saves the current sync state to the JSON file.
func (s *Syncer) saveState() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	return os.WriteFile(s.opts.StateFile, data, 0644)
}
