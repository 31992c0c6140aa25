package syncer

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"time"

	"vrcal/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) QueryEvents(ctx context.Context, query url.Values) ([]models.Event, error) {
	args := m.Called(ctx, query)
	events, _ := args.Get(0).([]models.Event)
	return events, args.Error(1)
}

type mockGroups struct {
	mock.Mock
}

func (m *mockGroups) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	args := m.Called(ctx, id)
	g, _ := args.Get(0).(*models.Group)
	return g, args.Error(1)
}

type mockTarget struct {
	mock.Mock
	name string
}

func newMockTarget(name string) *mockTarget {
	return &mockTarget{name: name}
}

func (m *mockTarget) Name() string { return m.name }

func (m *mockTarget) SyncEvent(ctx context.Context, entry *models.CalendarEntry) error {
	return m.Called(ctx, entry).Error(0)
}

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) ObserveSync(target string, err error) {
	m.Called(target, err)
}

func (m *mockObserver) MarkSyncFinished(t time.Time) {
	m.Called(t)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
