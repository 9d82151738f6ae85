package health

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/memstore"
	"github.com/civicpulse/civicpulse/internal/scheduler"
)

// unreachableStore simulates a database outage during sampling.
type unreachableStore struct {
	domain.CommentStore
}

func (unreachableStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func seedRaw(t *testing.T, store *memstore.Store, attempts int) {
	t.Helper()
	c, err := store.InsertRaw(context.Background(), domain.NewComment{
		PostID:     "post-1",
		CompanyID:  "company-1",
		RawComment: "text",
		WordCount:  1,
	})
	require.NoError(t, err)
	if attempts > 0 {
		require.NoError(t, store.UpdateAttempts(context.Background(), c.ID, attempts))
	}
}

func seedFailed(t *testing.T, store *memstore.Store) {
	t.Helper()
	c, err := store.InsertRaw(context.Background(), domain.NewComment{
		PostID:     "post-1",
		CompanyID:  "company-1",
		RawComment: "text",
		WordCount:  1,
	})
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(context.Background(), c.ID, domain.MaxProcessingAttempts, "boom"))
}

func TestTickRecordsHealthySample(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := memstore.New(clock)
	seedRaw(t, store, 1)
	seedFailed(t, store)

	monitor := NewMonitor(store, clock)

	outcome, err := monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scheduler.OutcomeOK, outcome)

	sample := monitor.Last()
	assert.True(t, sample.Healthy)
	assert.Equal(t, 2, sample.RecentComments)
	assert.Equal(t, 1, sample.PendingCount)
	assert.Equal(t, 1, sample.FailedCount)
	assert.Empty(t, sample.Error)
}

func TestTickCountsOnlyRecentComments(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := memstore.New(clock)
	seedRaw(t, store, 0)

	clock.Advance(10 * time.Minute)
	seedRaw(t, store, 0)

	monitor := NewMonitor(store, clock)
	_, err := monitor.Tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, monitor.Last().RecentComments)
}

func TestTickStoreOutageIsUnhealthyNotFatal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := unreachableStore{CommentStore: memstore.New(clock)}

	monitor := NewMonitor(store, clock)

	outcome, err := monitor.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scheduler.OutcomeOK, outcome)

	sample := monitor.Last()
	assert.False(t, sample.Healthy)
	assert.Contains(t, sample.Error, "connection refused")
}

func TestTickEmitsHealthRecordWhenUnhealthy(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(previous)

	clock := clockwork.NewFakeClock()
	store := unreachableStore{CommentStore: memstore.New(clock)}

	monitor := NewMonitor(store, clock)
	_, err := monitor.Tick(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "System health")
	assert.Contains(t, out, `"healthy":false`)
}
