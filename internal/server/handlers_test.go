package server

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/civicpulse/civicpulse/internal/aggregate"
	"github.com/civicpulse/civicpulse/internal/cache"
	"github.com/civicpulse/civicpulse/internal/config"
	"github.com/civicpulse/civicpulse/internal/domain"
	"github.com/civicpulse/civicpulse/internal/health"
	"github.com/civicpulse/civicpulse/internal/memstore"
)

// testServer wires the handlers against the in-memory store.
func newTestServer(t *testing.T) (*Server, *memstore.Store) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	store := memstore.New(clock)
	engine := aggregate.NewEngine(store)
	snapCache := cache.NewMemoryCache()
	monitor := health.NewMonitor(store, clock)

	cfg := &config.Config{AppEnv: "test", Port: "8080"}
	srv := NewServer(cfg, store, engine, snapCache, nil, monitor, nil, clock)
	return srv, store
}

func seedRawComment(t *testing.T, store *memstore.Store) *domain.Comment {
	t.Helper()
	c, err := store.InsertRaw(context.Background(), domain.NewComment{
		PostID:             "post-1",
		PostTitle:          "Plastic ban draft",
		CompanyID:          "company-1",
		BusinessCategoryID: "cat-1",
		StakeholderName:    "Asha",
		RawComment:         "yeh niti theek hai",
		WordCount:          4,
	})
	require.NoError(t, err)
	return c
}
