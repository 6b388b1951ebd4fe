package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSnapshotScheduler_OncePerPeriod(t *testing.T) {
	// GIVEN: A scheduler over an empty session
	h, router := newTestHandler(t)
	s := NewSnapshotScheduler(h.Session, zap.NewNop())
	s.Now = func() time.Time { return fixedNow }
	ctx := context.Background()

	// THEN: Nothing is appended before tables are loaded
	assert.Equal(t, "", s.RunNow(ctx))

	// WHEN: Tables are loaded
	require.Equal(t, http.StatusOK, upload(t, router, map[string]string{"outputs": outputsCSV}).Code)

	// THEN: The current period is recorded once
	assert.Equal(t, "2025 Q4", s.RunNow(ctx))
	assert.Equal(t, "", s.RunNow(ctx))

	rows, err := h.Session.History(ctx, "2025 Q4")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	// WHEN: Time moves into the next quarter
	s.Now = func() time.Time { return fixedNow.AddDate(0, 2, 0) }

	// THEN: The new period gets its own snapshot
	assert.Equal(t, "2026 Q1", s.RunNow(ctx))
}

func TestSnapshotScheduler_DisabledDoesNotStart(t *testing.T) {
	h, _ := newTestHandler(t)
	s := NewSnapshotScheduler(h.Session, zap.NewNop())

	s.Start()
	s.Stop()

	assert.Equal(t, time.Hour, s.CheckInterval)
	assert.Nil(t, s.ticker)
}
