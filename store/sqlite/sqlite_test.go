package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/capacity-engine/generic"
)

func snapshot(seq int64, period, name string, ap generic.Value) generic.Snapshot {
	return generic.Snapshot{
		ID:         name + "-" + period,
		Seq:        seq,
		Period:     period,
		Level:      generic.LevelUnit,
		Name:       name,
		RecordedAt: time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
		Metrics:    generic.MetricSet{AP: ap, Utilization: generic.Undefined, RAG: generic.RAGUndefined},
	}
}

func TestStore_RoundTripKeepsUndefined(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	// GIVEN: Two periods with an undefined metric
	require.NoError(t, s.AppendBatch(ctx, []generic.Snapshot{
		snapshot(1, "2025 Q3", "Aitkin", generic.MustValue("12.5")),
		snapshot(2, "2025 Q4", "Aitkin", generic.Undefined),
	}))

	// WHEN: Loading
	all, err := s.Load(ctx)
	require.NoError(t, err)

	// THEN: Values, undefined cells and timestamps come back unchanged
	require.Len(t, all, 2)
	assert.True(t, generic.MustValue("12.5").Equal(all[0].Metrics.AP))
	assert.False(t, all[1].Metrics.AP.IsDefined())
	assert.False(t, all[0].Metrics.Utilization.IsDefined())
	assert.True(t, all[0].RecordedAt.Equal(time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, generic.RAGUndefined, all[0].Metrics.RAG)

	q4, err := s.LoadPeriod(ctx, "2025 Q4")
	require.NoError(t, err)
	require.Len(t, q4, 1)
	assert.Equal(t, int64(2), q4[0].Seq)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_FailedBatchWritesNothing(t *testing.T) {
	s, err := New(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.AppendBatch(ctx, []generic.Snapshot{snapshot(1, "2025 Q3", "Aitkin", generic.One)}))

	// A batch whose second row reuses seq 1 is rolled back entirely
	err = s.AppendBatch(ctx, []generic.Snapshot{
		snapshot(2, "2025 Q4", "Anoka", generic.One),
		snapshot(1, "2025 Q4", "Benton", generic.One),
	})
	assert.Error(t, err)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capacity.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.AppendBatch(ctx, []generic.Snapshot{snapshot(1, "2025 Q3", "Aitkin", generic.One)}))
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	rows, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Aitkin", rows[0].Name)
}
