package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/checkin-engine/checkin"
	"github.com/warp/checkin-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var (
	june14 = checkin.NewDay(2025, time.June, 14)
	june15 = checkin.NewDay(2025, time.June, 15)
	at     = time.Date(2025, time.June, 15, 9, 30, 0, 0, time.UTC)
)

// =============================================================================
// CHECK-IN RECORDS
// =============================================================================

func TestStore_InsertCheckin_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.InsertCheckin(ctx, "alice", june15, at)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.InsertCheckin(ctx, "alice", june15, at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created, "duplicate (member, day) must be ignored")

	has, err := store.HasCheckin(ctx, "alice", june15)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = store.HasCheckin(ctx, "alice", june14)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStore_CheckinDays_Ascending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, d := range []checkin.Day{june15, june14, checkin.NewDay(2025, time.June, 10)} {
		_, err := store.InsertCheckin(ctx, "alice", d, at)
		require.NoError(t, err)
	}

	days, err := store.CheckinDays(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, checkin.NewDay(2025, time.June, 10), days[0])
	assert.Equal(t, june15, days[2])
}

func TestStore_CheckinsOn_OrderedByTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.InsertCheckin(ctx, "bob", june15, at.Add(time.Hour))
	require.NoError(t, err)
	_, err = store.InsertCheckin(ctx, "alice", june15, at)
	require.NoError(t, err)
	_, err = store.InsertCheckin(ctx, "carol", june14, at)
	require.NoError(t, err)

	recs, err := store.CheckinsOn(ctx, june15)
	require.NoError(t, err)
	require.Len(t, recs, 2, "other days excluded")
	assert.Equal(t, checkin.MemberID("alice"), recs[0].Member)
	assert.Equal(t, checkin.MemberID("bob"), recs[1].Member)
}

func TestStore_LastCheckin(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LastCheckin(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.InsertCheckin(ctx, "alice", june14, at.Add(-24*time.Hour))
	require.NoError(t, err)
	_, err = store.InsertCheckin(ctx, "alice", june15, at)
	require.NoError(t, err)

	rec, ok, err := store.LastCheckin(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, june15, rec.Day)
	assert.True(t, rec.At.Equal(at))
}

func TestStore_TotalsTop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.InsertCheckin(ctx, "alice", checkin.NewDay(2025, time.June, 10+i), at)
		require.NoError(t, err)
	}
	_, err := store.InsertCheckin(ctx, "bob", june14, at)
	require.NoError(t, err)

	top, err := store.TotalsTop(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, checkin.MemberID("alice"), top[0].Member)
	assert.Equal(t, 3, top[0].Count)
}

// =============================================================================
// POINTS
// =============================================================================

func TestStore_Points(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	balance, err := store.Points(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance, "unknown member reads as zero")

	balance, err = store.AddPoints(ctx, "alice", 150)
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance)

	balance, err = store.AddPoints(ctx, "alice", -200)
	require.NoError(t, err)
	assert.Equal(t, int64(-50), balance, "points may go negative; policy lives above the store")

	require.NoError(t, store.SetPoints(ctx, "alice", 1000))
	balance, err = store.Points(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

// =============================================================================
// CORRECTION SLIPS
// =============================================================================

func TestStore_Slips_DecreaseClampsAtZero(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddSlips(ctx, "alice", 3))
	require.NoError(t, store.DecreaseSlips(ctx, "alice", 5))

	amount, err := store.Slips(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, amount)

	require.NoError(t, store.AddSlips(ctx, "alice", 2))
	require.NoError(t, store.ClearSlips(ctx, "alice"))
	amount, err = store.Slips(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, amount)
}

// =============================================================================
// CLAIMS
// =============================================================================

func TestStore_Claims_PerKindAndThreshold(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	claimed, err := store.HasClaimed(ctx, "alice", checkin.ClaimCumulative, 7)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, store.MarkClaimed(ctx, "alice", checkin.ClaimCumulative, 7, at))
	require.NoError(t, store.MarkClaimed(ctx, "alice", checkin.ClaimCumulative, 7, at), "re-marking is a no-op")

	claimed, err = store.HasClaimed(ctx, "alice", checkin.ClaimCumulative, 7)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Same threshold, different kind and member stay independent.
	claimed, err = store.HasClaimed(ctx, "alice", checkin.ClaimStreak, 7)
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = store.HasClaimed(ctx, "bob", checkin.ClaimCumulative, 7)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestStore_SpecialDateCounter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	times, err := store.SpecialDateTimes(ctx, "alice", "friday")
	require.NoError(t, err)
	assert.Equal(t, 0, times)

	require.NoError(t, store.IncrementSpecialDate(ctx, "alice", "friday", at))
	require.NoError(t, store.IncrementSpecialDate(ctx, "alice", "friday", at.Add(time.Hour)))

	times, err = store.SpecialDateTimes(ctx, "alice", "friday")
	require.NoError(t, err)
	assert.Equal(t, 2, times)

	times, err = store.SpecialDateTimes(ctx, "alice", "*-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0, times, "counters are per rule pattern")
}

// =============================================================================
// META
// =============================================================================

func TestStore_SeedFirstLaunch_FirstWriteWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.FirstLaunchDate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SeedFirstLaunch(ctx, june14))
	require.NoError(t, store.SeedFirstLaunch(ctx, june15), "later seeds must not move the anchor")

	day, ok, err := store.FirstLaunchDate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, june14, day)
}
