package checkin_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/checkin-engine/checkin"
	memstore "github.com/warp/checkin-engine/checkin/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestMakeUp(t *testing.T) (*checkin.MakeUpEngine, *checkin.Ledger, *memstore.Memory) {
	t.Helper()
	mem := memstore.NewMemory()
	clock := checkin.NewFixedClock(testInstant) // June 15 2025
	ledger := checkin.NewLedger(mem, mem, clock)
	engine := checkin.NewMakeUpEngine(ledger, mem, mem, clock)
	return engine, ledger, mem
}

// seedGaps launches on June 9 and gives the member records on June 9 and
// June 11, leaving June 10, 12, 13, 14 missed.
func seedGaps(t *testing.T, ledger *checkin.Ledger, mem *memstore.Memory, member checkin.MemberID) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, mem.SeedFirstLaunch(ctx, day(2025, time.June, 9)))
	for _, d := range []checkin.Day{day(2025, time.June, 9), day(2025, time.June, 11)} {
		_, err := ledger.WriteDay(ctx, member, d)
		require.NoError(t, err)
	}
}

// =============================================================================
// MAKE-UP SCENARIOS
// =============================================================================

func TestMakeUp_FillsMostRecentFirst(t *testing.T) {
	// GIVEN: June 10, 12, 13, 14 missed; 3 slips owned
	// WHEN: Requesting 3 fills
	// THEN: June 14, 13, 12 are filled, today is also checked in,
	//       all slips are consumed, nothing refunded

	engine, ledger, mem := newTestMakeUp(t)
	ctx := context.Background()
	seedGaps(t, ledger, mem, "alice")
	require.NoError(t, mem.AddSlips(ctx, "alice", 3))

	result, err := engine.MakeUp(ctx, "alice", 3, false)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Refunded)
	require.Len(t, result.Filled, 4, "three fills plus today")
	assert.Equal(t, day(2025, time.June, 14), result.Filled[0])
	assert.Equal(t, day(2025, time.June, 13), result.Filled[1])
	assert.Equal(t, day(2025, time.June, 12), result.Filled[2])
	assert.Equal(t, day(2025, time.June, 15), result.Filled[3])

	slips, err := mem.Slips(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, slips)

	ok, err := ledger.IsCheckedIn(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMakeUp_CappedByOwnedSlips(t *testing.T) {
	// GIVEN: 4 missed days but only 1 slip
	// WHEN: Requesting 3 fills
	// THEN: Only the most recent gap is filled and 2 credits come back

	engine, ledger, mem := newTestMakeUp(t)
	ctx := context.Background()
	seedGaps(t, ledger, mem, "alice")
	require.NoError(t, mem.AddSlips(ctx, "alice", 1))

	result, err := engine.MakeUp(ctx, "alice", 3, false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Refunded)
	require.Len(t, result.Filled, 2, "one fill plus today")
	assert.Equal(t, day(2025, time.June, 14), result.Filled[0])

	slips, err := mem.Slips(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, slips)
}

func TestMakeUp_NothingMissed_PlainCheckin(t *testing.T) {
	// GIVEN: A member with a perfect record (nothing missed)
	// WHEN: Spending 2 credits
	// THEN: Today is checked in, both credits refunded, slips untouched

	engine, ledger, mem := newTestMakeUp(t)
	ctx := context.Background()
	require.NoError(t, mem.SeedFirstLaunch(ctx, day(2025, time.June, 15)))
	require.NoError(t, mem.AddSlips(ctx, "bob", 2))

	result, err := engine.MakeUp(ctx, "bob", 2, false)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Refunded)
	require.Len(t, result.Filled, 1)
	assert.Equal(t, day(2025, time.June, 15), result.Filled[0])

	slips, err := mem.Slips(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, slips)

	ok, err := ledger.IsCheckedIn(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMakeUp_Force_IgnoresSlipBalance(t *testing.T) {
	// GIVEN: 4 missed days and zero slips
	// WHEN: Forcing 2 fills
	// THEN: The two most recent gaps are filled without touching slips

	engine, ledger, mem := newTestMakeUp(t)
	ctx := context.Background()
	seedGaps(t, ledger, mem, "alice")

	result, err := engine.MakeUp(ctx, "alice", 2, true)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Refunded)
	require.Len(t, result.Filled, 3, "two fills plus today")
	assert.Equal(t, day(2025, time.June, 14), result.Filled[0])
	assert.Equal(t, day(2025, time.June, 13), result.Filled[1])

	slips, err := mem.Slips(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, slips)
}

func TestMakeUp_LateJoiner_CanStillFillGaps(t *testing.T) {
	// GIVEN: Launch June 9, Carol's only record is June 12, so her
	//        launch-anchored missed count is zero
	// WHEN: She spends slips on consecutive days
	// THEN: The candidate scan still covers every absent day, so her
	//       most recent gap (June 14) gets filled

	engine, ledger, mem := newTestMakeUp(t)
	ctx := context.Background()
	require.NoError(t, mem.SeedFirstLaunch(ctx, day(2025, time.June, 9)))
	_, err := ledger.WriteDay(ctx, "carol", day(2025, time.June, 12))
	require.NoError(t, err)
	require.NoError(t, mem.AddSlips(ctx, "carol", 1))

	// Carol is not checked in today and has no launch-anchored missed
	// days, so this is the plain check-in path.
	result, err := engine.MakeUp(ctx, "carol", 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Refunded)
	require.Len(t, result.Filled, 1)
	assert.Equal(t, day(2025, time.June, 15), result.Filled[0])

	// Once checked in today, a second call reaches the candidate scan.
	result, err = engine.MakeUp(ctx, "carol", 1, false)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Refunded)
	require.Len(t, result.Filled, 1)
	assert.Equal(t, day(2025, time.June, 14), result.Filled[0])
}
