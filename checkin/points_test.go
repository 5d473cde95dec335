package checkin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/checkin-engine/checkin"
	memstore "github.com/warp/checkin-engine/checkin/store"
)

func TestFormatPoints(t *testing.T) {
	assert.Equal(t, "0.00", checkin.FormatPoints(0))
	assert.Equal(t, "2.50", checkin.FormatPoints(250))
	assert.Equal(t, "0.01", checkin.FormatPoints(1))
	assert.Equal(t, "100.00", checkin.FormatPoints(10000))
	assert.Equal(t, "-1.25", checkin.FormatPoints(-125))
}

func TestPointsAccount_AddAndSet(t *testing.T) {
	mem := memstore.NewMemory()
	points := checkin.NewPointsAccount(mem)
	ctx := context.Background()

	balance, err := points.Add(ctx, "alice", 150)
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance)

	balance, err = points.Add(ctx, "alice", -50)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	require.NoError(t, points.Set(ctx, "alice", 9900))
	balance, err = points.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(9900), balance)

	display, err := points.Display(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "99.00", display)
}

func TestCorrectionSlipAccount(t *testing.T) {
	mem := memstore.NewMemory()
	slips := checkin.NewCorrectionSlipAccount(mem)
	ctx := context.Background()

	require.NoError(t, slips.Give(ctx, "alice", 5))
	require.NoError(t, slips.Decrease(ctx, "alice", 2))

	amount, err := slips.Amount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, amount)

	// Decrease clamps at zero rather than going negative.
	require.NoError(t, slips.Decrease(ctx, "alice", 10))
	amount, err = slips.Amount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, amount)

	require.NoError(t, slips.Give(ctx, "alice", 2))
	require.NoError(t, slips.Clear(ctx, "alice"))
	amount, err = slips.Amount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, amount)
}
