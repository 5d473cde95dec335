package rewards_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/checkin-engine/rewards"
)

// =============================================================================
// EFFECT STATEMENT PARSING
// =============================================================================

func TestParseAction_Message(t *testing.T) {
	act := rewards.ParseAction("[MESSAGE] Welcome back, %member%!")
	msg, ok := act.(rewards.MessageAction)
	require.True(t, ok)
	assert.Equal(t, "Welcome back, %member%!", msg.Text)
}

func TestParseAction_Title(t *testing.T) {
	act := rewards.ParseAction("[TITLE] Checked in! | day 7")
	title, ok := act.(rewards.TitleAction)
	require.True(t, ok)
	assert.Equal(t, "Checked in!", title.Main)
	assert.Equal(t, "day 7", title.Sub)
}

func TestParseAction_TitleWithoutSubtitle(t *testing.T) {
	act := rewards.ParseAction("[TITLE] Checked in!")
	title, ok := act.(rewards.TitleAction)
	require.True(t, ok)
	assert.Equal(t, "Checked in!", title.Main)
	assert.Empty(t, title.Sub)
}

func TestParseAction_SoundDefaults(t *testing.T) {
	act := rewards.ParseAction("[SOUND] chime")
	sound, ok := act.(rewards.SoundAction)
	require.True(t, ok)
	assert.Equal(t, "CHIME", sound.Name)
	assert.Equal(t, 1.0, sound.Volume)
	assert.Equal(t, 1.0, sound.Pitch)

	act = rewards.ParseAction("[SOUND] chime 0.5 2.0")
	sound = act.(rewards.SoundAction)
	assert.Equal(t, 0.5, sound.Volume)
	assert.Equal(t, 2.0, sound.Pitch)
}

func TestParseAction_Effect(t *testing.T) {
	act := rewards.ParseAction("[EFFECT] speed 2 30")
	eff, ok := act.(rewards.StatusEffectAction)
	require.True(t, ok)
	assert.Equal(t, "SPEED", eff.Name)
	assert.Equal(t, 2, eff.Level)
	assert.Equal(t, 30, eff.Seconds)
}

func TestParseAction_Item(t *testing.T) {
	act := rewards.ParseAction("[ITEM] ns:golden_ticket 3")
	item, ok := act.(rewards.ItemAction)
	require.True(t, ok)
	assert.Equal(t, "GOLDEN_TICKET", item.Key, "namespaced key collapses to final segment")
	assert.Equal(t, 3, item.Amount)
	assert.False(t, item.Force)
}

func TestParseAction_ItemWithForcePayload(t *testing.T) {
	act := rewards.ParseAction(`[ITEM] ticket 1 {color:gold} force=true`)
	item, ok := act.(rewards.ItemAction)
	require.True(t, ok)
	assert.Equal(t, "TICKET", item.Key)
	assert.Equal(t, "{color:gold}", item.Payload)
	assert.True(t, item.Force)
}

func TestParseAction_UnknownTagIsNoop(t *testing.T) {
	act := rewards.ParseAction("[TELEPORT] somewhere")
	unknown, ok := act.(rewards.UnknownAction)
	require.True(t, ok)
	assert.Contains(t, unknown.Raw, "TELEPORT")
}

func TestParseAction_MissingBracketIsUnknown(t *testing.T) {
	_, ok := rewards.ParseAction("MESSAGE hello").(rewards.UnknownAction)
	assert.True(t, ok)
}

// =============================================================================
// POINTS SPEC
// =============================================================================

func TestParsePointsSpec_Literal(t *testing.T) {
	spec := rewards.ParsePointsSpec("2")
	assert.Equal(t, 2.0, spec.Lo)
	assert.Equal(t, 2.0, spec.Hi)
	assert.False(t, spec.Round)

	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, int64(200), spec.Roll(rng))
}

func TestParsePointsSpec_RangeWithFormat(t *testing.T) {
	spec := rewards.ParsePointsSpec("1..3 .2f")
	assert.Equal(t, 1.0, spec.Lo)
	assert.Equal(t, 3.0, spec.Hi)
	assert.True(t, spec.Round)
	assert.Equal(t, 2, spec.Places)
}

func TestParsePointsSpec_DegenerateRange(t *testing.T) {
	spec := rewards.ParsePointsSpec("1..1 .2f")
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, int64(100), spec.Roll(rng))
}

func TestParsePointsSpec_IntegerFormat(t *testing.T) {
	// "z" rounds to an integer number of points before scaling.
	spec := rewards.ParsePointsSpec("0.4 z")
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, int64(0), spec.Roll(rng))

	spec = rewards.ParsePointsSpec("0.6 z")
	assert.Equal(t, int64(100), spec.Roll(rng))
}

func TestParsePointsSpec_PlacesCappedAtTwo(t *testing.T) {
	// Minor units can't hold more than two decimal places.
	spec := rewards.ParsePointsSpec("1.2345 5f")
	assert.True(t, spec.Round)
	assert.Equal(t, 2, spec.Places)

	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, int64(123), spec.Roll(rng))
}

func TestPointsSpec_RollStaysInRange(t *testing.T) {
	spec := rewards.ParsePointsSpec("1..3")
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		v := spec.Roll(rng)
		assert.GreaterOrEqual(t, v, int64(100))
		assert.LessOrEqual(t, v, int64(300))
	}
}
