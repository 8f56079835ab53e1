package window

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculator_DeadZone(t *testing.T) {
	t.Parallel()

	est := uniform(1000, 50)
	cfg := itemBuffers(5, 5)
	cfg.DeadZone = 4
	c := NewCalculator(cfg)

	res, changed := c.Update(Metrics{Offset: 2475, ViewportExtent: 500}, est)
	require.True(t, changed)
	require.Equal(t, Window{44, 64}, res.Window)

	// sub-dead-zone jitter within the same anchor item is ignored
	_, changed = c.Update(Metrics{Offset: 2477.5, ViewportExtent: 500}, est)
	require.False(t, changed)
	_, changed = c.Update(Metrics{Offset: 2473, ViewportExtent: 500}, est)
	require.False(t, changed)

	// jitter accumulates against the last computed offset
	_, changed = c.Update(Metrics{Offset: 2479, ViewportExtent: 500}, est)
	require.True(t, changed)
}

func TestCalculator_AnchorChangeInsideDeadZone(t *testing.T) {
	t.Parallel()

	est := uniform(1000, 50)
	cfg := itemBuffers(5, 5)
	cfg.DeadZone = 10
	c := NewCalculator(cfg)

	_, changed := c.Update(Metrics{Offset: 2498, ViewportExtent: 500}, est)
	require.True(t, changed)
	require.Equal(t, 49, c.Result().Anchor)

	// crossing into item 50 changes the anchor even within the dead zone
	res, changed := c.Update(Metrics{Offset: 2501, ViewportExtent: 500}, est)
	require.True(t, changed)
	require.Equal(t, 50, res.Anchor)
}

func TestCalculator_RecomputesWhenComingToRest(t *testing.T) {
	t.Parallel()

	est := uniform(1000, 50)
	cfg := itemBuffers(4, 4)
	cfg.VelocityBias = 1
	c := NewCalculator(cfg)

	res, changed := c.Update(Metrics{Offset: 2500, ViewportExtent: 500, Velocity: 100}, est)
	require.True(t, changed)
	require.Equal(t, Window{50, 68}, res.Window)

	_, changed = c.Update(Metrics{Offset: 2500, ViewportExtent: 500, Velocity: 10}, est)
	require.False(t, changed)

	res, changed = c.Update(Metrics{Offset: 2500, ViewportExtent: 500}, est)
	require.True(t, changed)
	require.Equal(t, Window{46, 64}, res.Window)

	res, changed = c.Update(Metrics{Offset: 2500, ViewportExtent: 500, Velocity: -3}, est)
	require.True(t, changed)
	require.Equal(t, Window{42, 60}, res.Window)
}

func TestCalculator_RecomputesOnResizeAndData(t *testing.T) {
	t.Parallel()

	est := uniform(100, 50)
	c := NewCalculator(itemBuffers(0, 0))
	m := Metrics{Offset: 100, ViewportExtent: 500}
	_, changed := c.Update(m, est)
	require.True(t, changed)
	_, changed = c.Update(m, est)
	require.False(t, changed)

	m.ViewportExtent = 250
	res, changed := c.Update(m, est)
	require.True(t, changed)
	require.Equal(t, Window{2, 7}, res.Window)

	require.NoError(t, est.Insert(100, []string{"tail"}))
	_, changed = c.Update(m, est)
	require.True(t, changed)

	c.Invalidate()
	_, changed = c.Update(m, est)
	require.True(t, changed)
}

func TestCalculator_InitialPhaseIgnoresOffset(t *testing.T) {
	t.Parallel()

	est := uniform(100, 50)
	c := NewCalculator(itemBuffers(0, 0))
	_, changed := c.Update(Metrics{ViewportExtent: 500, Initial: true}, est)
	require.True(t, changed)
	_, changed = c.Update(Metrics{Offset: 900, ViewportExtent: 500, Initial: true}, est)
	require.False(t, changed)
	res, changed := c.Update(Metrics{Offset: 900, ViewportExtent: 500}, est)
	require.True(t, changed)
	require.Equal(t, 18, res.Anchor)
}

func TestConfig_Normalize(t *testing.T) {
	t.Parallel()

	cfg, warnings := Config{
		InitialNumToRender: 50,
		BufferUnit:         UnitItems,
		BufferBehind:       30,
		BufferAhead:        30,
		MaxCells:           22,
		VelocityBias:       3,
		DeadZone:           -1,
	}.Normalize(2)
	require.NotEmpty(t, warnings)
	require.Equal(t, 20, cfg.MaxCells)
	require.Equal(t, 20, cfg.InitialNumToRender)
	require.Less(t, cfg.BufferBehind+cfg.BufferAhead, float64(cfg.MaxCells))
	require.Equal(t, float64(1), cfg.VelocityBias)
	require.Equal(t, float64(0), cfg.DeadZone)

	def, warnings := DefaultConfig().Normalize(0)
	require.Empty(t, warnings)
	require.Equal(t, DefaultConfig(), def)
}

func TestParseUnit(t *testing.T) {
	t.Parallel()

	u, err := ParseUnit("Viewports")
	require.NoError(t, err)
	require.Equal(t, UnitViewports, u)
	u, err = ParseUnit("items")
	require.NoError(t, err)
	require.Equal(t, UnitItems, u)
	_, err = ParseUnit("pixels")
	require.Error(t, err)
}
