package viewability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSet_DeliversPerConfig(t *testing.T) {
	t.Parallel()

	s := NewSet(nil)
	var half, full []Notification
	halfID, err := s.Register(Config{Name: "half", ItemVisiblePercent: 50}, func(n Notification) { half = append(half, n) })
	require.NoError(t, err)
	_, err = s.Register(Config{Name: "full", ItemVisiblePercent: 100, MinimumViewTime: 10 * time.Millisecond}, func(n Notification) { full = append(full, n) })
	require.NoError(t, err)
	_, err = s.Register(Config{ItemVisiblePercent: 10, ViewAreaCoveragePercent: 10}, nil)
	require.ErrorIs(t, err, ErrConflictingThreshold)
	require.Equal(t, 2, s.Len())

	vp := Viewport{Extent: 500}
	items := []Item{
		{Index: 0, Key: "a", Offset: 0, Extent: 100},
		{Index: 1, Key: "b", Offset: 430, Extent: 100},
	}
	s.Update(epoch, vp, items)
	require.Equal(t, 1, s.Flush())
	require.Len(t, half, 1)
	require.Empty(t, full)

	d, ok := s.NextDeadline()
	require.True(t, ok)
	require.Equal(t, epoch.Add(10*time.Millisecond), d)

	s.Advance(d)
	require.Equal(t, 1, s.Flush())
	require.Len(t, full, 1)
	require.Equal(t, []Token{{0, "a"}}, full[0].Viewable)

	require.Zero(t, s.Flush())

	require.True(t, s.Unregister(halfID))
	require.False(t, s.Unregister(halfID))
	tr, ok := s.Tracker(halfID)
	require.False(t, ok)
	require.Nil(t, tr)
}
