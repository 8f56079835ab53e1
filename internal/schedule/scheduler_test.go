package schedule

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/joeycumines/vlist/internal/testutil"
	"github.com/joeycumines/vlist/internal/window"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func keyOf(i int) string { return fmt.Sprintf("item-%d", i) }

func newScheduler(t *testing.T, cfg Config) (*Scheduler, *testutil.Renderer) {
	t.Helper()
	r := testutil.NewRenderer(nil)
	s := New(cfg, r, keyOf, quiet())
	s.SetTotal(1000)
	return s, r
}

func drain(t *testing.T, s *Scheduler) int {
	t.Helper()
	for steps := 1; steps < 10000; steps++ {
		res := s.Step()
		require.LessOrEqual(t, len(res.Mounted)+len(res.Unmounted), s.Config().MaxPerTick)
		if res.Done {
			return steps
		}
	}
	t.Fatal("scheduler never settled")
	return 0
}

func rangeOf(start, end int) []int {
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}

func TestScheduler_SpreadsWorkAcrossTicks(t *testing.T) {
	t.Parallel()

	s, r := newScheduler(t, Config{MaxPerTick: 10, MaxCells: 100})
	s.Retarget(window.Window{Start: 0, End: 45}, 22.5)
	require.Equal(t, 45, s.Pending())
	require.Equal(t, 5, drain(t, s))
	require.Equal(t, rangeOf(0, 45), s.Resident())
	require.Equal(t, 45, r.Live())
}

func TestScheduler_AdditionsNearestCenterFirst(t *testing.T) {
	t.Parallel()

	s, _ := newScheduler(t, Config{MaxPerTick: 2, MaxCells: 100})
	s.Retarget(window.Window{Start: 0, End: 10}, 5)
	require.Equal(t, []int{4, 5}, s.Step().Mounted)
	require.Equal(t, []int{3, 6}, s.Step().Mounted)
	require.Equal(t, []int{2, 7}, s.Step().Mounted)
}

func TestScheduler_RemovalsFarthestFirstUnderCeiling(t *testing.T) {
	t.Parallel()

	s, r := newScheduler(t, Config{MaxPerTick: 1, MaxCells: 10})
	s.Retarget(window.Window{Start: 0, End: 10}, 5)
	drain(t, s)
	r.ResetOps()

	s.Retarget(window.Window{Start: 5, End: 15}, 10)
	drain(t, s)
	var got []string
	for _, op := range r.Ops() {
		got = append(got, op.String())
	}
	require.Equal(t, []string{"-0", "+10", "-1", "+11", "-2", "+12", "-3", "+13", "-4", "+14"}, got)
	require.Equal(t, 10, r.Peak())
}

func TestScheduler_RetargetDropsStalePlan(t *testing.T) {
	t.Parallel()

	s, r := newScheduler(t, Config{MaxPerTick: 10, MaxCells: 30})
	s.Retarget(window.Window{Start: 0, End: 20}, 10)
	drain(t, s)
	require.Equal(t, rangeOf(0, 20), s.Resident())

	s.Retarget(window.Window{Start: 40, End: 60}, 50)
	first := s.Step()
	require.False(t, first.Done)
	require.Len(t, first.Mounted, 10)

	s.Retarget(window.Window{Start: 200, End: 220}, 210)
	drain(t, s)

	for i := 20; i < 40; i++ {
		require.False(t, r.EverMounted(i), "index %d mounted", i)
	}
	require.Equal(t, rangeOf(200, 220), s.Resident())
	require.LessOrEqual(t, r.Peak(), 30)
}

func TestScheduler_NeverExceedsCeiling(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(5))
	s, r := newScheduler(t, Config{MaxPerTick: 7, MaxCells: 25})
	for round := 0; round < 300; round++ {
		start := rng.Intn(900)
		size := 1 + rng.Intn(25)
		s.Retarget(window.Window{Start: start, End: start + size}, float64(start)+float64(size)/2)
		for steps := rng.Intn(4); steps >= 0; steps-- {
			s.Step()
			require.LessOrEqual(t, s.Len(), 25)
		}
	}
	require.LessOrEqual(t, r.Peak(), 25)
}

func TestScheduler_MountFailureIsSkippedUntilRetarget(t *testing.T) {
	t.Parallel()

	s, r := newScheduler(t, Config{MaxPerTick: 100, MaxCells: 100})
	r.FailOn[3] = true
	s.Retarget(window.Window{Start: 0, End: 6}, 3)
	res := s.Step()
	require.True(t, res.Done)
	require.Equal(t, []int{0, 1, 2, 4, 5}, s.Resident())
	require.Equal(t, 0, s.Pending())

	delete(r.FailOn, 3)
	s.Retarget(window.Window{Start: 0, End: 7}, 3.5)
	drain(t, s)
	require.Equal(t, rangeOf(0, 7), s.Resident())
}

func TestScheduler_StickyStaysResident(t *testing.T) {
	t.Parallel()

	s, _ := newScheduler(t, Config{MaxPerTick: 1, MaxCells: 10})
	s.SetSticky([]int{0, 5000})
	s.Retarget(window.Window{Start: 50, End: 55}, 52.5)
	require.Equal(t, []int{0}, s.Step().Mounted)
	drain(t, s)
	require.Equal(t, []int{0, 50, 51, 52, 53, 54}, s.Resident())

	s.Retarget(window.Window{Start: 100, End: 105}, 102.5)
	drain(t, s)
	require.Equal(t, []int{0, 100, 101, 102, 103, 104}, s.Resident())
}

func TestScheduler_RemapFollowsData(t *testing.T) {
	t.Parallel()

	s, r := newScheduler(t, Config{MaxPerTick: 100, MaxCells: 100})
	s.Retarget(window.Window{Start: 0, End: 10}, 5)
	drain(t, s)

	// item 3 removed, everything after shifts down by one
	s.Remap(func(old int) (int, bool) {
		switch {
		case old < 3:
			return old, true
		case old == 3:
			return 0, false
		default:
			return old - 1, true
		}
	})
	require.Equal(t, rangeOf(0, 9), s.Resident())
	require.Equal(t, 9, r.Live())
	c, ok := s.Cell(3)
	require.True(t, ok)
	require.Equal(t, "item-4", c.Key)
}

func TestScheduler_Clear(t *testing.T) {
	t.Parallel()

	s, r := newScheduler(t, Config{MaxPerTick: 100, MaxCells: 100})
	s.Retarget(window.Window{Start: 0, End: 10}, 5)
	drain(t, s)
	s.Clear()
	require.Equal(t, 0, s.Len())
	require.Equal(t, 0, r.Live())
	require.True(t, s.Target().Empty())
}
