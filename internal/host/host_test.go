package host

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestQueue_PostRunsInOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue(epoch)
	var got []int
	q.Post(func() {
		got = append(got, 1)
		q.Post(func() { got = append(got, 3) })
	})
	q.Post(func() { got = append(got, 2) })
	require.Equal(t, 2, q.Pending())
	require.Equal(t, 3, q.RunUntilIdle(0))
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestQueue_RunUntilIdleLimit(t *testing.T) {
	t.Parallel()

	q := NewQueue(epoch)
	var repost func()
	count := 0
	repost = func() {
		count++
		q.Post(repost)
	}
	q.Post(repost)
	require.Equal(t, 5, q.RunUntilIdle(5))
	require.Equal(t, 5, count)
	require.Equal(t, 1, q.Pending())
}

func TestQueue_TimersFireInDeadlineOrder(t *testing.T) {
	t.Parallel()

	q := NewQueue(epoch)
	var got []string
	var at []time.Duration
	record := func(name string) func() {
		return func() {
			got = append(got, name)
			at = append(at, q.Now().Sub(epoch))
		}
	}
	q.AfterFunc(30*time.Millisecond, record("c"))
	q.AfterFunc(10*time.Millisecond, record("a"))
	q.AfterFunc(10*time.Millisecond, record("b"))
	cancel := q.AfterFunc(20*time.Millisecond, record("cancelled"))
	cancel()
	cancel()

	q.Advance(15 * time.Millisecond)
	require.Equal(t, []string{"a", "b"}, got)
	require.Equal(t, 15*time.Millisecond, q.Now().Sub(epoch))

	q.Advance(time.Second)
	require.Equal(t, []string{"a", "b", "c"}, got)
	require.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 30 * time.Millisecond}, at)
	require.Equal(t, 0, q.Timers())
}

func TestQueue_TimerPostsAreDrained(t *testing.T) {
	t.Parallel()

	q := NewQueue(epoch)
	ran := false
	q.AfterFunc(time.Millisecond, func() {
		q.Post(func() { ran = true })
	})
	q.Advance(time.Millisecond)
	require.True(t, ran)
}

func TestQueue_Close(t *testing.T) {
	t.Parallel()

	q := NewQueue(epoch)
	q.Post(func() { t.Fatal("ran after close") })
	q.Close()
	require.False(t, q.Post(func() {}))
	require.False(t, q.RunOnce())
	q.AfterFunc(0, func() { t.Fatal("timer after close") })
	q.Advance(time.Second)
}

func TestQueue_SkipLeavesTasksQueued(t *testing.T) {
	t.Parallel()

	q := NewQueue(epoch)
	var got []string
	q.Post(func() { got = append(got, "task") })
	q.AfterFunc(10*time.Millisecond, func() {
		got = append(got, "timer")
		q.Post(func() { got = append(got, "posted") })
	})
	q.AfterFunc(time.Second, func() { got = append(got, "late") })

	q.Skip(20 * time.Millisecond)
	require.Equal(t, []string{"timer"}, got)
	require.Equal(t, 2, q.Pending())
	require.Equal(t, epoch.Add(20*time.Millisecond), q.Now())

	q.RunUntilIdle(0)
	require.Equal(t, []string{"timer", "task", "posted"}, got)
	require.Equal(t, 1, q.Timers())
}
