package layout

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFenwick_PrefixAndAdd(t *testing.T) {
	t.Parallel()

	values := []int{3, 1, 4, 1, 5, 9, 2, 6}
	f := newFenwick(values)
	want := 0
	for i := 0; i <= len(values); i++ {
		require.Equal(t, want, f.prefix(i), "prefix(%d)", i)
		if i < len(values) {
			want += values[i]
		}
	}
	f.add(2, 10)
	require.Equal(t, 3+1+14, f.prefix(3))
	require.Equal(t, 31+10, f.prefix(100))
}

func TestHighbit(t *testing.T) {
	t.Parallel()

	for n, want := range map[int]int{0: 0, 1: 1, 2: 2, 3: 2, 8: 8, 1000: 512} {
		require.Equal(t, want, highbit(n), "highbit(%d)", n)
	}
}
