package layout

// fenwick is a binary indexed tree over n values, supporting point updates
// and prefix sums in O(log n). Indices are 0-based at the API boundary.
type fenwick[T int | float64] struct {
	tree []T // 1-based
}

func newFenwick[T int | float64](values []T) fenwick[T] {
	f := fenwick[T]{tree: make([]T, len(values)+1)}
	// linear-time construction
	for i, v := range values {
		f.tree[i+1] += v
		if parent := (i + 1) + lowbit(i+1); parent < len(f.tree) {
			f.tree[parent] += f.tree[i+1]
		}
	}
	return f
}

func lowbit(i int) int { return i & -i }

func (f *fenwick[T]) len() int { return len(f.tree) - 1 }

// add adds delta to the value at index i.
func (f *fenwick[T]) add(i int, delta T) {
	for i++; i < len(f.tree); i += lowbit(i) {
		f.tree[i] += delta
	}
}

// prefix returns the sum of the first n values.
func (f *fenwick[T]) prefix(n int) T {
	var sum T
	if n > f.len() {
		n = f.len()
	}
	for ; n > 0; n -= lowbit(n) {
		sum += f.tree[n]
	}
	return sum
}

// highbit returns the largest power of two <= n, or 0.
func highbit(n int) int {
	step := 1
	for step<<1 <= n {
		step <<= 1
	}
	if n == 0 {
		return 0
	}
	return step
}
