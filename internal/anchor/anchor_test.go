package anchor_test

import (
	"fmt"
	"testing"

	"github.com/joeycumines/vlist/internal/anchor"
	"github.com/joeycumines/vlist/internal/layout"
	"github.com/stretchr/testify/require"
)

func keys(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("item-%d", i)
	}
	return out
}

func TestReconcile_MeasurementAboveAnchor(t *testing.T) {
	t.Parallel()

	est := layout.NewEstimator(50, keys(1000))
	for i := 0; i < 70; i++ {
		if i == 5 {
			continue
		}
		_, err := est.RecordMeasurement(i, 50)
		require.NoError(t, err)
	}

	a := anchor.Capture(est, 3000)
	require.Equal(t, 60, a.Index)
	require.Zero(t, a.Intra)

	before := est.Offset(a.Index) - 3000
	_, err := est.RecordMeasurement(5, 120)
	require.NoError(t, err)

	res := anchor.Reconcile(est, a, a.Index, 500)
	require.Equal(t, 3070.0, res.Offset)
	require.Equal(t, 70.0, res.Delta)

	// an observer sampling the anchor's position relative to the viewport
	// before and after sees no movement
	require.Equal(t, before, est.Offset(a.Index)-res.Offset)
}

func TestReconcile_KeepsIntraItemPosition(t *testing.T) {
	t.Parallel()

	est := layout.NewEstimator(50, keys(100))
	a := anchor.Capture(est, 1020)
	require.Equal(t, 20, a.Index)
	require.Equal(t, 20.0, a.Intra)

	_, err := est.RecordMeasurement(0, 10)
	require.NoError(t, err)
	res := anchor.Reconcile(est, a, 20, 500)
	require.InDelta(t, est.Offset(20)+20, res.Offset, 1e-9)
}

func TestReconcile_InsertBeforeAnchor(t *testing.T) {
	t.Parallel()

	est := layout.NewEstimator(50, keys(100))
	a := anchor.Capture(est, 500)
	require.Equal(t, 10, a.Index)

	require.NoError(t, est.Insert(0, []string{"new-a", "new-b", "new-c"}))
	res := anchor.Reconcile(est, a, est.IndexOfKey("item-10"), 500)
	require.Equal(t, 650.0, res.Offset)
	require.Equal(t, 150.0, res.Delta)
}

func TestReconcile_AnchorShrinksBelowIntra(t *testing.T) {
	t.Parallel()

	est := layout.NewEstimator(50, keys(100))
	a := anchor.Capture(est, 540)
	require.Equal(t, 10, a.Index)
	require.Equal(t, 40.0, a.Intra)

	_, err := est.RecordMeasurement(10, 15)
	require.NoError(t, err)
	res := anchor.Reconcile(est, a, 10, 200)
	require.Equal(t, est.Offset(10)+15, res.Offset)
}

func TestReconcile_ClampsToScrollableRange(t *testing.T) {
	t.Parallel()

	est := layout.NewEstimator(50, keys(20))
	a := anchor.Capture(est, 500)

	require.NoError(t, est.Remove(10, 10))
	res := anchor.Reconcile(est, a, -1, 200)
	require.Equal(t, 300.0, res.Offset)
	require.Equal(t, -200.0, res.Delta)

	empty := layout.NewEstimator(50, nil)
	a = anchor.Capture(empty, 0)
	require.False(t, a.Valid())
	res = anchor.Reconcile(empty, a, 0, 200)
	require.Zero(t, res.Offset)
}

func TestClamp(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, anchor.Clamp(-5, 1000, 100))
	require.Equal(t, 900.0, anchor.Clamp(950, 1000, 100))
	require.Equal(t, 0.0, anchor.Clamp(50, 80, 100))
	require.Equal(t, 10.0, anchor.Clamp(10, 1000, 100))
}
