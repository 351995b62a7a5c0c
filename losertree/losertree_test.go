package losertree_test

import (
	"math/rand"
	"testing"

	"github.com/lineforge/extsort/losertree"
	"github.com/stretchr/testify/require"
)

func less(a, b int) bool { return a < b }

func TestSingleLeaf(t *testing.T) {
	tr := losertree.New(1, less)
	tr.SetLeaf(0, 42)
	tr.Build()
	require.Equal(t, 1, tr.ActiveCount())
	require.Equal(t, 42, tr.WinnerValue())
	tr.DeactivateWinner()
	require.Equal(t, 0, tr.ActiveCount())
}

func TestEmptyTree(t *testing.T) {
	tr := losertree.New(0, less)
	tr.Build()
	require.Equal(t, 0, tr.ActiveCount())
}

func TestExtractsSortedNonDecreasing(t *testing.T) {
	for trial := 0; trial < 20; trial++ {
		rng := rand.New(rand.NewSource(int64(trial)))
		k := rng.Intn(1024) + 1
		values := make([]int, k)
		for i := range values {
			values[i] = rng.Intn(1_000_000)
		}

		tr := losertree.New(k, less)
		for i, v := range values {
			tr.SetLeaf(i, v)
		}
		tr.Build()

		var extracted []int
		seenPerLeaf := make([]int, k)
		last := -1
		for tr.ActiveCount() > 0 {
			w := tr.WinnerIndex()
			v := tr.WinnerValue()
			require.GreaterOrEqual(t, v, last)
			last = v
			extracted = append(extracted, v)
			seenPerLeaf[w]++
			tr.DeactivateWinner()
		}

		require.Len(t, extracted, k)
		for i, n := range seenPerLeaf {
			require.Equalf(t, 1, n, "leaf %d extracted %d times", i, n)
		}
	}
}

func TestReplaceWinnerFeedsNewValues(t *testing.T) {
	// simulate a 3-way streamed merge: each leaf is a small sorted stream.
	streams := [][]int{
		{1, 4, 9},
		{2, 3, 8},
		{0, 5, 6, 7},
	}
	cursors := make([]int, len(streams))

	tr := losertree.New(len(streams), less)
	for i, s := range streams {
		tr.SetLeaf(i, s[0])
		cursors[i] = 1
	}
	tr.Build()

	var out []int
	for tr.ActiveCount() > 0 {
		w := tr.WinnerIndex()
		out = append(out, tr.WinnerValue())
		if cursors[w] < len(streams[w]) {
			tr.ReplaceWinner(streams[w][cursors[w]])
			cursors[w]++
		} else {
			tr.DeactivateWinner()
		}
	}

	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, out)
}
