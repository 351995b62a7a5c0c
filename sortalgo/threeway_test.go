package sortalgo_test

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/lineforge/extsort/record"
	"github.com/lineforge/extsort/sortalgo"
	"github.com/stretchr/testify/require"
)

func parseAll(t *testing.T, raws []string) []record.Line {
	t.Helper()
	lines := make([]record.Line, len(raws))
	for i, s := range raws {
		l, err := record.Parse([]byte(s))
		require.NoError(t, err)
		lines[i] = l
	}
	return lines
}

func toStrings(lines []record.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = string(l.Raw)
	}
	return out
}

func TestSortFiveRecordExample(t *testing.T) {
	lines := parseAll(t, []string{"5. Banana", "1. Apple", "3. Apple", "2. Cherry", "4. Banana"})
	sortalgo.Sort(lines)
	require.Equal(t, []string{"1. Apple", "3. Apple", "4. Banana", "5. Banana", "2. Cherry"}, toStrings(lines))
}

func TestSortEmptyAndSingle(t *testing.T) {
	var empty []record.Line
	sortalgo.Sort(empty)

	single := parseAll(t, []string{"1. Only"})
	sortalgo.Sort(single)
	require.Equal(t, "1. Only", string(single[0].Raw))
}

func TestSortMatchesReferenceOnRandomData(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	strs := []string{"apple", "banana", "cherry", "date", "apple", "banana", "apple", ""}

	for trial := 0; trial < 30; trial++ {
		n := rng.Intn(500)
		raws := make([]string, n)
		for i := range raws {
			s := strs[rng.Intn(len(strs))]
			num := rng.Intn(1_000_000)
			raws[i] = fmt.Sprintf("%d. %s", num, s)
		}
		lines := parseAll(t, raws)

		want := make([]record.Line, len(lines))
		copy(want, lines)
		sort.SliceStable(want, func(i, j int) bool { return record.Less(want[i], want[j]) })

		sortalgo.Sort(lines)

		for i := range lines {
			require.Equal(t, string(want[i].Str()), string(lines[i].Str()), "position %d", i)
			require.Equal(t, want[i].NumberValue, lines[i].NumberValue, "position %d", i)
		}
	}
}

func TestSortHandlesLongRunsOfEqualStrings(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	raws := make([]string, 2000)
	for i := range raws {
		raws[i] = fmt.Sprintf("%d. samevalue", rng.Intn(2000))
	}
	lines := parseAll(t, raws)
	sortalgo.Sort(lines)
	for i := 1; i < len(lines); i++ {
		require.LessOrEqual(t, lines[i-1].NumberValue, lines[i].NumberValue)
	}
}
