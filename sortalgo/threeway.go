// Package sortalgo implements the in-memory sort used on every chunk: a
// three-way (Dutch national flag) quicksort on the string part of a record,
// with the equal-string region resolved by a cheap numeric-only sort. Real
// inputs skew heavily toward repeated strings with unique numbers, so
// collapsing the equal region into an integer compare is the single biggest
// win over a plain comparison sort.
package sortalgo

import "github.com/lineforge/extsort/record"

const (
	insertionThreshold = 32
	maxRecursionDepth  = 64
)

// Sort orders lines in place using record.Compare's total order.
func Sort(lines []record.Line) {
	threeWaySort(lines, 0, len(lines)-1, 0)
}

// threeWaySort partitions lines[lo:hi+1] by string part into <, =, > regions
// (Dutch national flag), resolves the equal region by numeric value alone,
// and recurses into the two outer regions. It tail-recurses into the larger
// side to bound stack depth, and falls back to a full-comparator sort if
// recursion would run away (pathological pivots).
func threeWaySort(lines []record.Line, lo, hi, depth int) {
	for lo < hi {
		if hi-lo < insertionThreshold {
			insertionSort(lines, lo, hi)
			return
		}
		if depth >= maxRecursionDepth {
			fullComparatorSort(lines, lo, hi)
			return
		}

		pivot := medianOfThreeString(lines, lo, lo+(hi-lo)/2, hi)
		lt, i, gt := lo, lo, hi
		for i <= gt {
			c := compareStr(lines[i], pivot)
			switch {
			case c < 0:
				lines[lt], lines[i] = lines[i], lines[lt]
				lt++
				i++
			case c > 0:
				lines[i], lines[gt] = lines[gt], lines[i]
				gt--
			default:
				i++
			}
		}

		sortByNumber(lines[lt : gt+1])

		// Recurse into the smaller side, tail-loop into the larger side.
		leftLen, rightLen := lt-lo, hi-gt
		if leftLen < rightLen {
			threeWaySort(lines, lo, lt-1, depth+1)
			lo = gt + 1
		} else {
			threeWaySort(lines, gt+1, hi, depth+1)
			hi = lt - 1
		}
	}
}

func compareStr(a, b record.Line) int {
	return cmpBytes(a.Str(), b.Str())
}

func cmpBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// medianOfThreeString picks a pivot value (by string) among three candidate
// positions to avoid worst-case behavior on already-sorted or reverse-sorted
// runs, and returns the chosen record itself (used only for its string part).
func medianOfThreeString(lines []record.Line, a, b, c int) record.Line {
	x, y, z := lines[a], lines[b], lines[c]
	if compareStr(x, y) > 0 {
		x, y = y, x
	}
	if compareStr(y, z) > 0 {
		y, z = z, y
		if compareStr(x, y) > 0 {
			x, y = y, x
		}
	}
	return y
}

// sortByNumber sorts a run of records whose string parts are all equal, so
// only the pre-parsed numeric value needs comparing. A plain insertion sort
// is enough since equal-string runs are typically short relative to a chunk;
// larger runs fall back to quicksortByNumber for O(n log n) average behavior.
func sortByNumber(lines []record.Line) {
	if len(lines) < 2 {
		return
	}
	if len(lines) <= insertionThreshold {
		for i := 1; i < len(lines); i++ {
			for j := i; j > 0 && lines[j].NumberValue < lines[j-1].NumberValue; j-- {
				lines[j], lines[j-1] = lines[j-1], lines[j]
			}
		}
		return
	}
	quicksortByNumber(lines, 0, len(lines)-1)
}

func quicksortByNumber(lines []record.Line, lo, hi int) {
	for lo < hi {
		if hi-lo < insertionThreshold {
			for i := lo + 1; i <= hi; i++ {
				for j := i; j > lo && lines[j].NumberValue < lines[j-1].NumberValue; j-- {
					lines[j], lines[j-1] = lines[j-1], lines[j]
				}
			}
			return
		}
		pivot := lines[lo+(hi-lo)/2].NumberValue
		i, j := lo, hi
		for i <= j {
			for lines[i].NumberValue < pivot {
				i++
			}
			for lines[j].NumberValue > pivot {
				j--
			}
			if i <= j {
				lines[i], lines[j] = lines[j], lines[i]
				i++
				j--
			}
		}
		if j-lo < hi-i {
			quicksortByNumber(lines, lo, j)
			lo = i
		} else {
			quicksortByNumber(lines, i, hi)
			hi = j
		}
	}
}

func insertionSort(lines []record.Line, lo, hi int) {
	for i := lo + 1; i <= hi; i++ {
		for j := i; j > lo && record.Less(lines[j], lines[j-1]); j-- {
			lines[j], lines[j-1] = lines[j-1], lines[j]
		}
	}
}

// fullComparatorSort is the recursion-depth escape hatch: an unbounded-depth
// but still in-place quicksort against the full comparator, used only when a
// pathological run of pivots would otherwise blow the stack.
func fullComparatorSort(lines []record.Line, lo, hi int) {
	if hi-lo < insertionThreshold {
		insertionSort(lines, lo, hi)
		return
	}
	pivot := lines[lo+(hi-lo)/2]
	i, j := lo, hi
	for i <= j {
		for record.Compare(lines[i], pivot) < 0 {
			i++
		}
		for record.Compare(lines[j], pivot) > 0 {
			j--
		}
		if i <= j {
			lines[i], lines[j] = lines[j], lines[i]
			i++
			j--
		}
	}
	if lo < j {
		fullComparatorSort(lines, lo, j)
	}
	if i < hi {
		fullComparatorSort(lines, i, hi)
	}
}
