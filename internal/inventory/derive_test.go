package inventory

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDerive(t *testing.T) {
	cases := []struct {
		name       string
		start, end int
		missing    string
		duplicates string
		want       []string
	}{
		{name: "plain range", start: 1, end: 5, want: []string{"1", "2", "3", "4", "5"}},
		{name: "missing removed", start: 1, end: 10, missing: "2,3,9", want: []string{"1", "4", "5", "6", "7", "8", "10"}},
		{name: "duplicates inserted in numeric order", start: 1, end: 5, duplicates: "2.1,2.1", want: []string{"1", "2", "2.1", "2.1", "3", "4", "5"}},
		{name: "whitespace and empty tokens ignored", start: 1, end: 4, missing: " 2 , ,", duplicates: " ,3.5 ", want: []string{"1", "3", "3.5", "4"}},
		{name: "duplicate of base number", start: 1, end: 3, duplicates: "2", want: []string{"1", "2", "2", "3"}},
		{name: "missing matches exact decimal form only", start: 1, end: 3, missing: "02,2.0", want: []string{"1", "2", "3"}},
		{name: "missing outside range ignored", start: 5, end: 6, missing: "1,100", want: []string{"5", "6"}},
		{name: "single number", start: 7, end: 7, want: []string{"7"}},
		{name: "everything missing", start: 1, end: 2, missing: "1,2", want: []string{}},
		{name: "negative range", start: -2, end: 0, want: []string{"-2", "-1", "0"}},
		{name: "duplicates without numeric prefix sort last in input order", start: 1, end: 2, duplicates: "b,1.5,a", want: []string{"1", "1.5", "2", "b", "a"}},
		{name: "suffixed marker follows its number", start: 10, end: 14, duplicates: "12a", want: []string{"10", "11", "12", "12a", "13", "14"}},
		{name: "non latin suffix follows its number", start: 1, end: 3, duplicates: "2ก,2.1b", want: []string{"1", "2", "2ก", "2.1b", "3"}},
		{name: "numeric prefixes of mixed tokens", start: 1, end: 20, duplicates: "12a,0x10,1e1,Infinity", want: []string{
			"0x10", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "1e1", "11", "12", "12a",
			"13", "14", "15", "16", "17", "18", "19", "20", "Infinity",
		}},
		{name: "inverted range yields only duplicates", start: 5, end: 1, duplicates: "3", want: []string{"3"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Derive(tc.start, tc.end, tc.missing, tc.duplicates)
			assert.Equal(t, tc.want, got.Books)
			assert.Equal(t, len(tc.want), got.Total)
		})
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	first := Derive(1, 50, "3,7,9", "4.5,1.1,4.5")
	second := Derive(1, 50, "3,7,9", "4.5,1.1,4.5")
	assert.Equal(t, first, second)
}

func TestParseTokens(t *testing.T) {
	assert.Equal(t, []string{}, ParseTokens(""))
	assert.Equal(t, []string{}, ParseTokens(" , ,"))
	assert.Equal(t, []string{"1", "12.1", "x"}, ParseTokens("1, 12.1 ,x"))
}

func TestLeadingNumber(t *testing.T) {
	cases := map[string]float64{
		"12":        12,
		"12a":       12,
		"12.5x":     12.5,
		".5":        0.5,
		"-3b":       -3,
		"+4":        4,
		"1e1":       10,
		"2e":        2,
		"3e+x":      3,
		"0x10":      0,
		"1.2.3":     1.2,
		"Infinity":  math.Inf(1),
		"-Infinity": math.Inf(-1),
	}
	for in, want := range cases {
		assert.Equal(t, want, leadingNumber(in), in)
	}
	for _, in := range []string{"", "a12", ".", "-", "e5", "inf"} {
		assert.True(t, math.IsNaN(leadingNumber(in)), in)
	}
}

func TestValidateRange(t *testing.T) {
	require.NoError(t, ValidateRange(1, 1, 10))
	require.NoError(t, ValidateRange(1, 10, 10))
	require.NoError(t, ValidateRange(1, 1_000_000, 0))
	assert.ErrorIs(t, ValidateRange(5, 4, 10), ErrInvalidRange)
	assert.ErrorIs(t, ValidateRange(1, 11, 10), ErrRangeTooLarge)
}

func TestDeriveProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := rapid.IntRange(-50, 50).Draw(t, "start")
		end := start + rapid.IntRange(0, 60).Draw(t, "span")
		missing := rapid.SliceOf(rapid.IntRange(start-5, end+5)).Draw(t, "missing")
		duplicates := rapid.SliceOfN(rapid.IntRange(start, end), 0, 5).Draw(t, "duplicates")

		missingRaw := join(missing)
		duplicateRaw := join(duplicates)
		got := Derive(start, end, missingRaw, duplicateRaw)

		if got.Total != len(got.Books) {
			t.Fatalf("total %d != len %d", got.Total, len(got.Books))
		}

		removed := make(map[int]struct{})
		for _, m := range missing {
			if m >= start && m <= end {
				removed[m] = struct{}{}
			}
		}
		if want := end - start + 1 - len(removed) + len(duplicates); got.Total != want {
			t.Fatalf("total %d, want %d", got.Total, want)
		}

		occurrences := make(map[string]int, len(got.Books))
		for _, id := range got.Books {
			occurrences[id]++
		}
		listed := make(map[int]int, len(duplicates))
		for _, d := range duplicates {
			listed[d]++
		}
		for d, n := range listed {
			want := n
			if _, gone := removed[d]; !gone {
				want++
			}
			if seen := occurrences[strconv.Itoa(d)]; seen != want {
				t.Fatalf("duplicate %d appears %d times, want %d", d, seen, want)
			}
		}

		for i := 1; i < len(got.Books); i++ {
			prev, _ := strconv.Atoi(got.Books[i-1])
			cur, _ := strconv.Atoi(got.Books[i])
			if prev > cur {
				t.Fatalf("not sorted at %d: %v", i, got.Books)
			}
		}
	})
}

func join(values []int) string {
	out := ""
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += strconv.Itoa(v)
	}
	return out
}
