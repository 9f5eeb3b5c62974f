package inventory

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrInvalidRange  = errors.New("start number must not exceed end number")
	ErrRangeTooLarge = errors.New("range too large")
)

// Result is the derived inventory of one borrow transaction.
type Result struct {
	Books []string `json:"books"`
	Total int      `json:"total"`
}

// ParseTokens splits a comma separated exception list, trimming each token and
// dropping empties. Tokens stay opaque strings ("12.1" is a valid token).
func ParseTokens(raw string) []string {
	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	return tokens
}

// ValidateRange checks the preconditions Derive does not enforce itself.
// maxSpan <= 0 disables the size limit.
func ValidateRange(start, end, maxSpan int) error {
	if start > end {
		return ErrInvalidRange
	}
	if maxSpan > 0 && (end-start < 0 || end-start >= maxSpan) {
		return fmt.Errorf("%w: at most %d numbers per loan", ErrRangeTooLarge, maxSpan)
	}
	return nil
}

// Derive computes the ordered identifiers covered by [start, end] minus the
// missing tokens plus every duplicate token, sorted ascending by numeric value.
//
// A missing token only removes a base number whose decimal form matches it
// exactly. Duplicate tokens are appended as often as they are listed, even
// when they repeat a base number. Tokens are ordered by their leading number
// ("12a" right after "12"). The sort is stable, and tokens with no numeric
// prefix sort after all others in their input order.
func Derive(start, end int, missingRaw, duplicateRaw string) Result {
	missing := make(map[string]struct{})
	for _, token := range ParseTokens(missingRaw) {
		missing[token] = struct{}{}
	}
	duplicates := ParseTokens(duplicateRaw)

	capacity := len(duplicates)
	if span := end - start; span >= 0 && span < 1<<20 {
		capacity += span + 1
	}
	entries := make([]entry, 0, capacity)

	if start <= end {
		for i := start; ; i++ {
			id := strconv.Itoa(i)
			if _, skip := missing[id]; !skip {
				entries = append(entries, newEntry(id))
			}
			if i == end {
				break
			}
		}
	}
	for _, token := range duplicates {
		entries = append(entries, newEntry(token))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].less(entries[j])
	})

	books := make([]string, len(entries))
	for i, e := range entries {
		books[i] = e.id
	}
	return Result{Books: books, Total: len(books)}
}

type entry struct {
	id  string
	key float64
}

func newEntry(id string) entry {
	return entry{id: id, key: leadingNumber(id)}
}

// leadingNumber reads the longest decimal number at the start of s, so "12a"
// sorts as 12 and "0x10" as 0. A token without a numeric prefix yields NaN.
func leadingNumber(s string) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return math.NaN()
	}
	end := i

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := j
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		if j > exp {
			end = j
		}
	}

	value, err := strconv.ParseFloat(s[:end], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return value
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func (e entry) less(other entry) bool {
	switch {
	case math.IsNaN(e.key):
		return false
	case math.IsNaN(other.key):
		return true
	default:
		return e.key < other.key
	}
}
