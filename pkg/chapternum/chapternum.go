// Package chapternum orders chapter labels the way readers expect: "2" before
// "10", "10" before "10.5", and "10.5" before "11". Labels are stored as text
// because sources publish things like "10.5" or "7b".
package chapternum

import (
	"slices"
	"strconv"
	"strings"
)

// Number is a parsed chapter label. Labels that don't start with a number
// have Numeric set to false and sort after every numeric label.
type Number struct {
	Raw     string
	Value   float64
	Suffix  string
	Numeric bool
}

// Parse splits a label into its leading decimal value and whatever follows it.
func Parse(label string) Number {
	s := strings.TrimSpace(label)
	end := 0
	seenDot := false
	for end < len(s) {
		ch := s[end]
		if ch >= '0' && ch <= '9' {
			end++
			continue
		}
		// a dot only counts when a digit follows it
		if ch == '.' && !seenDot && end > 0 && end+1 < len(s) && s[end+1] >= '0' && s[end+1] <= '9' {
			seenDot = true
			end++
			continue
		}
		break
	}
	if end == 0 {
		return Number{Raw: label, Suffix: s}
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return Number{Raw: label, Suffix: s}
	}
	return Number{Raw: label, Value: v, Suffix: s[end:], Numeric: true}
}

// Compare returns -1, 0 or 1 depending on whether a sorts before, equal to,
// or after b.
func Compare(a, b string) int {
	return Parse(a).Compare(Parse(b))
}

// Compare orders n relative to o.
func (n Number) Compare(o Number) int {
	switch {
	case n.Numeric && !o.Numeric:
		return -1
	case !n.Numeric && o.Numeric:
		return 1
	case n.Numeric && o.Numeric:
		if n.Value < o.Value {
			return -1
		}
		if n.Value > o.Value {
			return 1
		}
	}
	return strings.Compare(n.Suffix, o.Suffix)
}

// SortDesc sorts items by chapter label, highest first. The sort is stable so
// equal labels keep their incoming order.
func SortDesc[T any](items []T, label func(T) string) {
	slices.SortStableFunc(items, func(a, b T) int {
		return Compare(label(b), label(a))
	})
}

// Neighbors returns the labels immediately below and above target among
// labels. Either result is empty when there is no such chapter.
func Neighbors(labels []string, target string) (prev, next string) {
	t := Parse(target)
	var lower, upper *Number
	for _, l := range labels {
		n := Parse(l)
		c := n.Compare(t)
		if c < 0 && (lower == nil || n.Compare(*lower) > 0) {
			lower = &n
		}
		if c > 0 && (upper == nil || n.Compare(*upper) < 0) {
			upper = &n
		}
	}
	if lower != nil {
		prev = lower.Raw
	}
	if upper != nil {
		next = upper.Raw
	}
	return prev, next
}
