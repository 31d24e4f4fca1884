// Package span provides half-open integer intervals and the small algebra
// over them used by the page cache to reason about visible page ranges.
//
// A Span covers the indices [Start, End). Spans with End <= Start are empty;
// all empty spans behave identically regardless of their endpoints.
package span

import "fmt"

// Span is a half-open interval [Start, End) of page indices.
type Span struct {
	Start int
	End   int
}

// Empty is the canonical empty span.
var Empty = Span{}

// Of returns the span [start, end).
func Of(start, end int) Span {
	return Span{Start: start, End: end}
}

// String returns the span in interval notation, e.g. "[3,6)".
func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Len returns the number of indices covered by s. Empty spans have length 0.
func (s Span) Len() int {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// IsEmpty reports whether s covers no indices.
func (s Span) IsEmpty() bool {
	return s.End <= s.Start
}

// Contains reports whether index i lies within s.
func (s Span) Contains(i int) bool {
	return i >= s.Start && i < s.End
}

// Union returns the smallest span containing both a and b.
// An empty operand never expands the result: the union of anything with an
// empty span is the other operand, and the union of two empty spans is empty.
func Union(a, b Span) Span {
	switch {
	case a.IsEmpty() && b.IsEmpty():
		return Empty
	case b.IsEmpty():
		return a
	case a.IsEmpty():
		return b
	}
	return Span{Start: min(a.Start, b.Start), End: max(a.End, b.End)}
}

// Intersect returns the largest span covered by both a and b.
// The result is always well-formed: when a and b do not overlap, it is an
// empty span, never one with End < Start.
func Intersect(a, b Span) Span {
	start := max(a.Start, b.Start)
	return Span{Start: start, End: max(min(a.End, b.End), start)}
}

// Contiguous reports whether a and b overlap or touch with no gap between
// them, i.e. whether their union covers no index outside either operand.
func Contiguous(a, b Span) bool {
	return Union(a, b).Len() <= a.Len()+b.Len()
}
