package sampledata

import "fmt"

// SubjectIDGenerator hands out sequential, zero-padded subject identifiers
// with a fixed prefix. Sample rows without an explicit subject ID get one
// from here, and load harnesses use the same scheme to address subjects.
type SubjectIDGenerator struct {
	prefix string
	format string
	next   int
	min    int
	max    int
}

// NewSubjectIDGenerator builds a generator cycling through [min, max].
func NewSubjectIDGenerator(prefix, format string, min, max int) *SubjectIDGenerator {
	if max < min {
		max = min
	}
	return &SubjectIDGenerator{
		prefix: prefix,
		format: format,
		next:   min,
		min:    min,
		max:    max,
	}
}

// NextID returns the next identifier, wrapping back to min past max.
func (g *SubjectIDGenerator) NextID() string {
	id := g.prefix + fmt.Sprintf(g.format, g.next)
	g.next++
	if g.next > g.max {
		g.next = g.min
	}
	return id
}
