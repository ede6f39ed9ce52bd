package model

import "strings"

// Filter selects candidates by free-text search and status.
type Filter struct {
	Search string // matched case-insensitively against name and position
	Status Status // empty matches every status
}

// Match reports whether c passes the filter.
func (f Filter) Match(c Candidate) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(c.FullName), q) ||
		strings.Contains(strings.ToLower(c.AppliedPosition), q)
}

// Apply returns the candidates matching f, preserving order.
func (f Filter) Apply(cs []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cs))
	for _, c := range cs {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Stats counts candidates per status.
type Stats struct {
	Total        int `json:"total"`
	New          int `json:"new"`
	Interviewing int `json:"interviewing"`
	Hired        int `json:"hired"`
	Rejected     int `json:"rejected"`
}

// Tally computes Stats over cs.
func Tally(cs []Candidate) Stats {
	s := Stats{Total: len(cs)}
	for _, c := range cs {
		switch c.Status {
		case StatusNew:
			s.New++
		case StatusInterviewing:
			s.Interviewing++
		case StatusHired:
			s.Hired++
		case StatusRejected:
			s.Rejected++
		}
	}
	return s
}
