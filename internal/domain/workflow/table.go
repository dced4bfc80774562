package workflow

import "github.com/google/uuid"

// Table is a status adjacency map: source status to the set of allowed targets.
type Table[S ~string] map[S]map[S]bool

// Allows reports whether from → to is a legal transition.
func (t Table[S]) Allows(from, to S) bool {
	next, ok := t[from]
	if !ok {
		return false
	}
	return next[to]
}

// Check returns an InvalidTransitionError when from → to is not legal.
func (t Table[S]) Check(aggregate string, id uuid.UUID, from, to S) error {
	if t.Allows(from, to) {
		return nil
	}
	return &InvalidTransitionError{Aggregate: aggregate, ID: id, From: string(from), Attempted: string(to)}
}

// Successors lists the legal targets from a status.
func (t Table[S]) Successors(from S) []S {
	out := make([]S, 0, len(t[from]))
	for s, ok := range t[from] {
		if ok {
			out = append(out, s)
		}
	}
	return out
}
