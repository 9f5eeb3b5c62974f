package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownIdentifier = errors.New("identifier not part of the loan")
	ErrAlreadyReturned   = errors.New("identifier already returned")
)

// IdentifierError names the identifier that failed a return precondition.
type IdentifierError struct {
	Identifier string
	Err        error
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("%s: %q", e.Err, e.Identifier)
}

func (e *IdentifierError) Unwrap() error { return e.Err }

// Ledger pairs the frozen reference inventory of a loan with its cumulative
// returned progress. An identifier listed n times in the reference (a
// duplicate-numbered item) is n separate loan units and can be returned n
// times; for duplicate-free loans this is plain set membership.
//
// Ledger is a value: Apply returns a new Ledger and never mutates the receiver.
type Ledger struct {
	reference []string
	returned  []string
}

// NewLedger copies both sequences.
func NewLedger(reference, returned []string) Ledger {
	return Ledger{
		reference: append([]string{}, reference...),
		returned:  append([]string{}, returned...),
	}
}

// Returned lists returned identifiers in the order they came back.
func (l Ledger) Returned() []string {
	return append([]string{}, l.returned...)
}

// Outstanding lists reference identifiers not yet returned, in reference order.
func (l Ledger) Outstanding() []string {
	pending := counts(l.returned)
	out := make([]string, 0, len(l.reference))
	for _, id := range l.reference {
		if pending[id] > 0 {
			pending[id]--
			continue
		}
		out = append(out, id)
	}
	return out
}

// Complete reports whether every reference unit has come back.
func (l Ledger) Complete() bool {
	return len(l.Outstanding()) == 0
}

// Check verifies that every selected identifier belongs to the loan and still
// has an outstanding unit, counting repeats within selected.
func (l Ledger) Check(selected []string) error {
	known := counts(l.reference)
	available := l.available()
	for _, id := range selected {
		if known[id] == 0 {
			return &IdentifierError{Identifier: id, Err: ErrUnknownIdentifier}
		}
		if available[id] == 0 {
			return &IdentifierError{Identifier: id, Err: ErrAlreadyReturned}
		}
		available[id]--
	}
	return nil
}

// Apply records the selected identifiers as returned. Selections failing Check
// are skipped rather than double counted; accepted lists what was applied.
func (l Ledger) Apply(selected []string) (next Ledger, accepted []string) {
	available := l.available()
	accepted = make([]string, 0, len(selected))
	for _, id := range selected {
		if available[id] == 0 {
			continue
		}
		available[id]--
		accepted = append(accepted, id)
	}
	next = Ledger{
		reference: l.reference,
		returned:  append(append(make([]string, 0, len(l.returned)+len(accepted)), l.returned...), accepted...),
	}
	return next, accepted
}

func (l Ledger) available() map[string]int {
	available := counts(l.reference)
	for _, id := range l.returned {
		if available[id] > 0 {
			available[id]--
		}
	}
	return available
}

func counts(ids []string) map[string]int {
	m := make(map[string]int, len(ids))
	for _, id := range ids {
		m[id]++
	}
	return m
}
