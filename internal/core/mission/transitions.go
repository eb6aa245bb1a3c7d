// Package mission contains the pure state-machine rules for verification
// missions. No I/O; illegal states are rejected here, centrally, before any
// write.
package mission

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned for any transition outside the table.
var ErrIllegalTransition = errors.New("illegal mission transition")

// Status represents the possible states of a verification mission.
type Status string

const (
	StatusOpen      Status = "open"
	StatusBlocked   Status = "blocked"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Type distinguishes corroboration from refutation work.
type Type string

const (
	TypeSearch Type = "SEARCH"
	TypeRefute Type = "REFUTE"
)

// transitions is the explicit transition table. done and cancelled are
// terminal.
var transitions = map[Status][]Status{
	StatusOpen:    {StatusBlocked, StatusDone, StatusCancelled},
	StatusBlocked: {StatusDone, StatusCancelled},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrIllegalTransition (wrapped with both states)
// unless from -> to is legal.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// Terminal reports whether a status admits no further transitions.
func Terminal(s Status) bool {
	return len(transitions[s]) == 0
}

// ValidStatus reports whether s is a known mission status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusBlocked, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// InitialStatus is the status every planned mission starts in.
func InitialStatus() Status {
	return StatusOpen
}

// TypeForFinding picks the mission type the planner assigns: findings already
// under suspicion get REFUTE, everything else gets SEARCH.
func TypeForFinding(tags []string) Type {
	for _, tag := range tags {
		switch tag {
		case "unverified", "disputed":
			return TypeRefute
		}
	}
	return TypeSearch
}
