package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrPlannerDefect reports an internal invariant violation. It means the
	// fragment set handed to the planner was malformed or the planner itself
	// is broken; the caller should not retry.
	ErrPlannerDefect = errors.New("planner defect")

	// ErrUnknownVariable is returned when a fragment references a variable
	// with no node in the node graph. It wraps ErrPlannerDefect.
	ErrUnknownVariable = fmt.Errorf("%w: unknown variable", ErrPlannerDefect)

	// ErrTooManyFragments is returned when a conjunction exceeds
	// Options.MaxFragments
	ErrTooManyFragments = errors.New("too many fragments in conjunction")

	// ErrStatistics wraps failures of the statistics provider
	ErrStatistics = errors.New("statistics lookup failed")
)
