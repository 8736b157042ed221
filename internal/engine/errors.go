package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidTransition   = errors.New("event not allowed in current state")
	ErrEntitlementRequired = errors.New("exam requires an upgraded account")
	ErrPrayerBreakUsed     = errors.New("prayer break already used in this attempt")
	ErrSectionFinalized    = errors.New("section already finalized")
	ErrUnknownSection      = errors.New("unknown section")
	ErrReadOnlyReview      = errors.New("answers cannot change during final review")
	ErrUnknownQuestion     = errors.New("question is not part of the current section")
	ErrInvalidOption       = errors.New("option index out of range")
	ErrOutOfRange          = errors.New("question index out of range")
	ErrSessionClosed       = errors.New("exam session closed")
	ErrDuplicateAttempt    = errors.New("attempt already recorded")
)

// AssemblyError reports the sections whose questions could not be supplied.
type AssemblyError struct {
	Failed    map[int]error
	Succeeded []int
}

func (e *AssemblyError) Error() string {
	numbers := make([]int, 0, len(e.Failed))
	for n := range e.Failed {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	parts := make([]string, 0, len(numbers))
	for _, n := range numbers {
		parts = append(parts, fmt.Sprintf("section %d: %v", n, e.Failed[n]))
	}
	return "assemble exam: " + strings.Join(parts, "; ")
}

func (e *AssemblyError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}
