package beacon

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSourceUnavailable marks failures to obtain a seed from the randomness
// source. Callers wrap it and never retry.
var ErrSourceUnavailable = errors.New("randomness source unavailable")

// ValidationError is returned when an allocation request cannot be honoured.
// It is raised before any work is done.
type ValidationError struct {
	Tier     Tier
	Quantity int
	Pool     int
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid allocation of %d %s beacons (pool %d): %s", e.Quantity, e.Tier, e.Pool, e.Reason)
}

// IntegrityError reports per-tier counts that differ from what a stage
// should have produced.
type IntegrityError struct {
	Stage      string
	Mismatches []Mismatch
}

// Mismatch is one tier whose count is off.
type Mismatch struct {
	Tier     Tier
	Expected int
	Actual   int
}

func (e *IntegrityError) Error() string {
	parts := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		parts[i] = fmt.Sprintf("%s expected %d got %d", m.Tier, m.Expected, m.Actual)
	}
	prefix := "integrity check failed"
	if e.Stage != "" {
		prefix += " for stage " + e.Stage
	}
	return prefix + ": " + strings.Join(parts, ", ")
}

// CheckCounts compares the tally of tokens with want. Every tier is
// compared, so a zero in want asserts the tier is absent.
func CheckCounts(stage string, tokens Tokens, want Counts) error {
	got := tokens.Counts()
	var mismatches []Mismatch
	for tier := range want {
		if got[tier] != want[tier] {
			mismatches = append(mismatches, Mismatch{Tier: Tier(tier), Expected: want[tier], Actual: got[tier]})
		}
	}
	if len(mismatches) > 0 {
		return &IntegrityError{Stage: stage, Mismatches: mismatches}
	}
	return nil
}
