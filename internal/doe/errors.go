package doe

import (
	"errors"
	"fmt"
)

// Sentinel errors for the generation failure taxonomy. Callers dispatch with
// errors.Is; the concrete types below carry the detail.
var (
	// ErrInvalidParameterDomain reports a parameter set that cannot support
	// interaction coverage: fewer than two parameters, a duplicate or empty
	// parameter ID, or a domain with fewer than two distinct values.
	ErrInvalidParameterDomain = errors.New("invalid parameter domain")

	// ErrDesignTooLarge reports a full-factorial request whose row count
	// exceeds the configured ceiling. It is raised before any scenario is
	// materialized.
	ErrDesignTooLarge = errors.New("design too large")

	// ErrUnsupportedLevelCount reports a fractional-factorial request over a
	// parameter that is not two-level coded and has no polarity entry.
	ErrUnsupportedLevelCount = errors.New("unsupported level count")

	// ErrNoStandardDesign reports a (factor count, resolution) combination
	// outside the tabulated standard designs.
	ErrNoStandardDesign = errors.New("no standard design available")
)

// DomainError identifies the offending parameter behind an
// ErrInvalidParameterDomain failure.
type DomainError struct {
	ParameterID string
	Reason      string
}

func (e *DomainError) Error() string {
	if e.ParameterID == "" {
		return fmt.Sprintf("invalid parameter domain: %s", e.Reason)
	}
	return fmt.Sprintf("invalid parameter domain for %q: %s", e.ParameterID, e.Reason)
}

func (e *DomainError) Unwrap() error { return ErrInvalidParameterDomain }

// SizeError reports the computed full-factorial size against the ceiling
// that tripped. Size saturates at MaxInt64 for very large products.
type SizeError struct {
	Rows    int64
	Ceiling int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("design too large: %d rows exceeds ceiling of %d", e.Rows, e.Ceiling)
}

func (e *SizeError) Unwrap() error { return ErrDesignTooLarge }

// LevelCountError identifies a parameter that cannot be two-level coded for
// a fractional factorial run.
type LevelCountError struct {
	ParameterID string
	Levels      int
}

func (e *LevelCountError) Error() string {
	return fmt.Sprintf("unsupported level count for %q: %d values (need exactly 2, or a polarity entry selecting 2)",
		e.ParameterID, e.Levels)
}

func (e *LevelCountError) Unwrap() error { return ErrUnsupportedLevelCount }

// NoDesignError reports an untabulated fractional design request along with
// the nearest feasible configuration, so callers can adjust rather than
// guess.
type NoDesignError struct {
	Factors    int
	Resolution Resolution
	// MaxFactors is the largest factor count tabulated at the requested
	// resolution, or 0 if the resolution itself is unknown.
	MaxFactors int
	// MinFactors is the smallest tabulated factor count at the requested
	// resolution.
	MinFactors int
}

func (e *NoDesignError) Error() string {
	if e.MaxFactors == 0 {
		return fmt.Sprintf("no standard design available: resolution %s is not tabulated", e.Resolution)
	}
	return fmt.Sprintf("no standard design available for k=%d at resolution %s (tabulated range: %d-%d factors)",
		e.Factors, e.Resolution, e.MinFactors, e.MaxFactors)
}

func (e *NoDesignError) Unwrap() error { return ErrNoStandardDesign }
