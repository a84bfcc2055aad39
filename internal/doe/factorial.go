package doe

import (
	"context"
	"math"
)

// Limits bounds the resources a generation run may claim. The ceiling is
// checked against the computed row count before any scenario materializes.
type Limits struct {
	// MaxFullFactorialRows caps the row count of a full factorial run.
	MaxFullFactorialRows int64
}

// DefaultLimits returns the built-in resource ceilings.
func DefaultLimits() Limits {
	return Limits{MaxFullFactorialRows: 100_000}
}

// FullFactorialSize returns the Cartesian product size of all parameter
// domains, saturating at math.MaxInt64.
func FullFactorialSize(ps *ParameterSet) int64 {
	size := int64(1)
	for i := 0; i < ps.Len(); i++ {
		d := int64(ps.DomainSize(i))
		if size > math.MaxInt64/d {
			return math.MaxInt64
		}
		size *= d
	}
	return size
}

// EnumerateFullFactorial walks the full Cartesian product lazily in
// mixed-radix order: the first parameter varies slowest, the last fastest.
// fn receives each scenario in turn; returning an error stops the walk. The
// context is checked between row emissions so an underestimated enumeration
// can be cancelled cooperatively.
//
// The walk is a pure function of the parameter set: two walks over the same
// set yield identical sequences.
func EnumerateFullFactorial(ctx context.Context, ps *ParameterSet, fn func(Scenario) error) error {
	if err := ps.validate(); err != nil {
		return err
	}

	n := ps.Len()
	row := make([]int, n)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scenarioFromRow(ps, row)); err != nil {
			return err
		}

		// Odometer increment, last column fastest.
		i := n - 1
		for i >= 0 {
			row[i]++
			if row[i] < ps.DomainSize(i) {
				break
			}
			row[i] = 0
			i--
		}
		if i < 0 {
			return nil
		}
	}
}

// GenerateFullFactorial materializes the full Cartesian product as a Design.
// It fails with ErrDesignTooLarge before building anything if the product
// size exceeds limits.MaxFullFactorialRows, and honours ctx cancellation
// between row emissions.
func GenerateFullFactorial(ctx context.Context, ps *ParameterSet, limits Limits) (*Design, error) {
	if err := ps.validate(); err != nil {
		return nil, err
	}

	size := FullFactorialSize(ps)
	ceiling := limits.MaxFullFactorialRows
	if ceiling <= 0 {
		ceiling = DefaultLimits().MaxFullFactorialRows
	}
	if size > ceiling {
		return nil, &SizeError{Rows: size, Ceiling: ceiling}
	}

	scenarios := make([]Scenario, 0, size)
	err := EnumerateFullFactorial(ctx, ps, func(s Scenario) error {
		scenarios = append(scenarios, s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Design{
		Technique:        TechniqueFullFactorial,
		ParameterSetHash: ps.Fingerprint(),
		Coverage: CoverageMeta{
			Guarantee:    "full-factorial",
			PairsCovered: PairUniverseSize(ps),
			PairUniverse: PairUniverseSize(ps),
		},
		Scenarios: scenarios,
	}, nil
}
