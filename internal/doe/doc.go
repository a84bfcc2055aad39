// Package doe implements combinatorial test design generation: full
// factorial enumeration, two-level fractional factorial reduction, and
// pairwise (all-pairs) covering array construction, together with an
// independent coverage verifier.
//
// The package is computation-only. Every generation call receives its own
// ParameterSet, owns its own coverage bookkeeping, and returns an immutable
// Design; no state survives between calls, so concurrent generations need
// no coordination. Persistence, export, and transport live with the
// surrounding application (see internal/doestore for the keyed design
// cache).
//
// All construction is deterministic: greedy choices break ties by lowest
// domain index, then lowest row index, and row emission follows mixed-radix
// order with the first parameter varying slowest. Two calls with identical
// inputs yield byte-identical canonical designs.
package doe
