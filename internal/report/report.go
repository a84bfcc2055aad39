// Package report builds coverage diagnostics for generated designs: how
// much of the pair universe each successive scenario contributes and how
// coverage spreads over the parameter pairs. It renders the result as an
// ECharts HTML page or a PNG growth curve, in the spirit of a quick
// engineering look rather than a formal export.
package report

import (
	"fmt"

	"github.com/casewise/doe/internal/doe"
)

// RowCoverage records the pair-coverage contribution of one scenario.
type RowCoverage struct {
	Row        int `json:"row"`
	NewPairs   int `json:"new_pairs"`
	Cumulative int `json:"cumulative"`
}

// PairBlock aggregates coverage for one unordered parameter pair.
type PairBlock struct {
	ParameterA string `json:"parameter_a"`
	ParameterB string `json:"parameter_b"`
	Covered    int    `json:"covered"`
	Universe   int    `json:"universe"`
}

// Summary is the digested coverage picture of a design.
type Summary struct {
	Technique    doe.Technique `json:"technique"`
	PairUniverse int           `json:"pair_universe"`
	TotalCovered int           `json:"total_covered"`
	Rows         []RowCoverage `json:"rows"`
	Blocks       []PairBlock   `json:"blocks"`
}

// Coverage replays a design scenario by scenario against a fresh pair map
// and summarizes the growth. The design must belong to the parameter set.
func Coverage(d *doe.Design, ps *doe.ParameterSet) (*Summary, error) {
	if d.ParameterSetHash != "" && d.ParameterSetHash != ps.Fingerprint() {
		return nil, fmt.Errorf("design was generated from a different parameter set")
	}

	n := ps.Len()

	// Triangular pair bookkeeping, same layout the generators use: one
	// block per parameter pair, vi*|domain_j|+vj within a block.
	base := make([][]int, n)
	offset := 0
	for i := 0; i < n; i++ {
		base[i] = make([]int, n)
		for j := i + 1; j < n; j++ {
			base[i][j] = offset
			offset += ps.DomainSize(i) * ps.DomainSize(j)
		}
	}
	covered := make([]bool, offset)
	blockCovered := make([][]int, n)
	for i := range blockCovered {
		blockCovered[i] = make([]int, n)
	}

	valueIndex := func(param int, value string) (int, error) {
		for k, v := range ps.Param(param).Values {
			if v == value {
				return k, nil
			}
		}
		return 0, fmt.Errorf("value %q not in domain of %q", value, ps.Param(param).ID)
	}

	summary := &Summary{
		Technique:    d.Technique,
		PairUniverse: offset,
		Rows:         make([]RowCoverage, 0, len(d.Scenarios)),
	}

	total := 0
	for r, s := range d.Scenarios {
		if len(s.Assignments) != n {
			return nil, fmt.Errorf("scenario %d has %d assignments, want %d", r, len(s.Assignments), n)
		}
		row := make([]int, n)
		for i, a := range s.Assignments {
			vi, err := valueIndex(i, a.Value)
			if err != nil {
				return nil, fmt.Errorf("scenario %d: %w", r, err)
			}
			row[i] = vi
		}

		newPairs := 0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				idx := base[i][j] + row[i]*ps.DomainSize(j) + row[j]
				if !covered[idx] {
					covered[idx] = true
					blockCovered[i][j]++
					newPairs++
				}
			}
		}
		total += newPairs
		summary.Rows = append(summary.Rows, RowCoverage{Row: r + 1, NewPairs: newPairs, Cumulative: total})
	}
	summary.TotalCovered = total

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			summary.Blocks = append(summary.Blocks, PairBlock{
				ParameterA: ps.Param(i).ID,
				ParameterB: ps.Param(j).ID,
				Covered:    blockCovered[i][j],
				Universe:   ps.DomainSize(i) * ps.DomainSize(j),
			})
		}
	}
	return summary, nil
}
