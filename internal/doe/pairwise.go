package doe

// Pairwise covering array construction, in-parameter-order (IPO) style:
// seed a full factorial over the first two parameters, then fold each
// further parameter in with a horizontal growth pass (greedily pick the
// value covering the most still-uncovered pairs per existing row) followed
// by a vertical growth pass (merge leftover pairs into rows with don't-care
// slack, appending minimal new rows when nothing merges).
//
// Every choice is index-ordered: value ties break to the lowest domain
// index, row ties to the lowest row index. No randomness, no map iteration
// in a decision path, so identical inputs reproduce identical designs.

// slack marks a row cell whose value is not yet pinned by any pair. Slack
// cells absorb later uncovered pairs during vertical growth and collapse to
// the lowest-index domain value once construction finishes.
const slack = -1

// GeneratePairwise builds a design in which every value pair of every two
// parameters appears in at least one scenario. It has no failure mode
// beyond parameter validation: vertical growth is an unconditional
// fallback, so full coverage always terminates.
func GeneratePairwise(ps *ParameterSet) (*Design, error) {
	if err := ps.validate(); err != nil {
		return nil, err
	}

	n := ps.Len()
	cm := newCoverageMap(ps)

	// assign pins a cell and records the pairs it completes against every
	// already-assigned cell in the row.
	assign := func(row []int, col, v int) {
		row[col] = v
		for c := 0; c < len(row); c++ {
			if c != col && row[c] != slack {
				cm.mark(c, row[c], col, v)
			}
		}
	}

	// Seed: full factorial over the first two parameters, first parameter
	// slowest. This covers every pair between them by construction.
	rows := make([][]int, 0, ps.DomainSize(0)*ps.DomainSize(1))
	for v0 := 0; v0 < ps.DomainSize(0); v0++ {
		for v1 := 0; v1 < ps.DomainSize(1); v1++ {
			row := newSlackRow(n)
			row[0] = v0
			assign(row, 1, v1)
			rows = append(rows, row)
		}
	}

	for p := 2; p < n; p++ {
		// Horizontal growth: extend every existing row by one column for p,
		// choosing the value that newly covers the most pairs against the
		// row's assigned cells.
		for _, row := range rows {
			bestV, bestGain := 0, -1
			for v := 0; v < ps.DomainSize(p); v++ {
				gain := 0
				for q := 0; q < p; q++ {
					if row[q] != slack && !cm.isCovered(q, row[q], p, v) {
						gain++
					}
				}
				if gain > bestGain {
					bestV, bestGain = v, gain
				}
			}
			assign(row, p, bestV)
		}

		// Vertical growth: every pair involving p that horizontal growth
		// missed either merges into the first row with compatible slack or
		// forces a new minimal row pinning just that pair.
		for q := 0; q < p; q++ {
			for vq := 0; vq < ps.DomainSize(q); vq++ {
				for vp := 0; vp < ps.DomainSize(p); vp++ {
					if cm.isCovered(q, vq, p, vp) {
						continue
					}
					merged := false
					for _, row := range rows {
						if (row[q] == vq || row[q] == slack) && (row[p] == vp || row[p] == slack) {
							if row[q] == slack {
								assign(row, q, vq)
							}
							if row[p] == slack {
								assign(row, p, vp)
							}
							merged = true
							break
						}
					}
					if !merged {
						row := newSlackRow(n)
						row[q] = vq
						assign(row, p, vp)
						rows = append(rows, row)
					}
				}
			}
		}
	}

	// Remaining slack contributes no required pair; collapse it to the
	// fixed default rule (lowest-index domain value).
	for _, row := range rows {
		for c := 0; c < n; c++ {
			if row[c] == slack {
				assign(row, c, 0)
			}
		}
	}

	scenarios := make([]Scenario, len(rows))
	for i, row := range rows {
		scenarios[i] = scenarioFromRow(ps, row)
	}

	universe := PairUniverseSize(ps)
	return &Design{
		Technique:        TechniquePairwise,
		ParameterSetHash: ps.Fingerprint(),
		Coverage: CoverageMeta{
			Guarantee:    "all-pairs",
			PairsCovered: universe - cm.remaining,
			PairUniverse: universe,
		},
		Scenarios: scenarios,
	}, nil
}

func newSlackRow(n int) []int {
	row := make([]int, n)
	for i := range row {
		row[i] = slack
	}
	return row
}
