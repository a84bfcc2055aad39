package doe

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// coverageMap tracks which value pairs of the pair universe are present in
// the design under construction. One instance belongs to exactly one
// generation (or verification) run and is discarded afterwards.
type coverageMap struct {
	ps *ParameterSet
	// base[i][j] for i<j is the offset of the (i,j) parameter-pair block
	// inside covered; the block is laid out vi*|domain_j|+vj.
	base      [][]int
	covered   []bool
	remaining int
	universe  int
}

func newCoverageMap(ps *ParameterSet) *coverageMap {
	n := ps.Len()
	base := make([][]int, n)
	offset := 0
	for i := 0; i < n; i++ {
		base[i] = make([]int, n)
		for j := i + 1; j < n; j++ {
			base[i][j] = offset
			offset += ps.DomainSize(i) * ps.DomainSize(j)
		}
	}
	return &coverageMap{
		ps:        ps,
		base:      base,
		covered:   make([]bool, offset),
		remaining: offset,
		universe:  offset,
	}
}

// pairIndex returns the slot for value pair (i,vi)/(j,vj). Parameter
// indices may arrive in either order.
func (m *coverageMap) pairIndex(i, vi, j, vj int) int {
	if i > j {
		i, j, vi, vj = j, i, vj, vi
	}
	return m.base[i][j] + vi*m.ps.DomainSize(j) + vj
}

func (m *coverageMap) isCovered(i, vi, j, vj int) bool {
	return m.covered[m.pairIndex(i, vi, j, vj)]
}

// mark records a pair as covered and reports whether it was new.
func (m *coverageMap) mark(i, vi, j, vj int) bool {
	idx := m.pairIndex(i, vi, j, vj)
	if m.covered[idx] {
		return false
	}
	m.covered[idx] = true
	m.remaining--
	return true
}

// markRow records every pair among the assigned columns of an index row.
// Slack cells (value < 0) are skipped.
func (m *coverageMap) markRow(row []int) {
	for i := 0; i < len(row); i++ {
		if row[i] < 0 {
			continue
		}
		for j := i + 1; j < len(row); j++ {
			if row[j] < 0 {
				continue
			}
			m.mark(i, row[i], j, row[j])
		}
	}
}

// PairGap identifies one value pair required by the all-pairs guarantee but
// absent from the design.
type PairGap struct {
	ParameterA string `json:"parameter_a"`
	ValueA     string `json:"value_a"`
	ParameterB string `json:"parameter_b"`
	ValueB     string `json:"value_b"`
}

// EffectGap identifies a requested statistical effect a fractional design
// fails to keep estimable, with the alias relation that breaks it.
type EffectGap struct {
	Effect string `json:"effect"`
	Reason string `json:"reason"`
}

// VerifyResult is the verifier's verdict. Verified is true exactly when
// both gap lists are empty.
type VerifyResult struct {
	Verified     bool        `json:"verified"`
	MissingPairs []PairGap   `json:"missing_pairs,omitempty"`
	EffectGaps   []EffectGap `json:"effect_gaps,omitempty"`
}

// Verify recomputes a design's coverage guarantee from scratch, independent
// of any generator bookkeeping. Pairwise and full-factorial designs are
// checked for all-pairs coverage; fractional designs for effect
// estimability under the recorded factor coding.
//
// A design that does not match the parameter set at all (wrong fingerprint,
// missing assignments, out-of-domain values) is caller misuse and returns an
// error rather than a coverage gap.
func Verify(d *Design, ps *ParameterSet) (*VerifyResult, error) {
	if d == nil {
		return nil, fmt.Errorf("verify: nil design")
	}
	if err := ps.validate(); err != nil {
		return nil, err
	}
	if d.ParameterSetHash != "" && d.ParameterSetHash != ps.Fingerprint() {
		return nil, fmt.Errorf("verify: design was generated from a different parameter set (hash mismatch)")
	}
	rows, err := indexRows(d, ps)
	if err != nil {
		return nil, err
	}

	switch d.Technique {
	case TechniquePairwise, TechniqueFullFactorial:
		return verifyAllPairs(rows, ps), nil
	case TechniqueFractionalFactorial:
		return verifyFractional(d, rows, ps)
	default:
		return nil, fmt.Errorf("verify: unknown technique %q", d.Technique)
	}
}

// indexRows converts scenarios back to domain-index rows, enforcing
// totality: every parameter assigned exactly once, in set order, with an
// in-domain value.
func indexRows(d *Design, ps *ParameterSet) ([][]int, error) {
	rows := make([][]int, len(d.Scenarios))
	for r, s := range d.Scenarios {
		if len(s.Assignments) != ps.Len() {
			return nil, fmt.Errorf("verify: scenario %d has %d assignments, want %d", r, len(s.Assignments), ps.Len())
		}
		row := make([]int, ps.Len())
		for i, a := range s.Assignments {
			p := ps.Param(i)
			if a.ParameterID != p.ID {
				return nil, fmt.Errorf("verify: scenario %d assignment %d is for %q, want %q", r, i, a.ParameterID, p.ID)
			}
			vi := -1
			for k, v := range p.Values {
				if v == a.Value {
					vi = k
					break
				}
			}
			if vi < 0 {
				return nil, fmt.Errorf("verify: scenario %d assigns %q=%q, not in domain", r, p.ID, a.Value)
			}
			row[i] = vi
		}
		rows[r] = row
	}
	return rows, nil
}

func verifyAllPairs(rows [][]int, ps *ParameterSet) *VerifyResult {
	cm := newCoverageMap(ps)
	for _, row := range rows {
		cm.markRow(row)
	}
	if cm.remaining == 0 {
		return &VerifyResult{Verified: true}
	}

	var gaps []PairGap
	for i := 0; i < ps.Len(); i++ {
		for j := i + 1; j < ps.Len(); j++ {
			for vi := 0; vi < ps.DomainSize(i); vi++ {
				for vj := 0; vj < ps.DomainSize(j); vj++ {
					if !cm.isCovered(i, vi, j, vj) {
						gaps = append(gaps, PairGap{
							ParameterA: ps.Param(i).ID,
							ValueA:     ps.Param(i).Values[vi],
							ParameterB: ps.Param(j).ID,
							ValueB:     ps.Param(j).Values[vj],
						})
					}
				}
			}
		}
	}
	return &VerifyResult{Verified: false, MissingPairs: gaps}
}

// verifyFractional rebuilds the +-1 sign matrix from the recorded factor
// coding and checks estimability: main effects must be mutually unaliased
// and unaliased with the mean, and for a resolution IV (or better) claim no
// main effect may be aliased with a two-factor interaction.
func verifyFractional(d *Design, rows [][]int, ps *ParameterSet) (*VerifyResult, error) {
	k := ps.Len()
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("verify: fractional design has no scenarios")
	}

	coding := make(map[string]FactorPolarity, len(d.Coverage.FactorCoding))
	for _, fc := range d.Coverage.FactorCoding {
		coding[fc.ParameterID] = fc
	}

	// signs[r][i] is the coded level of factor i in run r.
	signs := mat.NewDense(n, k, nil)
	for r, row := range rows {
		for i := 0; i < k; i++ {
			p := ps.Param(i)
			fc, ok := coding[p.ID]
			if !ok {
				// Default coding: first domain value is the low level.
				fc = FactorPolarity{ParameterID: p.ID, Low: p.Values[0], High: p.Values[1]}
			}
			switch p.Values[row[i]] {
			case fc.Low:
				signs.Set(r, i, -1)
			case fc.High:
				signs.Set(r, i, +1)
			default:
				return nil, fmt.Errorf("verify: scenario %d value %q for %q is outside the recorded factor coding",
					r, p.Values[row[i]], p.ID)
			}
		}
	}

	var gaps []EffectGap
	const eps = 1e-9
	fn := float64(n)

	// Gram matrix of [intercept | mains]: an off-diagonal entry of +-n means
	// the two columns are identical up to sign, i.e. fully aliased.
	model := mat.NewDense(n, k+1, nil)
	for r := 0; r < n; r++ {
		model.Set(r, 0, 1)
		for i := 0; i < k; i++ {
			model.Set(r, i+1, signs.At(r, i))
		}
	}
	var gram mat.Dense
	gram.Mul(model.T(), model)

	for i := 0; i < k; i++ {
		if math.Abs(math.Abs(gram.At(0, i+1))-fn) < eps {
			gaps = append(gaps, EffectGap{
				Effect: ps.Param(i).ID,
				Reason: "main effect aliased with the mean",
			})
		}
		for j := i + 1; j < k; j++ {
			if math.Abs(math.Abs(gram.At(i+1, j+1))-fn) < eps {
				gaps = append(gaps, EffectGap{
					Effect: ps.Param(i).ID,
					Reason: fmt.Sprintf("main effect aliased with main effect %s", ps.Param(j).ID),
				})
			}
		}
	}

	// Independent rank check catches dependencies the pairwise scan cannot
	// name (three or more columns summing to a constant).
	var svd mat.SVD
	if !svd.Factorize(model, mat.SVDNone) {
		return nil, fmt.Errorf("verify: SVD factorization failed")
	}
	vals := svd.Values(nil)
	rank := 0
	for _, v := range vals {
		if v > 1e-9*vals[0] {
			rank++
		}
	}
	if rank < k+1 && len(gaps) == 0 {
		gaps = append(gaps, EffectGap{
			Effect: "main effects",
			Reason: fmt.Sprintf("model matrix rank %d < %d; some main-effect combination is confounded", rank, k+1),
		})
	}

	// A resolution IV claim additionally promises mains clear of two-factor
	// interactions; resolution V promises interactions clear of each other.
	res := d.Coverage.AchievedResolution
	if res >= ResolutionIV {
		for a := 0; a < k; a++ {
			for b := a + 1; b < k; b++ {
				for c := 0; c < k; c++ {
					if c == a || c == b {
						continue
					}
					dot := 0.0
					for r := 0; r < n; r++ {
						dot += signs.At(r, a) * signs.At(r, b) * signs.At(r, c)
					}
					if math.Abs(math.Abs(dot)-fn) < eps {
						gaps = append(gaps, EffectGap{
							Effect: ps.Param(c).ID,
							Reason: fmt.Sprintf("main effect aliased with interaction %s*%s despite resolution %s claim",
								ps.Param(a).ID, ps.Param(b).ID, res),
						})
					}
				}
			}
		}
	}
	if res >= ResolutionV {
		type fpair struct{ a, b int }
		var pairs []fpair
		for a := 0; a < k; a++ {
			for b := a + 1; b < k; b++ {
				pairs = append(pairs, fpair{a, b})
			}
		}
		for x := 0; x < len(pairs); x++ {
			for y := x + 1; y < len(pairs); y++ {
				p, q := pairs[x], pairs[y]
				dot := 0.0
				for r := 0; r < n; r++ {
					dot += signs.At(r, p.a) * signs.At(r, p.b) * signs.At(r, q.a) * signs.At(r, q.b)
				}
				if math.Abs(math.Abs(dot)-fn) < eps {
					gaps = append(gaps, EffectGap{
						Effect: fmt.Sprintf("%s*%s", ps.Param(p.a).ID, ps.Param(p.b).ID),
						Reason: fmt.Sprintf("interaction aliased with interaction %s*%s despite resolution %s claim",
							ps.Param(q.a).ID, ps.Param(q.b).ID, res),
					})
				}
			}
		}
	}

	return &VerifyResult{Verified: len(gaps) == 0, EffectGaps: gaps}, nil
}
