package doe

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// Resolution grades a fractional factorial design: the shortest word length
// in its defining contrast subgroup. Resolution III keeps main effects clear
// of each other, IV keeps them clear of two-factor interactions, V keeps
// two-factor interactions clear of each other.
type Resolution int

const (
	ResolutionIII Resolution = 3
	ResolutionIV  Resolution = 4
	ResolutionV   Resolution = 5
)

func (r Resolution) String() string {
	switch r {
	case 3:
		return "III"
	case 4:
		return "IV"
	case 5:
		return "V"
	case 6:
		return "VI"
	case 7:
		return "VII"
	default:
		return fmt.Sprintf("%d", int(r))
	}
}

// ParseResolution accepts roman ("III", "IV", "V") or numeric ("3".."5")
// resolution names.
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "III", "3":
		return ResolutionIII, nil
	case "IV", "4":
		return ResolutionIV, nil
	case "V", "5":
		return ResolutionV, nil
	default:
		return 0, fmt.Errorf("unknown resolution %q (want III, IV or V)", s)
	}
}

// standardDesigns maps requested resolution and factor count to a standard
// minimum-run generator set. Factors are lettered A, B, C, ... in parameter
// set order. The tabulated range follows the classical 2-level design
// tables; requests outside it fail with ErrNoStandardDesign.
var standardDesigns = map[Resolution]map[int][]string{
	ResolutionIII: {
		3: {"C=AB"},
		4: {"D=AB"},
		5: {"D=AB", "E=AC"},
		6: {"D=AB", "E=AC", "F=BC"},
		7: {"D=AB", "E=AC", "F=BC", "G=ABC"},
	},
	ResolutionIV: {
		4: {"D=ABC"},
		5: {"E=ABC"},
		6: {"E=ABC", "F=BCD"},
		7: {"E=ABC", "F=BCD", "G=ACD"},
		8: {"F=ABC", "G=ABD", "H=BCDE"},
	},
	ResolutionV: {
		5: {"E=ABCD"},
		6: {"F=ABCDE"},
		7: {"G=ABCDEF"},
		8: {"G=ABCD", "H=ABEF"},
	},
}

// FracFactOptions configures a fractional factorial run.
type FracFactOptions struct {
	// Resolution selects a tabulated standard generator set. Required unless
	// Generators is supplied; with explicit Generators it is recorded as the
	// requested target only.
	Resolution Resolution

	// Generators supplies explicit defining relations such as "E=ABC",
	// overriding the standard table. Each non-basic factor must be defined
	// exactly once in terms of basic factors.
	Generators []string

	// Polarity maps a parameter ID to the two domain indices used as the
	// low (-1) and high (+1) coded levels. Required for any parameter with
	// more than two values; optional override for two-level parameters. The
	// discretization choice is the caller's, never inferred.
	Polarity map[string][2]int
}

// generator is one parsed defining relation: the target factor's column is
// the sign product of the rhs factors' columns.
type generator struct {
	target int
	rhs    []int
	word   uint32 // bitmask of target | rhs, for the defining subgroup
}

// GenerateFractionalFactorial builds a 2^(k-p) design over two-level coded
// factors. Row order is mixed-radix over the basic factors, first basic
// factor slowest. The achieved resolution is computed from the defining
// contrast subgroup and recorded even when it differs from the request.
func GenerateFractionalFactorial(ps *ParameterSet, opts FracFactOptions) (*Design, error) {
	if err := ps.validate(); err != nil {
		return nil, err
	}
	k := ps.Len()
	if k > 26 {
		return nil, fmt.Errorf("%w: factor lettering supports at most 26 factors, got %d", ErrNoStandardDesign, k)
	}

	coding, err := resolveCoding(ps, opts.Polarity)
	if err != nil {
		return nil, err
	}

	genStrings := opts.Generators
	if len(genStrings) == 0 {
		if opts.Resolution == 0 {
			return nil, fmt.Errorf("fractional factorial requires a resolution or explicit generators")
		}
		genStrings, err = lookupStandardDesign(k, opts.Resolution)
		if err != nil {
			return nil, err
		}
	}

	gens, err := parseGenerators(ps, genStrings)
	if err != nil {
		return nil, err
	}

	basic := basicFactors(k, gens)
	achieved := achievedResolution(gens)

	rows := buildFractionalRows(ps, basic, gens, coding)
	scenarios := make([]Scenario, len(rows))
	for i, row := range rows {
		scenarios[i] = scenarioFromRow(ps, row)
	}

	guarantee := fmt.Sprintf("resolution %s", achieved)
	if achieved == 0 {
		guarantee = "degenerate (dependent generators)"
	}

	return &Design{
		Technique:        TechniqueFractionalFactorial,
		ParameterSetHash: ps.Fingerprint(),
		Coverage: CoverageMeta{
			Guarantee:           guarantee,
			RequestedResolution: opts.Resolution,
			AchievedResolution:  achieved,
			Generators:          normalizeGenerators(ps, gens),
			FactorCoding:        codingMeta(ps, coding),
		},
		Scenarios: scenarios,
	}, nil
}

// resolveCoding picks the low/high domain indices for every factor: the
// caller's polarity entry when present, the natural (first, second) pair for
// two-level domains otherwise.
func resolveCoding(ps *ParameterSet, polarity map[string][2]int) ([][2]int, error) {
	coding := make([][2]int, ps.Len())
	for i := 0; i < ps.Len(); i++ {
		p := ps.Param(i)
		if pol, ok := polarity[p.ID]; ok {
			if pol[0] < 0 || pol[0] >= len(p.Values) || pol[1] < 0 || pol[1] >= len(p.Values) {
				return nil, fmt.Errorf("polarity for %q: indices [%d %d] out of domain range 0-%d",
					p.ID, pol[0], pol[1], len(p.Values)-1)
			}
			if pol[0] == pol[1] {
				return nil, fmt.Errorf("polarity for %q: low and high must differ", p.ID)
			}
			coding[i] = pol
			continue
		}
		if len(p.Values) != 2 {
			return nil, &LevelCountError{ParameterID: p.ID, Levels: len(p.Values)}
		}
		coding[i] = [2]int{0, 1}
	}
	return coding, nil
}

func lookupStandardDesign(k int, res Resolution) ([]string, error) {
	table, ok := standardDesigns[res]
	if !ok {
		return nil, &NoDesignError{Factors: k, Resolution: res}
	}
	gens, ok := table[k]
	if !ok {
		minK, maxK := tabulatedRange(table)
		return nil, &NoDesignError{Factors: k, Resolution: res, MinFactors: minK, MaxFactors: maxK}
	}
	return gens, nil
}

func tabulatedRange(table map[int][]string) (minK, maxK int) {
	for k := range table {
		if minK == 0 || k < minK {
			minK = k
		}
		if k > maxK {
			maxK = k
		}
	}
	return minK, maxK
}

// parseGenerators parses relations like "E=ABC" (also accepting "e = a·b·c"
// or "E=A*B*C") against the lettered factor order and validates the
// generator structure: each target defined once, rhs drawn from basic
// factors, at least two rhs terms.
func parseGenerators(ps *ParameterSet, genStrings []string) ([]generator, error) {
	k := ps.Len()
	gens := make([]generator, 0, len(genStrings))
	targeted := make(map[int]bool, len(genStrings))

	for _, raw := range genStrings {
		clean := strings.ToUpper(strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\t', '*', '.', '·': // tolerate A*B and A·B forms
				return -1
			}
			return r
		}, raw))
		lhs, rhs, found := strings.Cut(clean, "=")
		if !found || len(lhs) != 1 || len(rhs) < 2 {
			return nil, fmt.Errorf("parse generator %q: want the form \"E=ABC\"", raw)
		}

		target, err := factorIndex(k, rune(lhs[0]))
		if err != nil {
			return nil, fmt.Errorf("parse generator %q: %v", raw, err)
		}
		if targeted[target] {
			return nil, fmt.Errorf("parse generator %q: factor %c defined twice", raw, lhs[0])
		}
		targeted[target] = true

		g := generator{target: target, word: 1 << target}
		seen := make(map[int]bool, len(rhs))
		for _, r := range rhs {
			idx, err := factorIndex(k, r)
			if err != nil {
				return nil, fmt.Errorf("parse generator %q: %v", raw, err)
			}
			if idx == target {
				return nil, fmt.Errorf("parse generator %q: factor %c cannot generate itself", raw, r)
			}
			if seen[idx] {
				return nil, fmt.Errorf("parse generator %q: factor %c repeated", raw, r)
			}
			seen[idx] = true
			g.rhs = append(g.rhs, idx)
			g.word |= 1 << idx
		}
		gens = append(gens, g)
	}

	// rhs factors must all be basic (not themselves generated).
	for _, g := range gens {
		for _, idx := range g.rhs {
			if targeted[idx] {
				return nil, fmt.Errorf("generator for %c uses generated factor %c; generators must reference basic factors",
					'A'+rune(g.target), 'A'+rune(idx))
			}
		}
	}
	return gens, nil
}

func factorIndex(k int, letter rune) (int, error) {
	if letter < 'A' || letter > 'Z' {
		return 0, fmt.Errorf("invalid factor letter %q", letter)
	}
	idx := int(letter - 'A')
	if idx >= k {
		return 0, fmt.Errorf("factor %c exceeds the %d declared parameters", letter, k)
	}
	return idx, nil
}

// basicFactors returns the factor indices not targeted by any generator, in
// parameter-set order.
func basicFactors(k int, gens []generator) []int {
	targeted := make(map[int]bool, len(gens))
	for _, g := range gens {
		targeted[g.target] = true
	}
	basic := make([]int, 0, k-len(gens))
	for i := 0; i < k; i++ {
		if !targeted[i] {
			basic = append(basic, i)
		}
	}
	return basic
}

// achievedResolution computes the shortest word length over the defining
// contrast subgroup (all XOR combinations of generator words). A result of
// 0 means the generators are dependent and the design is degenerate.
func achievedResolution(gens []generator) Resolution {
	p := len(gens)
	minLen := -1
	for subset := 1; subset < 1<<p; subset++ {
		var word uint32
		for g := 0; g < p; g++ {
			if subset&(1<<g) != 0 {
				word ^= gens[g].word
			}
		}
		length := bits.OnesCount32(word)
		if minLen < 0 || length < minLen {
			minLen = length
		}
	}
	if minLen < 0 {
		return 0
	}
	return Resolution(minLen)
}

// buildFractionalRows emits one index row per sign pattern: a full factorial
// over the basic factors (first basic factor slowest), generated factors
// derived as sign products of their relation.
func buildFractionalRows(ps *ParameterSet, basic []int, gens []generator, coding [][2]int) [][]int {
	k := ps.Len()
	nRows := 1 << len(basic)
	rows := make([][]int, 0, nRows)

	// signs[i] is the current coded level of factor i.
	signs := make([]int, k)
	levels := make([]int, len(basic))

	for {
		for b, idx := range basic {
			if levels[b] == 0 {
				signs[idx] = -1
			} else {
				signs[idx] = +1
			}
		}
		for _, g := range gens {
			s := 1
			for _, idx := range g.rhs {
				s *= signs[idx]
			}
			signs[g.target] = s
		}

		row := make([]int, k)
		for i := 0; i < k; i++ {
			if signs[i] < 0 {
				row[i] = coding[i][0]
			} else {
				row[i] = coding[i][1]
			}
		}
		rows = append(rows, row)

		// Odometer over basic factors, last basic fastest.
		i := len(basic) - 1
		for i >= 0 {
			levels[i]++
			if levels[i] < 2 {
				break
			}
			levels[i] = 0
			i--
		}
		if i < 0 {
			return rows
		}
	}
}

// normalizeGenerators re-renders the parsed relations in canonical
// "E=ABC" form for the design metadata.
func normalizeGenerators(ps *ParameterSet, gens []generator) []string {
	out := make([]string, len(gens))
	for i, g := range gens {
		rhs := append([]int(nil), g.rhs...)
		sort.Ints(rhs)
		var sb strings.Builder
		sb.WriteRune('A' + rune(g.target))
		sb.WriteByte('=')
		for _, idx := range rhs {
			sb.WriteRune('A' + rune(idx))
		}
		out[i] = sb.String()
	}
	return out
}

func codingMeta(ps *ParameterSet, coding [][2]int) []FactorPolarity {
	out := make([]FactorPolarity, ps.Len())
	for i := 0; i < ps.Len(); i++ {
		p := ps.Param(i)
		out[i] = FactorPolarity{ParameterID: p.ID, Low: p.Values[coding[i][0]], High: p.Values[coding[i][1]]}
	}
	return out
}
