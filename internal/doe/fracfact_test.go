package doe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLevelParams(ids ...string) []Parameter {
	params := make([]Parameter, len(ids))
	for i, id := range ids {
		params[i] = Parameter{ID: id, Values: []string{id + "-lo", id + "-hi"}}
	}
	return params
}

func TestGenerateFractionalFactorial_ExplicitGenerator(t *testing.T) {
	// The textbook half-fraction: 4 two-level factors with D=ABC gives a
	// 2^(4-1) resolution IV design of exactly 8 runs.
	ps, err := NewParameterSet(twoLevelParams("a", "b", "c", "d"))
	require.NoError(t, err)

	d, err := GenerateFractionalFactorial(ps, FracFactOptions{Generators: []string{"D=ABC"}})
	require.NoError(t, err)

	assert.Len(t, d.Scenarios, 8)
	assert.Equal(t, Resolution(4), d.Coverage.AchievedResolution)
	assert.Equal(t, []string{"D=ABC"}, d.Coverage.Generators)

	res, err := Verify(d, ps)
	require.NoError(t, err)
	assert.True(t, res.Verified, "all four main effects should be estimable: %+v", res.EffectGaps)
}

func TestGenerateFractionalFactorial_RowOrder(t *testing.T) {
	ps, err := NewParameterSet(twoLevelParams("a", "b", "c", "d"))
	require.NoError(t, err)

	d, err := GenerateFractionalFactorial(ps, FracFactOptions{Generators: []string{"D=ABC"}})
	require.NoError(t, err)

	// Basic factors A,B,C run in mixed-radix order, A slowest. First row is
	// all-low; D = A*B*C so the first row has D low as well.
	first := d.Scenarios[0]
	for _, a := range first.Assignments {
		assert.Contains(t, a.Value, "-lo", "first row should sit at the low level of every factor")
	}

	// Second row: C flips high, so D = (-1)(-1)(+1) = +1.
	second := d.Scenarios[1]
	assert.Equal(t, "a-lo", second.Assignments[0].Value)
	assert.Equal(t, "b-lo", second.Assignments[1].Value)
	assert.Equal(t, "c-hi", second.Assignments[2].Value)
	assert.Equal(t, "d-hi", second.Assignments[3].Value)
}

func TestGenerateFractionalFactorial_StandardTable(t *testing.T) {
	cases := []struct {
		k        int
		res      Resolution
		wantRows int
		wantRes  Resolution
	}{
		{3, ResolutionIII, 4, 3},
		{4, ResolutionIV, 8, 4},
		{5, ResolutionIII, 8, 3},
		{5, ResolutionV, 16, 5},
		{6, ResolutionIV, 16, 4},
		{6, ResolutionV, 32, 6}, // 2^(6-1) with F=ABCDE achieves VI
		{7, ResolutionIII, 8, 3},
		{8, ResolutionV, 64, 5},
	}

	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, tc := range cases {
		ps, err := NewParameterSet(twoLevelParams(ids[:tc.k]...))
		require.NoError(t, err)

		d, err := GenerateFractionalFactorial(ps, FracFactOptions{Resolution: tc.res})
		require.NoError(t, err, "k=%d res=%s", tc.k, tc.res)

		assert.Len(t, d.Scenarios, tc.wantRows, "k=%d res=%s", tc.k, tc.res)
		assert.Equal(t, tc.wantRes, d.Coverage.AchievedResolution, "k=%d res=%s", tc.k, tc.res)
		assert.Equal(t, tc.res, d.Coverage.RequestedResolution)

		res, err := Verify(d, ps)
		require.NoError(t, err)
		assert.True(t, res.Verified, "k=%d res=%s gaps=%+v", tc.k, tc.res, res.EffectGaps)
	}
}

func TestGenerateFractionalFactorial_NoStandardDesign(t *testing.T) {
	ps, err := NewParameterSet(twoLevelParams("a", "b", "c", "d", "e", "f", "g", "h", "i"))
	require.NoError(t, err)

	_, err = GenerateFractionalFactorial(ps, FracFactOptions{Resolution: ResolutionV})
	require.ErrorIs(t, err, ErrNoStandardDesign)

	var nde *NoDesignError
	require.ErrorAs(t, err, &nde)
	assert.Equal(t, 9, nde.Factors)
	assert.Equal(t, ResolutionV, nde.Resolution)
	assert.Equal(t, 8, nde.MaxFactors, "error should point at the nearest feasible k")
}

func TestGenerateFractionalFactorial_UnsupportedLevels(t *testing.T) {
	ps, err := NewParameterSet([]Parameter{
		{ID: "a", Values: []string{"lo", "hi"}},
		{ID: "b", Values: []string{"lo", "hi"}},
		{ID: "c", Values: []string{"lo", "mid", "hi"}},
		{ID: "d", Values: []string{"lo", "hi"}},
	})
	require.NoError(t, err)

	_, err = GenerateFractionalFactorial(ps, FracFactOptions{Resolution: ResolutionIV})
	require.ErrorIs(t, err, ErrUnsupportedLevelCount)

	var lce *LevelCountError
	require.ErrorAs(t, err, &lce)
	assert.Equal(t, "c", lce.ParameterID)
	assert.Equal(t, 3, lce.Levels)

	// A polarity entry discretizes the three-level parameter to two
	// representative values, making the run constructible.
	d, err := GenerateFractionalFactorial(ps, FracFactOptions{
		Resolution: ResolutionIV,
		Polarity:   map[string][2]int{"c": {0, 2}},
	})
	require.NoError(t, err)
	assert.Len(t, d.Scenarios, 8)
	for _, s := range d.Scenarios {
		v, _ := s.Value("c")
		assert.NotEqual(t, "mid", v, "discretized parameter must never take its middle value")
	}

	res, err := Verify(d, ps)
	require.NoError(t, err)
	assert.True(t, res.Verified)
}

func TestGenerateFractionalFactorial_PolarityValidation(t *testing.T) {
	ps, err := NewParameterSet(twoLevelParams("a", "b", "c", "d"))
	require.NoError(t, err)

	_, err = GenerateFractionalFactorial(ps, FracFactOptions{
		Resolution: ResolutionIV,
		Polarity:   map[string][2]int{"a": {0, 5}},
	})
	assert.Error(t, err)

	_, err = GenerateFractionalFactorial(ps, FracFactOptions{
		Resolution: ResolutionIV,
		Polarity:   map[string][2]int{"a": {1, 1}},
	})
	assert.Error(t, err)
}

func TestGenerateFractionalFactorial_AchievedBelowRequested(t *testing.T) {
	// Explicit generators can achieve less than the caller hoped for; the
	// achieved value is reported, never upgraded to the request.
	ps, err := NewParameterSet(twoLevelParams("a", "b", "c", "d", "e"))
	require.NoError(t, err)

	d, err := GenerateFractionalFactorial(ps, FracFactOptions{
		Resolution: ResolutionV,
		Generators: []string{"D=AB", "E=AC"},
	})
	require.NoError(t, err)

	assert.Equal(t, ResolutionV, d.Coverage.RequestedResolution)
	assert.Equal(t, ResolutionIII, d.Coverage.AchievedResolution)
	assert.Equal(t, "resolution III", d.Coverage.Guarantee)
}

func TestGenerateFractionalFactorial_GeneratorParsing(t *testing.T) {
	ps, err := NewParameterSet(twoLevelParams("a", "b", "c", "d"))
	require.NoError(t, err)

	// Tolerated spellings of the same relation.
	for _, g := range []string{"D=ABC", "d = a*b*c", "D = A·B·C"} {
		d, err := GenerateFractionalFactorial(ps, FracFactOptions{Generators: []string{g}})
		require.NoError(t, err, "generator %q", g)
		assert.Equal(t, []string{"D=ABC"}, d.Coverage.Generators, "generator %q", g)
	}

	bad := [][]string{
		{"D=A"},          // single-term relation
		{"Z=AB"},         // letter beyond the declared parameters
		{"D=AD"},         // self-reference
		{"D=AB", "D=AC"}, // duplicate target
		{"C=AB", "D=AC"}, // rhs uses a generated factor
		{"DABC"},         // missing '='
	}
	for _, gens := range bad {
		_, err := GenerateFractionalFactorial(ps, FracFactOptions{Generators: gens})
		assert.Error(t, err, "generators %v", gens)
	}
}

func TestGenerateFractionalFactorial_Deterministic(t *testing.T) {
	ps, err := NewParameterSet(twoLevelParams("a", "b", "c", "d", "e", "f"))
	require.NoError(t, err)

	d1, err := GenerateFractionalFactorial(ps, FracFactOptions{Resolution: ResolutionIV})
	require.NoError(t, err)
	d2, err := GenerateFractionalFactorial(ps, FracFactOptions{Resolution: ResolutionIV})
	require.NoError(t, err)

	f1, err := d1.Fingerprint()
	require.NoError(t, err)
	f2, err := d2.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
}

func TestGenerateFractionalFactorial_RequiresConfiguration(t *testing.T) {
	ps, err := NewParameterSet(twoLevelParams("a", "b", "c", "d"))
	require.NoError(t, err)

	_, err = GenerateFractionalFactorial(ps, FracFactOptions{})
	assert.Error(t, err)
}

func TestParseResolution(t *testing.T) {
	for in, want := range map[string]Resolution{
		"III": 3, "iv": 4, "V": 5, "3": 3, "4": 4, "5": 5, " IV ": 4,
	} {
		got, err := ParseResolution(in)
		if err != nil {
			t.Errorf("ParseResolution(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseResolution(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseResolution("VI"); err == nil {
		t.Errorf("ParseResolution(VI) should fail: only III-V are requestable")
	}
}
