package doe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Technique names the generation algorithm that produced a design.
type Technique string

const (
	TechniqueFullFactorial       Technique = "full_factorial"
	TechniqueFractionalFactorial Technique = "fractional_factorial"
	TechniquePairwise            Technique = "pairwise"
)

// Assignment binds one parameter to one concrete domain value.
type Assignment struct {
	ParameterID string `json:"parameter_id"`
	Value       string `json:"value"`
}

// Scenario is one generated test case: a total assignment covering every
// parameter in the set, in parameter-set order.
type Scenario struct {
	Assignments []Assignment `json:"assignments"`
}

// Value returns the assigned value for a parameter ID, or "" if absent.
func (s Scenario) Value(parameterID string) (string, bool) {
	for _, a := range s.Assignments {
		if a.ParameterID == parameterID {
			return a.Value, true
		}
	}
	return "", false
}

// FactorPolarity records which two domain values a parameter was coded to
// in a fractional factorial run: Low maps to the -1 level, High to +1.
type FactorPolarity struct {
	ParameterID string `json:"parameter_id"`
	Low         string `json:"low"`
	High        string `json:"high"`
}

// CoverageMeta describes the guarantee a design was generated under, in
// enough detail for the verifier to recompute it from scratch.
type CoverageMeta struct {
	// Guarantee is a short human-readable statement, e.g. "all-pairs" or
	// "resolution IV".
	Guarantee string `json:"guarantee"`

	// Pairwise / full factorial fields.
	PairsCovered int `json:"pairs_covered,omitempty"`
	PairUniverse int `json:"pair_universe,omitempty"`

	// Fractional factorial fields.
	RequestedResolution Resolution       `json:"requested_resolution,omitempty"`
	AchievedResolution  Resolution       `json:"achieved_resolution,omitempty"`
	Generators          []string         `json:"generators,omitempty"`
	FactorCoding        []FactorPolarity `json:"factor_coding,omitempty"`
}

// Design is the immutable product of one generation run: an ordered scenario
// sequence plus the metadata needed to re-verify it. Regenerating with the
// same inputs reproduces an identical canonical form.
type Design struct {
	Technique        Technique    `json:"technique"`
	ParameterSetHash string       `json:"parameter_set_hash"`
	Coverage         CoverageMeta `json:"coverage"`
	Scenarios        []Scenario   `json:"scenarios"`
}

// CanonicalJSON serializes the design as the stable ordered record external
// collaborators (store, exporters) depend on. Struct field order fixes the
// key order; scenario and assignment order are part of the design itself.
func (d *Design) CanonicalJSON() ([]byte, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal design: %w", err)
	}
	return b, nil
}

// Fingerprint returns a hex SHA-256 of the canonical JSON. Two generation
// runs with identical inputs produce identical fingerprints.
func (d *Design) Fingerprint() (string, error) {
	b, err := d.CanonicalJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// scenarioFromRow converts an index row (one domain index per parameter)
// into a concrete Scenario in parameter-set order.
func scenarioFromRow(ps *ParameterSet, row []int) Scenario {
	assignments := make([]Assignment, ps.Len())
	for i := 0; i < ps.Len(); i++ {
		p := ps.Param(i)
		assignments[i] = Assignment{ParameterID: p.ID, Value: p.Values[row[i]]}
	}
	return Scenario{Assignments: assignments}
}
