package doe

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Parameter is one input dimension of a test scenario: a stable ID, a
// display name, and an ordered domain of distinct candidate values. The
// domain order is load-bearing: it drives mixed-radix enumeration order and
// every greedy tie-break downstream.
type Parameter struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// ParameterSet is an ordered, validated collection of parameters. It is
// immutable once constructed; generators treat it as read-only input.
type ParameterSet struct {
	params []Parameter
	index  map[string]int
}

// NewParameterSet validates and freezes a parameter list. It rejects sets
// with fewer than two parameters, duplicate or empty IDs, and any domain
// with fewer than two distinct values, wrapping ErrInvalidParameterDomain.
func NewParameterSet(params []Parameter) (*ParameterSet, error) {
	if len(params) < 2 {
		return nil, &DomainError{Reason: "at least 2 parameters are required for interaction coverage"}
	}

	index := make(map[string]int, len(params))
	for i, p := range params {
		if p.ID == "" {
			return nil, &DomainError{Reason: "parameter ID must not be empty"}
		}
		if _, dup := index[p.ID]; dup {
			return nil, &DomainError{ParameterID: p.ID, Reason: "duplicate parameter ID"}
		}
		if len(p.Values) < 2 {
			return nil, &DomainError{ParameterID: p.ID, Reason: "domain must contain at least 2 values"}
		}
		seen := make(map[string]struct{}, len(p.Values))
		for _, v := range p.Values {
			if _, dup := seen[v]; dup {
				return nil, &DomainError{ParameterID: p.ID, Reason: "domain values must be distinct"}
			}
			seen[v] = struct{}{}
		}
		index[p.ID] = i
	}

	// Copy so later mutation of the caller's slice cannot leak in.
	frozen := make([]Parameter, len(params))
	for i, p := range params {
		frozen[i] = Parameter{ID: p.ID, Name: p.Name, Values: append([]string(nil), p.Values...)}
	}

	return &ParameterSet{params: frozen, index: index}, nil
}

// Len returns the number of parameters.
func (ps *ParameterSet) Len() int { return len(ps.params) }

// Param returns the parameter at position i in insertion order.
func (ps *ParameterSet) Param(i int) Parameter { return ps.params[i] }

// Parameters returns a copy of the parameter sequence in insertion order.
func (ps *ParameterSet) Parameters() []Parameter {
	out := make([]Parameter, len(ps.params))
	copy(out, ps.params)
	return out
}

// IndexOf returns the position of the parameter with the given ID, or -1.
func (ps *ParameterSet) IndexOf(id string) int {
	i, ok := ps.index[id]
	if !ok {
		return -1
	}
	return i
}

// DomainSize returns the domain size of the parameter at position i.
func (ps *ParameterSet) DomainSize(i int) int { return len(ps.params[i].Values) }

// validate re-checks the set invariants. Constructed sets always pass; this
// guards generators handed a zero-value ParameterSet.
func (ps *ParameterSet) validate() error {
	if ps == nil || len(ps.params) < 2 {
		return &DomainError{Reason: "at least 2 parameters are required for interaction coverage"}
	}
	for _, p := range ps.params {
		if len(p.Values) < 2 {
			return &DomainError{ParameterID: p.ID, Reason: "domain must contain at least 2 values"}
		}
	}
	return nil
}

// Fingerprint returns a hex SHA-256 over the ordered parameter IDs and
// domains. Designs record it so a stored design can be matched against the
// exact inputs it was generated from; any reorder, rename of an ID, or
// domain edit changes the fingerprint.
func (ps *ParameterSet) Fingerprint() string {
	h := sha256.New()
	var n [8]byte
	writeStr := func(s string) {
		binary.BigEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	binary.BigEndian.PutUint64(n[:], uint64(len(ps.params)))
	h.Write(n[:])
	for _, p := range ps.params {
		writeStr(p.ID)
		binary.BigEndian.PutUint64(n[:], uint64(len(p.Values)))
		h.Write(n[:])
		for _, v := range p.Values {
			writeStr(v)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PairUniverseSize returns the number of distinct value pairs across all
// unordered parameter pairs: sum over i<j of |domain_i| * |domain_j|.
func PairUniverseSize(ps *ParameterSet) int {
	total := 0
	for i := 0; i < ps.Len(); i++ {
		for j := i + 1; j < ps.Len(); j++ {
			total += ps.DomainSize(i) * ps.DomainSize(j)
		}
	}
	return total
}
