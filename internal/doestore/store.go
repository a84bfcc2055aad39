package doestore

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/casewise/doe/internal/doe"
	"github.com/google/uuid"
)

// Record is one stored design with its cache identity.
type Record struct {
	DesignID      string        `json:"design_id"`
	CacheKey      string        `json:"cache_key"`
	Technique     doe.Technique `json:"technique"`
	ParameterHash string        `json:"parameter_hash"`
	ScenarioCount int           `json:"scenario_count"`
	Fingerprint   string        `json:"fingerprint"`
	CreatedAt     int64         `json:"created_at"`
}

// Store provides persistence for generated designs.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CacheKey digests everything a cached design depends on: the parameter set
// fingerprint, the technique, and a digest of the generation options. Any
// change to any of them produces a different key, which is how cache
// invalidation works here.
func CacheKey(parameterHash string, technique doe.Technique, optionsDigest string) string {
	sum := sha256.Sum256([]byte(parameterHash + "|" + string(technique) + "|" + optionsDigest))
	return hex.EncodeToString(sum[:])
}

// FracFactDigest derives the options digest for a fractional factorial run
// from its resolved configuration as recorded in the design metadata.
func FracFactDigest(meta doe.CoverageMeta) string {
	parts, _ := json.Marshal(struct {
		Requested  doe.Resolution       `json:"requested"`
		Generators []string             `json:"generators"`
		Coding     []doe.FactorPolarity `json:"coding"`
	}{meta.RequestedResolution, meta.Generators, meta.FactorCoding})
	sum := sha256.Sum256(parts)
	return hex.EncodeToString(sum[:])
}

// Put stores a design under the given cache key, replacing any existing
// record with the same key (a refresh after an algorithm-version change,
// for example). If the design regenerates deterministically the replacement
// is byte-identical anyway.
func (s *Store) Put(design *doe.Design, cacheKey string) (*Record, error) {
	body, err := design.CanonicalJSON()
	if err != nil {
		return nil, err
	}
	fingerprint, err := design.Fingerprint()
	if err != nil {
		return nil, err
	}

	rec := &Record{
		DesignID:      uuid.New().String(),
		CacheKey:      cacheKey,
		Technique:     design.Technique,
		ParameterHash: design.ParameterSetHash,
		ScenarioCount: len(design.Scenarios),
		Fingerprint:   fingerprint,
		CreatedAt:     time.Now().UnixNano(),
	}

	err = retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO designs (
				design_id, cache_key, technique, parameter_hash,
				scenario_count, fingerprint, design_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(cache_key) DO UPDATE SET
				design_id = excluded.design_id,
				technique = excluded.technique,
				parameter_hash = excluded.parameter_hash,
				scenario_count = excluded.scenario_count,
				fingerprint = excluded.fingerprint,
				design_json = excluded.design_json,
				created_at = excluded.created_at`,
			rec.DesignID, rec.CacheKey, string(rec.Technique), rec.ParameterHash,
			rec.ScenarioCount, rec.Fingerprint, string(body), rec.CreatedAt,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("put design: %w", err)
	}
	return rec, nil
}

// Lookup returns the cached design for a key, or (nil, nil, nil) on a miss.
func (s *Store) Lookup(cacheKey string) (*doe.Design, *Record, error) {
	row := s.db.QueryRow(`
		SELECT design_id, cache_key, technique, parameter_hash,
		       scenario_count, fingerprint, design_json, created_at
		FROM designs
		WHERE cache_key = ?`, cacheKey)
	return scanDesign(row)
}

// Get returns a stored design by its ID.
func (s *Store) Get(designID string) (*doe.Design, *Record, error) {
	row := s.db.QueryRow(`
		SELECT design_id, cache_key, technique, parameter_hash,
		       scenario_count, fingerprint, design_json, created_at
		FROM designs
		WHERE design_id = ?`, designID)
	d, rec, err := scanDesign(row)
	if err == nil && rec == nil {
		return nil, nil, fmt.Errorf("design %s not found", designID)
	}
	return d, rec, err
}

func scanDesign(row *sql.Row) (*doe.Design, *Record, error) {
	var rec Record
	var technique, body string
	err := row.Scan(
		&rec.DesignID, &rec.CacheKey, &technique, &rec.ParameterHash,
		&rec.ScenarioCount, &rec.Fingerprint, &body, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("scan design: %w", err)
	}
	rec.Technique = doe.Technique(technique)

	var d doe.Design
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return nil, nil, fmt.Errorf("decode stored design %s: %w", rec.DesignID, err)
	}
	return &d, &rec, nil
}

// List returns the records for a parameter set fingerprint, newest first.
// An empty fingerprint lists everything.
func (s *Store) List(parameterHash string) ([]*Record, error) {
	query := `
		SELECT design_id, cache_key, technique, parameter_hash,
		       scenario_count, fingerprint, created_at
		FROM designs`
	args := []interface{}{}
	if parameterHash != "" {
		query += ` WHERE parameter_hash = ?`
		args = append(args, parameterHash)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	defer rows.Close()

	var recs []*Record
	for rows.Next() {
		var rec Record
		var technique string
		if err := rows.Scan(
			&rec.DesignID, &rec.CacheKey, &technique, &rec.ParameterHash,
			&rec.ScenarioCount, &rec.Fingerprint, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan design record: %w", err)
		}
		rec.Technique = doe.Technique(technique)
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// Delete removes a stored design by ID.
func (s *Store) Delete(designID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM designs WHERE design_id = ?`, designID)
		if err != nil {
			return fmt.Errorf("delete design: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("design %s not found", designID)
		}
		return nil
	})
}
