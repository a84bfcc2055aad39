package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/casewise/doe/internal/doe"
)

// paramsFile is the on-disk shape of a parameter set definition:
//
//	{
//	  "parameters": [
//	    {"id": "browser", "name": "Browser", "values": ["Chrome", "Firefox"]},
//	    {"id": "os", "name": "OS", "values": ["Windows", "Mac"]}
//	  ]
//	}
type paramsFile struct {
	Parameters []doe.Parameter `json:"parameters"`
}

// LoadParameterSet reads and validates a parameter set definition from a
// JSON file. Validation failures surface the engine's
// ErrInvalidParameterDomain taxonomy unchanged.
func LoadParameterSet(path string) (*doe.ParameterSet, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("parameter file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file: %w", err)
	}

	var pf paramsFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse parameter JSON: %w", err)
	}

	ps, err := doe.NewParameterSet(pf.Parameters)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	return ps, nil
}
