package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jadesonbruno/dataquality/rules"
)

// SuiteFileVersion is the only suite file format version understood.
const SuiteFileVersion = "1"

// SuiteFile is the YAML form of a suite:
//
//	version: "1"
//	name: expectation
//	rules:
//	  - kind: column_exists
//	    column: id
//	    notes: Identifier each employee
//	  - kind: row_count_between
//	    params: {min: 1, max: 100}
type SuiteFile struct {
	Version string       `yaml:"version"`
	Name    string       `yaml:"name"`
	Rules   []rules.Rule `yaml:"rules"`
}

// ParseSuite decodes and builds a suite from YAML. Unknown fields are
// rejected.
func ParseSuite(data []byte) (*rules.Suite, error) {
	var f SuiteFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode suite: %w", err)
	}

	if f.Version != "" && f.Version != SuiteFileVersion {
		return nil, fmt.Errorf("unsupported suite file version %q", f.Version)
	}
	if err := ValidateSuiteFile(&f); err != nil {
		return nil, err
	}
	return rules.SuiteFromRules(f.Name, f.Rules...)
}

// LoadSuiteFile reads a suite from a YAML file.
func LoadSuiteFile(path string) (*rules.Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	suite, err := ParseSuite(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return suite, nil
}

// LoadSuiteDir loads every *.yaml and *.yml file in dir, sorted by file
// name. Two files declaring the same suite name are an error.
func LoadSuiteDir(dir string) ([]*rules.Suite, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read suites directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := strings.ToLower(filepath.Ext(e.Name())); ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)

	seen := make(map[string]string, len(files))
	suites := make([]*rules.Suite, 0, len(files))
	for _, path := range files {
		suite, err := LoadSuiteFile(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[suite.Name()]; dup {
			return nil, fmt.Errorf("%w: %s is declared in %s and %s", rules.ErrSuiteExists, suite.Name(), prev, path)
		}
		seen[suite.Name()] = path
		suites = append(suites, suite)
	}
	return suites, nil
}

// MarshalSuite encodes a suite in the suite file format.
func MarshalSuite(suite *rules.Suite) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(SuiteFile{Version: SuiteFileVersion, Name: suite.Name(), Rules: suite.Rules()}); err != nil {
		return nil, fmt.Errorf("failed to encode suite: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode suite: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteSuiteFile writes suite to path in the suite file format.
func WriteSuiteFile(path string, suite *rules.Suite) error {
	data, err := MarshalSuite(suite)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create suite directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write suite file: %w", err)
	}
	return nil
}
