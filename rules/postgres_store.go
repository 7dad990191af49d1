package rules

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresSuiteStore implements SuiteStore backed by PostgreSQL. Rules are
// stored as a JSONB array on the suite row; see migrations/ for the schema.
type PostgresSuiteStore struct {
	db *sql.DB
}

// NewPostgresSuiteStore creates a PostgreSQL-backed SuiteStore.
func NewPostgresSuiteStore(db *sql.DB) *PostgresSuiteStore {
	return &PostgresSuiteStore{db: db}
}

// Add inserts a new suite. The insert is a single statement, so concurrent
// adds of one name yield exactly one success and ErrSuiteExists otherwise.
func (s *PostgresSuiteStore) Add(suite *Suite) error {
	if err := checkSuite(suite); err != nil {
		return err
	}

	payload, err := json.Marshal(suite.Rules())
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO suites (name, rules, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (name) DO NOTHING
	`, suite.Name(), payload)
	if err != nil {
		return fmt.Errorf("failed to insert suite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check inserted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSuiteExists, suite.Name())
	}
	return nil
}

// Get loads a suite and rebuilds it rule by rule, so a stored rule that no
// longer validates is reported instead of silently run.
func (s *PostgresSuiteStore) Get(name string) (*Suite, error) {
	var payload []byte
	err := s.db.QueryRow(`
		SELECT rules FROM suites WHERE name = $1
	`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSuiteNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suite: %w", err)
	}
	return decodeSuite(name, payload)
}

// List returns every suite ordered by name.
func (s *PostgresSuiteStore) List() ([]*Suite, error) {
	rows, err := s.db.Query(`
		SELECT name, rules FROM suites ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list suites: %w", err)
	}
	defer rows.Close()

	var suites []*Suite
	for rows.Next() {
		var (
			name    string
			payload []byte
		)
		if err := rows.Scan(&name, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan suite: %w", err)
		}
		suite, err := decodeSuite(name, payload)
		if err != nil {
			return nil, err
		}
		suites = append(suites, suite)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suites: %w", err)
	}
	return suites, nil
}

// Update replaces the rules of an existing suite.
func (s *PostgresSuiteStore) Update(suite *Suite) error {
	if err := checkSuite(suite); err != nil {
		return err
	}

	payload, err := json.Marshal(suite.Rules())
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}

	result, err := s.db.Exec(`
		UPDATE suites
		SET rules = $1, updated_at = NOW()
		WHERE name = $2
	`, payload, suite.Name())
	if err != nil {
		return fmt.Errorf("failed to update suite: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSuiteNotFound, suite.Name())
	}
	return nil
}

// Delete removes a suite.
func (s *PostgresSuiteStore) Delete(name string) error {
	result, err := s.db.Exec(`
		DELETE FROM suites WHERE name = $1
	`, name)
	if err != nil {
		return fmt.Errorf("failed to delete suite: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSuiteNotFound, name)
	}
	return nil
}

func decodeSuite(name string, payload []byte) (*Suite, error) {
	var stored []Rule
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("failed to decode rules of suite %s: %w", name, err)
	}
	return SuiteFromRules(name, stored...)
}
