package rules

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// SuiteStore manages suite persistence and retrieval.
type SuiteStore interface {
	// Add stores a new suite; the name must be unused.
	Add(suite *Suite) error

	// Get returns the suite stored under name, or ErrSuiteNotFound.
	Get(name string) (*Suite, error)

	// List returns every suite ordered by name.
	List() ([]*Suite, error)

	// Update replaces an existing suite.
	Update(suite *Suite) error

	// Delete removes a suite.
	Delete(name string) error
}

// InMemorySuiteStore implements SuiteStore with a map guarded by a RWMutex.
type InMemorySuiteStore struct {
	suites map[string]*Suite
	mu     sync.RWMutex
}

// NewInMemorySuiteStore creates an empty in-memory store.
func NewInMemorySuiteStore() *InMemorySuiteStore {
	return &InMemorySuiteStore{
		suites: make(map[string]*Suite),
	}
}

func (s *InMemorySuiteStore) Add(suite *Suite) error {
	if err := checkSuite(suite); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.suites[suite.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrSuiteExists, suite.Name())
	}
	s.suites[suite.Name()] = suite
	return nil
}

func (s *InMemorySuiteStore) Get(name string) (*Suite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suite, exists := s.suites[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSuiteNotFound, name)
	}
	return suite, nil
}

func (s *InMemorySuiteStore) List() ([]*Suite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Suite, 0, len(s.suites))
	for _, suite := range s.suites {
		out = append(out, suite)
	}
	slices.SortFunc(out, func(a, b *Suite) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return out, nil
}

func (s *InMemorySuiteStore) Update(suite *Suite) error {
	if err := checkSuite(suite); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.suites[suite.Name()]; !exists {
		return fmt.Errorf("%w: %s", ErrSuiteNotFound, suite.Name())
	}
	s.suites[suite.Name()] = suite
	return nil
}

func (s *InMemorySuiteStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.suites[name]; !exists {
		return fmt.Errorf("%w: %s", ErrSuiteNotFound, name)
	}
	delete(s.suites, name)
	return nil
}

func checkSuite(suite *Suite) error {
	if suite == nil {
		return fmt.Errorf("%w: nil suite", ErrInvalidSuiteID)
	}
	if strings.TrimSpace(suite.Name()) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSuiteID)
	}
	return nil
}
