package rules

import (
	"errors"
	"sync"
)

// Suite is a named, ordered collection of rules.
// Rules are appended during setup; once a run starts the suite is frozen.
type Suite struct {
	name   string
	rules  []Rule
	keys   map[string]struct{}
	frozen bool
	mu     sync.RWMutex
}

// NewSuite creates an empty suite.
func NewSuite(name string) *Suite {
	return &Suite{
		name: name,
		keys: make(map[string]struct{}),
	}
}

// Name returns the suite name.
func (s *Suite) Name() string {
	return s.name
}

// Add validates r and appends it. Adding a rule whose kind, column and
// parameters match an existing one fails with ErrDuplicateRule.
func (s *Suite) Add(r Rule) error {
	normalized, err := r.normalize()
	if err != nil {
		var buildErr *SuiteBuildError
		if errors.As(err, &buildErr) {
			buildErr.Suite = s.name
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return &SuiteBuildError{Suite: s.name, Kind: r.Kind, Err: ErrSuiteFrozen}
	}

	key := normalized.key()
	if _, exists := s.keys[key]; exists {
		return &SuiteBuildError{Suite: s.name, Kind: r.Kind, Detail: normalized.String(), Err: ErrDuplicateRule}
	}

	s.keys[key] = struct{}{}
	s.rules = append(s.rules, normalized)
	return nil
}

// AddAll adds rules in order and stops at the first error.
func (s *Suite) AddAll(rules ...Rule) error {
	for _, r := range rules {
		if err := s.Add(r); err != nil {
			return err
		}
	}
	return nil
}

// Rules returns a copy of the rules in insertion order.
func (s *Suite) Rules() []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.clone()
	}
	return out
}

// Len returns the number of rules.
func (s *Suite) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// Frozen reports whether the suite has been used in a run.
func (s *Suite) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// freeze stops further additions and returns the rules to evaluate.
func (s *Suite) freeze() []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frozen = true
	out := make([]Rule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.clone()
	}
	return out
}

// SuiteFromRules builds a suite in one call.
func SuiteFromRules(name string, rules ...Rule) (*Suite, error) {
	s := NewSuite(name)
	if err := s.AddAll(rules...); err != nil {
		return nil, err
	}
	return s, nil
}
