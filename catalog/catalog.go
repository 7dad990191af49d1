// Package catalog keeps the named objects of a validation project: suites,
// validation definitions and checkpoints. Every accessor is get-or-create
// by name, so setup code can run repeatedly without duplicating anything.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/jadesonbruno/dataquality/dataset"
	"github.com/jadesonbruno/dataquality/rules"
)

var (
	ErrDefinitionNotFound = errors.New("validation definition not found")
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// Catalog is a registry of suites, validation definitions and checkpoints.
// Suites live in a rules.SuiteStore; definitions and checkpoints bind live
// sources and sinks and are kept in memory only.
type Catalog struct {
	store       rules.SuiteStore
	engine      *rules.Engine
	definitions map[string]rules.ValidationDefinition
	checkpoints map[string]*rules.Checkpoint
	logger      *slog.Logger
	mu          sync.RWMutex
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithEngine sets the engine checkpoints run with.
func WithEngine(e *rules.Engine) Option {
	return func(c *Catalog) {
		c.engine = e
	}
}

// WithLogger sets the catalog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a catalog over store. A nil store keeps suites in memory.
func New(store rules.SuiteStore, opts ...Option) *Catalog {
	if store == nil {
		store = rules.NewInMemorySuiteStore()
	}
	c := &Catalog{
		store:       store,
		definitions: make(map[string]rules.ValidationDefinition),
		checkpoints: make(map[string]*rules.Checkpoint),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = rules.NewEngine(rules.WithLogger(c.logger))
	}
	return c
}

// Engine returns the engine checkpoints of this catalog run with.
func (c *Catalog) Engine() *rules.Engine {
	return c.engine
}

// GetOrCreateSuite returns the suite called name, creating it with build
// when it does not exist yet. build is only called on creation; if it
// fails nothing is stored.
func (c *Catalog) GetOrCreateSuite(name string, build func(*rules.Suite) error) (*rules.Suite, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	suite, err := c.store.Get(name)
	if err == nil {
		return suite, nil
	}
	if !errors.Is(err, rules.ErrSuiteNotFound) {
		return nil, fmt.Errorf("failed to look up suite %s: %w", name, err)
	}

	suite = rules.NewSuite(name)
	if build != nil {
		if err := build(suite); err != nil {
			return nil, err
		}
	}
	if err := c.store.Add(suite); err != nil {
		return nil, fmt.Errorf("failed to store suite %s: %w", name, err)
	}

	c.logger.Info("suite created", "suite", name, "rules", suite.Len())
	return suite, nil
}

// AddSuite stores a fully built suite, replacing any suite with the same
// name.
func (c *Catalog) AddSuite(suite *rules.Suite) error {
	if err := ValidateName(suite.Name()); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.store.Add(suite)
	if errors.Is(err, rules.ErrSuiteExists) {
		err = c.store.Update(suite)
	}
	if err != nil {
		return fmt.Errorf("failed to store suite %s: %w", suite.Name(), err)
	}
	return nil
}

// Suite returns the named suite or rules.ErrSuiteNotFound.
func (c *Catalog) Suite(name string) (*rules.Suite, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.Get(name)
}

// Suites returns every stored suite ordered by name.
func (c *Catalog) Suites() ([]*rules.Suite, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.List()
}

// DeleteSuite removes a suite. Definitions that use it are removed too.
func (c *Catalog) DeleteSuite(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(name); err != nil {
		return err
	}
	for defName, def := range c.definitions {
		if def.Suite.Name() == name {
			delete(c.definitions, defName)
		}
	}
	return nil
}

// AddDefinition binds the named suite to src. If a definition with this
// name exists it is returned unchanged.
func (c *Catalog) AddDefinition(name, suiteName string, src dataset.Source) (rules.ValidationDefinition, error) {
	if err := ValidateName(name); err != nil {
		return rules.ValidationDefinition{}, err
	}
	if src == nil {
		return rules.ValidationDefinition{}, fmt.Errorf("validation definition %s: nil source", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if def, ok := c.definitions[name]; ok {
		return def, nil
	}

	suite, err := c.store.Get(suiteName)
	if err != nil {
		return rules.ValidationDefinition{}, fmt.Errorf("validation definition %s: %w", name, err)
	}

	def := rules.ValidationDefinition{Name: name, Suite: suite, Source: src}
	c.definitions[name] = def
	return def, nil
}

// Definition returns the named validation definition.
func (c *Catalog) Definition(name string) (rules.ValidationDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.definitions[name]
	if !ok {
		return rules.ValidationDefinition{}, fmt.Errorf("%w: %s", ErrDefinitionNotFound, name)
	}
	return def, nil
}

// AddCheckpoint creates a checkpoint over the named definitions. If a
// checkpoint with this name exists it is returned unchanged.
func (c *Catalog) AddCheckpoint(name string, definitions []string, sinks ...rules.Sink) (*rules.Checkpoint, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cp, ok := c.checkpoints[name]; ok {
		return cp, nil
	}
	if len(definitions) == 0 {
		return nil, fmt.Errorf("checkpoint %s: at least one validation definition is required", name)
	}

	cp := &rules.Checkpoint{
		Name:   name,
		Sinks:  slices.Clone(sinks),
		Engine: c.engine,
	}
	for _, defName := range definitions {
		def, ok := c.definitions[defName]
		if !ok {
			return nil, fmt.Errorf("checkpoint %s: %w: %s", name, ErrDefinitionNotFound, defName)
		}
		cp.Definitions = append(cp.Definitions, def)
	}

	c.checkpoints[name] = cp
	return cp, nil
}

// Checkpoint returns the named checkpoint.
func (c *Catalog) Checkpoint(name string) (*rules.Checkpoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cp, ok := c.checkpoints[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, name)
	}
	return cp, nil
}

// LoadDir stores every suite file found in dir and returns how many were
// loaded.
func (c *Catalog) LoadDir(dir string) (int, error) {
	suites, err := LoadSuiteDir(dir)
	if err != nil {
		return 0, err
	}
	for _, s := range suites {
		if err := c.AddSuite(s); err != nil {
			return 0, err
		}
	}
	c.logger.Info("suites loaded", "dir", dir, "count", len(suites))
	return len(suites), nil
}
