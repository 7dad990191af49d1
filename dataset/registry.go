package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Config selects and locates a table source.
type Config struct {
	// Type is the registered source type, e.g. "csv", "duckdb", "postgres", "sqlite"
	Type string `koanf:"type" json:"type,omitempty"`

	// Path is a CSV file or database file
	Path string `koanf:"path" json:"path,omitempty"`

	// DSN is the connection string for network databases
	DSN string `koanf:"dsn" json:"dsn,omitempty"`

	// Table is the table to validate; CSV sources default to "dataset"
	Table string `koanf:"table" json:"table,omitempty"`
}

// Opener opens a source from its configuration.
type Opener func(ctx context.Context, cfg Config, logger *slog.Logger) (*TableSource, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Opener)
)

// Register adds an opener to the registry.
// Called by source implementations in their init() functions.
func Register(name string, opener Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = opener
}

// Open creates a source for cfg.Type. The returned source owns its database
// handle; call Close when done.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*TableSource, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("source type not specified")
	}

	registryMu.RLock()
	opener, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownSourceError{Type: cfg.Type, Available: ListSources()}
	}
	return opener(ctx, cfg, logger)
}

// ListSources returns all registered source types (sorted).
func ListSources() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownSourceError is returned when an unknown source type is requested.
type UnknownSourceError struct {
	Type      string
	Available []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source type %q\nAvailable sources: %v\nHint: Check source.type in dq.yaml", e.Type, e.Available)
}
