package dataset

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSources(t *testing.T) {
	sources := ListSources()
	for _, want := range []string{"csv", "duckdb", "postgres", "sqlite"} {
		assert.Contains(t, sources, want)
	}
}

func TestOpenUnknownSource(t *testing.T) {
	_, err := Open(context.Background(), Config{Type: "excel"}, slog.Default())
	var unknown *UnknownSourceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "excel", unknown.Type)
	assert.Contains(t, err.Error(), "source.type")
}

func TestOpenValidatesConfig(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no type", Config{}},
		{"csv without path", Config{Type: "csv"}},
		{"duckdb without table", Config{Type: "duckdb"}},
		{"sqlite without path", Config{Type: "sqlite", Table: "t"}},
		{"postgres without dsn", Config{Type: "postgres", Table: "t"}},
		{"postgres without table", Config{Type: "postgres", DSN: "postgres://localhost/x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(ctx, tt.cfg, slog.Default())
			assert.Error(t, err)
		})
	}
}

func TestRegisterCustomSource(t *testing.T) {
	called := false
	Register("fixture", func(ctx context.Context, cfg Config, _ *slog.Logger) (*TableSource, error) {
		called = true
		db, err := OpenDuckDB(ctx, "")
		if err != nil {
			return nil, err
		}
		return NewTableSource(db, "fixture", cfg.Table, withOwnedDB()), nil
	})

	src, err := Open(context.Background(), Config{Type: "fixture", Table: "t"}, nil)
	require.NoError(t, err)
	defer src.Close()
	assert.True(t, called)
	assert.Equal(t, "fixture:t", src.Name())
}
