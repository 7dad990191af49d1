package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Empty(t, cfg.ConfigFile)
	assert.Equal(t, DefaultSuitesDir, cfg.SuitesDir)
	assert.Equal(t, DefaultRunNamePrefix, cfg.RunNamePrefix)
	assert.True(t, cfg.Docs.Enabled)
	assert.Equal(t, DefaultDocsDir, cfg.Docs.Dir)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeFile(t, filepath.Join(dir, "project", ConfigFileName), `
source:
  type: csv
  path: data/dataset.csv
suites_dir: checks
suite: expectation
run_name_prefix: demo_run
s3:
  bucket: dq-results
  region: eu-west-1
metrics:
  enabled: true
log:
  level: warn
`)

	t.Setenv("DQ_S3_PREFIX", "nightly")
	t.Setenv("DQ_LOG_LEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("suite", "", "")
	flags.String("source-table", "", "")
	flags.String("log-level", "", "")
	flags.String("addr", "", "")
	flags.String("run-name-prefix", "", "")
	require.NoError(t, flags.Parse([]string{"--source-table=employees", "--addr=:9090", "--log-level=trace"}))

	cfg, err := Load(filepath.Join("project", ConfigFileName), flags)
	require.NoError(t, err)

	// file
	assert.Equal(t, "csv", cfg.Source.Type)
	assert.Equal(t, filepath.Join("project", "data", "dataset.csv"), cfg.Source.Path)
	assert.Equal(t, filepath.Join("project", "checks"), cfg.SuitesDir)
	assert.Equal(t, "expectation", cfg.Suite, "unset flags must not override the file")
	assert.Equal(t, "demo_run", cfg.RunNamePrefix)
	assert.Equal(t, "dq-results", cfg.S3.Bucket)
	assert.True(t, cfg.Metrics.Enabled)
	// env
	assert.Equal(t, "nightly", cfg.S3.Prefix)
	// flags beat env and file
	assert.Equal(t, "employees", cfg.Source.Table)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "trace", cfg.Log.Level)
}

func TestLoadCommandLinePathsUseWorkingDir(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeFile(t, filepath.Join(dir, "conf", ConfigFileName), `
source:
  type: csv
  path: data/dataset.csv
suites_dir: checks
`)
	t.Setenv("DQ_DOCS_DIR", "site")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("source-path", "", "")
	flags.String("suites-dir", "", "")
	require.NoError(t, flags.Parse([]string{"--source-path=data/in-cwd.csv", "--suites-dir=local"}))

	cfg, err := Load(filepath.Join("conf", ConfigFileName), flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "in-cwd.csv"), cfg.Source.Path)
	assert.Equal(t, "local", cfg.SuitesDir)
	assert.Equal(t, "site", cfg.Docs.Dir)
}

func TestLoadNamedSources(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeFile(t, filepath.Join(dir, "conf", ConfigFileName), `
sources:
  employees:
    type: csv
    path: data/employees.csv
  warehouse:
    type: postgres
    dsn: postgres://dq@localhost/dq
    table: public.orders
`)

	cfg, err := Load(filepath.Join("conf", ConfigFileName), nil)
	require.NoError(t, err)

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, filepath.Join("conf", "data", "employees.csv"), cfg.Sources["employees"].Path)
	assert.Equal(t, "public.orders", cfg.Sources["warehouse"].Table)
	assert.Empty(t, cfg.Sources["warehouse"].Path)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	writeFile(t, filepath.Join(dir, ConfigFileName), "suite: expectation\n")
	writeFile(t, filepath.Join(dir, ".env"), "DQ_POSTGRES_DSN=postgres://dq@localhost/dq\n")
	t.Cleanup(func() { _ = os.Unsetenv("DQ_POSTGRES_DSN") })

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ConfigFileName, cfg.ConfigFile)
	assert.Equal(t, "postgres://dq@localhost/dq", cfg.Postgres.DSN)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load("nope.yaml", nil)
		assert.ErrorContains(t, err, "config file not found")
	})

	t.Run("bucket without region", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "s3.yaml"), "s3:\n  bucket: dq-results\n")
		_, err := Load("s3.yaml", nil)
		assert.ErrorContains(t, err, "s3.region")
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("DQ_LOG_LEVEL", "loud")
		_, err := Load("", nil)
		assert.ErrorContains(t, err, "unknown log level")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "bad.yaml"), "source: [unclosed\n")
		_, err := Load("bad.yaml", nil)
		assert.ErrorContains(t, err, "error reading config file")
	})
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"DQ_SOURCE_PATH":      "source.path",
		"DQ_SUITES_DIR":       "suites_dir",
		"DQ_RUN_NAME_PREFIX":  "run_name_prefix",
		"DQ_S3_ACCESS_KEY_ID": "s3.access_key_id",
		"DQ_DOCS_ENABLED":     "docs.enabled",
		"DQ_SERVER_ADDR":      "server.addr",
		"DQ_LOG_SAMPLE_RATE":  "log.sample_rate",
		"DQ_METRICS_ENABLED":  "metrics.enabled",
		"DQ_POSTGRES_DSN":     "postgres.dsn",
		"DQ_SUITE":            "suite",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}
