package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jadesonbruno/dataquality/rules"
)

const employeeSuite = `version: "1"
name: expectation
rules:
  - kind: column_exists
    column: id
    severity: critical
    notes: Identifier each employee
  - kind: column_count_between
    params: {min: 1, max: 3}
  - kind: values_between
    column: id
    params:
      min: 1
      max: 10
  - kind: values_match_expression
    column: id
    severity: warning
    params:
      expression: value % 2 == 0 || value < 5
`

func TestParseSuite(t *testing.T) {
	suite, err := ParseSuite([]byte(employeeSuite))
	require.NoError(t, err)

	assert.Equal(t, "expectation", suite.Name())
	got := suite.Rules()
	require.Len(t, got, 4)

	assert.Equal(t, rules.KindColumnExists, got[0].Kind)
	assert.Equal(t, "Identifier each employee", got[0].Notes)
	assert.Equal(t, rules.SeverityCritical, got[1].Severity, "severity defaults to critical")

	maxV, ok := got[2].Params.Float(rules.ParamMax)
	require.True(t, ok)
	assert.Equal(t, 10.0, maxV)
	assert.Equal(t, rules.SeverityWarning, got[3].Severity)
}

func TestParseSuiteErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "unknown kind",
			yaml: "name: s\nrules:\n  - kind: expect_magic\n",
			want: rules.ErrUnknownKind,
		},
		{
			name: "duplicate rule",
			yaml: "name: s\nrules:\n  - kind: values_unique\n    column: id\n  - kind: values_unique\n    column: id\n",
			want: rules.ErrDuplicateRule,
		},
		{
			name: "bad name",
			yaml: "name: 'my suite'\nrules: []\n",
			want: rules.ErrInvalidSuiteID,
		},
		{
			name: "invalid bounds",
			yaml: "name: s\nrules:\n  - kind: row_count_between\n    params: {min: 5, max: 1}\n",
			want: rules.ErrInvalidParams,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSuite([]byte(tt.yaml))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := ParseSuite([]byte("name: s\nrulez: []\n"))
	assert.Error(t, err, "unknown fields are rejected")

	_, err = ParseSuite([]byte("version: \"2\"\nname: s\n"))
	assert.Error(t, err, "unsupported version is rejected")
}

func TestWriteAndLoadSuiteFile(t *testing.T) {
	dir := t.TempDir()

	suite := rules.NewSuite(DefaultSuiteName)
	require.NoError(t, BuildDefaultSuite(suite))

	path := filepath.Join(dir, "suites", "expectation.yaml")
	require.NoError(t, WriteSuiteFile(path, suite))

	loaded, err := LoadSuiteFile(path)
	require.NoError(t, err)
	assert.Equal(t, suite.Rules(), loaded.Rules())
}

func TestLoadSuiteDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("b.yaml", "name: orders\nrules:\n  - kind: column_exists\n    column: id\n")
	write("a.yml", "name: customers\nrules: []\n")
	write("notes.txt", "ignored")

	suites, err := LoadSuiteDir(dir)
	require.NoError(t, err)
	require.Len(t, suites, 2)
	assert.Equal(t, "customers", suites[0].Name())
	assert.Equal(t, "orders", suites[1].Name())

	write("c.yaml", "name: orders\nrules: []\n")
	_, err = LoadSuiteDir(dir)
	assert.ErrorIs(t, err, rules.ErrSuiteExists)

	c := New(nil)
	_, err = c.LoadDir(t.TempDir())
	assert.NoError(t, err, "empty directory loads nothing")
}

func TestValidateName(t *testing.T) {
	valid := []string{"expectation", "checkpoint", "demo_run-1", "_private"}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), name)
	}

	invalid := []string{"", "1abc", "has space", "../x", string(make([]byte, 101))}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateName(name), rules.ErrInvalidSuiteID, name)
	}
}
