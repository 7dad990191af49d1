// Package report provides sinks that publish validation results: a console
// table, a static data docs site, S3 objects, Prometheus metrics and a
// PostgreSQL run history.
package report

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jadesonbruno/dataquality/rules"
)

// Record is the persisted form of a run: the result plus its statistics.
type Record struct {
	*rules.RunResult
	Statistics rules.Statistics `json:"statistics"`
}

// NewRecord wraps a result for persistence.
func NewRecord(r *rules.RunResult) Record {
	return Record{RunResult: r, Statistics: r.Statistics()}
}

// MarshalRecord encodes r as indented JSON.
func MarshalRecord(r *rules.RunResult) ([]byte, error) {
	return json.MarshalIndent(NewRecord(r), "", "  ")
}

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// pathSegment makes a run or suite name usable as one path segment.
func pathSegment(name string) string {
	s := unsafePathChars.ReplaceAllString(name, "_")
	s = strings.Trim(s, ".")
	if s == "" {
		return "_"
	}
	return s
}
