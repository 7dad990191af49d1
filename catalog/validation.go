package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jadesonbruno/dataquality/rules"
)

const (
	maxNameLength    = 100
	maxRulesPerSuite = 500
)

var validName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// ValidateName checks a suite, definition or checkpoint name. Names end up
// in file paths and URLs, so they are restricted to identifier characters
// plus '-'.
func ValidateName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("%w: name cannot be empty", rules.ErrInvalidSuiteID)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name length %d exceeds maximum of %d characters", rules.ErrInvalidSuiteID, len(name), maxNameLength)
	}
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q must match %s", rules.ErrInvalidSuiteID, name, validName)
	}
	return nil
}

// ValidateSuiteFile checks a decoded suite file before any rule is built,
// so that problems are reported with their position in the file.
func ValidateSuiteFile(f *SuiteFile) error {
	if err := ValidateName(f.Name); err != nil {
		return err
	}
	if len(f.Rules) > maxRulesPerSuite {
		return fmt.Errorf("suite %q contains %d rules, maximum allowed is %d", f.Name, len(f.Rules), maxRulesPerSuite)
	}

	for i, r := range f.Rules {
		if !r.Kind.Valid() {
			return fmt.Errorf("rule %d of suite %q: %w: %q (must be one of: %s)", i+1, f.Name, rules.ErrUnknownKind, r.Kind, kindList())
		}
		if r.Severity != "" && !r.Severity.Valid() {
			return fmt.Errorf("rule %d of suite %q: unknown severity %q (must be one of: info, warning, critical)", i+1, f.Name, r.Severity)
		}
		if strings.TrimSpace(r.Column) != r.Column {
			return fmt.Errorf("rule %d of suite %q: column %q has leading or trailing whitespace", i+1, f.Name, r.Column)
		}
	}
	return nil
}

func kindList() string {
	kinds := rules.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
