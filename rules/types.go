package rules

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// Kind identifies one of the supported checks. The set is closed: a Rule with
// a Kind outside it is rejected when it is built, never at run time.
type Kind string

const (
	KindColumnExists            Kind = "column_exists"
	KindRowCountBetween         Kind = "row_count_between"
	KindColumnCountBetween      Kind = "column_count_between"
	KindValuesNotNull           Kind = "values_not_null"
	KindValuesBetween           Kind = "values_between"
	KindValuesUnique            Kind = "values_unique"
	KindUniqueValueCountBetween Kind = "unique_value_count_between"
	KindValuesMatchExpression   Kind = "values_match_expression"
)

// Parameter names understood by the evaluators.
const (
	ParamMin        = "min"
	ParamMax        = "max"
	ParamExpression = "expression"
)

// kindSpec describes what a kind needs to be evaluated.
type kindSpec struct {
	column     bool // targets a single column
	bounds     bool // takes min and/or max
	expression bool // takes a CEL expression
}

var kindSpecs = map[Kind]kindSpec{
	KindColumnExists:            {column: true},
	KindRowCountBetween:         {bounds: true},
	KindColumnCountBetween:      {bounds: true},
	KindValuesNotNull:           {column: true},
	KindValuesBetween:           {column: true, bounds: true},
	KindValuesUnique:            {column: true},
	KindUniqueValueCountBetween: {column: true, bounds: true},
	KindValuesMatchExpression:   {column: true, expression: true},
}

// Kinds returns every supported kind in a stable order.
func Kinds() []Kind {
	kinds := slices.Collect(maps.Keys(kindSpecs))
	slices.Sort(kinds)
	return kinds
}

// Valid reports whether k belongs to the supported set.
func (k Kind) Valid() bool {
	_, ok := kindSpecs[k]
	return ok
}

// TableLevel reports whether k checks the table as a whole.
func (k Kind) TableLevel() bool {
	return !kindSpecs[k].column
}

// Severity ranks how much a failing rule matters.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// rank orders severities; unknown values rank below info.
func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s.rank() > 0
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// Params holds the named bounds and values of a rule.
// Numeric values are normalized to float64 when the rule is built.
type Params map[string]any

// Float returns the numeric parameter stored under key.
func (p Params) Float(key string) (float64, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false
	}
	return toFloat(v)
}

// String returns the string parameter stored under key.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// canonical renders params in sorted key order so that two equal parameter
// sets always produce the same string.
func (p Params) canonical() string {
	keys := slices.Sorted(maps.Keys(p))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(parts, ",")
}

// Rule is a single declarative data-quality check.
type Rule struct {
	Kind     Kind     `json:"kind" yaml:"kind"`
	Column   string   `json:"column,omitempty" yaml:"column,omitempty"`
	Params   Params   `json:"params,omitempty" yaml:"params,omitempty"`
	Severity Severity `json:"severity" yaml:"severity"`
	Notes    string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// NewRule validates and normalizes a rule. An empty severity defaults to
// critical.
func NewRule(kind Kind, column string, params Params, severity Severity) (Rule, error) {
	r := Rule{Kind: kind, Column: column, Params: params, Severity: severity}
	return r.normalize()
}

// normalize returns a validated copy of r that shares no state with it.
func (r Rule) normalize() (Rule, error) {
	spec, ok := kindSpecs[r.Kind]
	if !ok {
		return Rule{}, &SuiteBuildError{Kind: r.Kind, Err: ErrUnknownKind}
	}

	if r.Severity == "" {
		r.Severity = SeverityCritical
	}
	if !r.Severity.Valid() {
		return Rule{}, invalidParams(r.Kind, "unknown severity %q", r.Severity)
	}

	if spec.column && r.Column == "" {
		return Rule{}, invalidParams(r.Kind, "column is required")
	}
	if !spec.column && r.Column != "" {
		return Rule{}, invalidParams(r.Kind, "table-level rule does not take a column")
	}

	params := make(Params, len(r.Params))
	for k, v := range r.Params {
		switch k {
		case ParamMin, ParamMax:
			if !spec.bounds {
				return Rule{}, invalidParams(r.Kind, "unexpected parameter %q", k)
			}
			if v == nil {
				continue
			}
			f, ok := toFloat(v)
			if !ok {
				return Rule{}, invalidParams(r.Kind, "parameter %q must be numeric, got %v", k, v)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return Rule{}, invalidParams(r.Kind, "parameter %q must be finite, got %v (omit it for an open bound)", k, f)
			}
			params[k] = f
		case ParamExpression:
			if !spec.expression {
				return Rule{}, invalidParams(r.Kind, "unexpected parameter %q", k)
			}
			expr, ok := v.(string)
			if !ok || strings.TrimSpace(expr) == "" {
				return Rule{}, invalidParams(r.Kind, "expression must be a non-empty string")
			}
			if _, err := compileExpression(expr); err != nil {
				return Rule{}, invalidParams(r.Kind, "%v", err)
			}
			params[k] = expr
		default:
			return Rule{}, invalidParams(r.Kind, "unexpected parameter %q", k)
		}
	}

	if spec.bounds {
		minV, hasMin := params.Float(ParamMin)
		maxV, hasMax := params.Float(ParamMax)
		if !hasMin && !hasMax {
			return Rule{}, invalidParams(r.Kind, "at least one of min or max is required")
		}
		if hasMin && hasMax && minV > maxV {
			return Rule{}, invalidParams(r.Kind, "min %v is greater than max %v", minV, maxV)
		}
	}
	if spec.expression {
		if _, ok := params[ParamExpression]; !ok {
			return Rule{}, invalidParams(r.Kind, "expression is required")
		}
	}

	r.Params = params
	return r, nil
}

// key identifies the logical check: two rules with the same key are the
// same check regardless of severity or notes.
func (r Rule) key() string {
	return string(r.Kind) + "|" + r.Column + "|" + r.Params.canonical()
}

func (r Rule) clone() Rule {
	r.Params = maps.Clone(r.Params)
	return r
}

// Target returns the column the rule checks, or "table".
func (r Rule) Target() string {
	if r.Column == "" {
		return "table"
	}
	return r.Column
}

func (r Rule) String() string {
	if p := r.Params.canonical(); p != "" {
		return fmt.Sprintf("%s(%s; %s)", r.Kind, r.Target(), p)
	}
	return fmt.Sprintf("%s(%s)", r.Kind, r.Target())
}

// WithNotes returns a copy of r carrying notes.
func (r Rule) WithNotes(notes string) Rule {
	r.Notes = notes
	return r
}

// WithSeverity returns a copy of r with a different severity.
func (r Rule) WithSeverity(s Severity) Rule {
	r.Severity = s
	return r
}

// The constructors below build critical rules; use WithSeverity to relax them.
// They do not validate: Suite.Add does.

func ColumnExists(column string) Rule {
	return Rule{Kind: KindColumnExists, Column: column, Severity: SeverityCritical}
}

func RowCountBetween(minRows, maxRows float64) Rule {
	return Rule{Kind: KindRowCountBetween, Params: Params{ParamMin: minRows, ParamMax: maxRows}, Severity: SeverityCritical}
}

func ColumnCountBetween(minCols, maxCols float64) Rule {
	return Rule{Kind: KindColumnCountBetween, Params: Params{ParamMin: minCols, ParamMax: maxCols}, Severity: SeverityCritical}
}

func ValuesNotNull(column string) Rule {
	return Rule{Kind: KindValuesNotNull, Column: column, Severity: SeverityCritical}
}

func ValuesBetween(column string, minValue, maxValue float64) Rule {
	return Rule{Kind: KindValuesBetween, Column: column, Params: Params{ParamMin: minValue, ParamMax: maxValue}, Severity: SeverityCritical}
}

func ValuesUnique(column string) Rule {
	return Rule{Kind: KindValuesUnique, Column: column, Severity: SeverityCritical}
}

func UniqueValueCountBetween(column string, minCount, maxCount float64) Rule {
	return Rule{Kind: KindUniqueValueCountBetween, Column: column, Params: Params{ParamMin: minCount, ParamMax: maxCount}, Severity: SeverityCritical}
}

// ValuesMatchExpression checks every non-null value against a CEL
// expression in which the value is bound to `value`.
func ValuesMatchExpression(column, expression string) Rule {
	return Rule{Kind: KindValuesMatchExpression, Column: column, Params: Params{ParamExpression: expression}, Severity: SeverityCritical}
}
