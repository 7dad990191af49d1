package rules

import (
	"errors"
	"math"
	"testing"
)

// TestSuiteAddPreservesOrder verifies rules are kept in insertion order
func TestSuiteAddPreservesOrder(t *testing.T) {
	suite := NewSuite("expectation")
	rules := []Rule{
		ColumnExists("id").WithNotes("Identifier each employee"),
		ColumnCountBetween(1, 3),
		RowCountBetween(1, 100),
		ValuesNotNull("id"),
	}
	for _, r := range rules {
		if err := suite.Add(r); err != nil {
			t.Fatalf("Add(%s) failed: %v", r, err)
		}
	}

	got := suite.Rules()
	if len(got) != len(rules) {
		t.Fatalf("Expected %d rules, got %d", len(rules), len(got))
	}
	for i := range rules {
		if got[i].Kind != rules[i].Kind {
			t.Errorf("Rule %d: expected %s, got %s", i, rules[i].Kind, got[i].Kind)
		}
	}
	if got[0].Notes != "Identifier each employee" {
		t.Errorf("Notes were not kept: %q", got[0].Notes)
	}
}

// TestSuiteAddDuplicate verifies the same logical check cannot be added twice
func TestSuiteAddDuplicate(t *testing.T) {
	testCases := []struct {
		name   string
		first  Rule
		second Rule
	}{
		{"identical", ValuesUnique("id"), ValuesUnique("id")},
		{"different severity", ValuesUnique("id"), ValuesUnique("id").WithSeverity(SeverityWarning)},
		{"int and float params", RowCountBetween(1, 100), Rule{Kind: KindRowCountBetween, Params: Params{"min": 1, "max": int64(100)}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			suite := NewSuite("dups")
			if err := suite.Add(tc.first); err != nil {
				t.Fatalf("Add() failed: %v", err)
			}

			err := suite.Add(tc.second)
			if !errors.Is(err, ErrDuplicateRule) {
				t.Fatalf("Expected ErrDuplicateRule, got %v", err)
			}
			var buildErr *SuiteBuildError
			if !errors.As(err, &buildErr) || buildErr.Suite != "dups" {
				t.Errorf("Expected SuiteBuildError naming the suite, got %v", err)
			}
			if suite.Len() != 1 {
				t.Errorf("Expected 1 rule, got %d", suite.Len())
			}
		})
	}

	// Same kind on another column is a different check.
	suite := NewSuite("cols")
	if err := suite.AddAll(ValuesUnique("id"), ValuesUnique("email")); err != nil {
		t.Errorf("AddAll() failed: %v", err)
	}
}

// TestSuiteAddInvalid verifies malformed rules fail when added
func TestSuiteAddInvalid(t *testing.T) {
	testCases := []struct {
		name string
		rule Rule
		want error
	}{
		{"unknown kind", Rule{Kind: "expect_column_to_sparkle", Column: "id"}, ErrUnknownKind},
		{"missing column", Rule{Kind: KindValuesNotNull}, ErrInvalidParams},
		{"column on table rule", Rule{Kind: KindRowCountBetween, Column: "id", Params: Params{"min": 1}}, ErrInvalidParams},
		{"no bounds", Rule{Kind: KindValuesBetween, Column: "id"}, ErrInvalidParams},
		{"min above max", RowCountBetween(10, 1), ErrInvalidParams},
		{"non-numeric bound", Rule{Kind: KindRowCountBetween, Params: Params{"min": "many"}}, ErrInvalidParams},
		{"NaN bounds", ValuesBetween("id", math.NaN(), math.NaN()), ErrInvalidParams},
		{"NaN min", RowCountBetween(math.NaN(), 5), ErrInvalidParams},
		{"infinite max", ColumnCountBetween(1, math.Inf(1)), ErrInvalidParams},
		{"unexpected param", Rule{Kind: KindColumnExists, Column: "id", Params: Params{"min": 1}}, ErrInvalidParams},
		{"bad severity", ColumnExists("id").WithSeverity("fatal"), ErrInvalidParams},
		{"bad expression", ValuesMatchExpression("id", `value >`), ErrInvalidParams},
		{"empty expression", ValuesMatchExpression("id", " "), ErrInvalidParams},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			suite := NewSuite("invalid")
			err := suite.Add(tc.rule)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Expected %v, got %v", tc.want, err)
			}
			if suite.Len() != 0 {
				t.Error("Invalid rule should not be added")
			}
		})
	}
}

// TestNewRuleDefaults verifies severity defaulting and param normalization
func TestNewRuleDefaults(t *testing.T) {
	r, err := NewRule(KindValuesBetween, "id", Params{"min": 1, "max": int32(10)}, "")
	if err != nil {
		t.Fatalf("NewRule() failed: %v", err)
	}
	if r.Severity != SeverityCritical {
		t.Errorf("Expected critical severity, got %s", r.Severity)
	}
	if v, ok := r.Params["max"].(float64); !ok || v != 10 {
		t.Errorf("Expected max normalized to float64 10, got %#v", r.Params["max"])
	}
	if r.Target() != "id" {
		t.Errorf("Expected target id, got %s", r.Target())
	}
	if got := RowCountBetween(1, 2).Target(); got != "table" {
		t.Errorf("Expected table target, got %s", got)
	}
}

// TestSuiteRulesAreCopies verifies callers cannot change stored rules
func TestSuiteRulesAreCopies(t *testing.T) {
	params := Params{"min": 1, "max": 5}
	suite := NewSuite("copies")
	if err := suite.Add(Rule{Kind: KindRowCountBetween, Params: params}); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	params["max"] = 500
	got := suite.Rules()
	got[0].Params["min"] = 99.0

	again := suite.Rules()
	if v, _ := again[0].Params.Float("max"); v != 5 {
		t.Errorf("Stored max changed to %v", v)
	}
	if v, _ := again[0].Params.Float("min"); v != 1 {
		t.Errorf("Stored min changed to %v", v)
	}
}

// TestKinds verifies the closed set of kinds
func TestKinds(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 8 {
		t.Errorf("Expected 8 kinds, got %d", len(kinds))
	}
	for _, k := range kinds {
		if !k.Valid() {
			t.Errorf("Kind %s should be valid", k)
		}
		if _, ok := evaluators[k]; !ok {
			t.Errorf("Kind %s has no evaluator", k)
		}
	}
	if Kind("nope").Valid() {
		t.Error("Unknown kind should be invalid")
	}
	if !KindRowCountBetween.TableLevel() || KindValuesUnique.TableLevel() {
		t.Error("TableLevel() misreports kinds")
	}
}
