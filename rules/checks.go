package rules

import (
	"context"
	"fmt"
	"slices"

	"github.com/jadesonbruno/dataquality/dataset"
)

// checkResult is what an evaluator reports for one rule. A non-nil err means
// the data could not be read and the rule failed for that reason.
type checkResult struct {
	passed   bool
	observed any
	message  string
	err      error
}

type evaluator func(ctx context.Context, r Rule, src dataset.Source, progs *programCache) checkResult

// evaluators holds one entry per supported kind.
var evaluators = map[Kind]evaluator{
	KindColumnExists:            checkColumnExists,
	KindRowCountBetween:         checkRowCount,
	KindColumnCountBetween:      checkColumnCount,
	KindValuesNotNull:           checkNotNull,
	KindValuesBetween:           checkValuesBetween,
	KindValuesUnique:            checkUnique,
	KindUniqueValueCountBetween: checkDistinctCount,
	KindValuesMatchExpression:   checkExpression,
}

func accessFailure(r Rule, err error) checkResult {
	return checkResult{
		message: fmt.Sprintf("cannot evaluate %s on %s: %v", r.Kind, r.Target(), err),
		err:     err,
	}
}

func checkColumnExists(ctx context.Context, r Rule, src dataset.Source, _ *programCache) checkResult {
	cols, err := src.Columns(ctx)
	if err != nil {
		return accessFailure(r, err)
	}
	if slices.Contains(cols, r.Column) {
		return checkResult{passed: true, observed: true, message: fmt.Sprintf("column %q exists", r.Column)}
	}
	return checkResult{
		observed: false,
		message:  fmt.Sprintf("column %q is missing from the dataset", r.Column),
	}
}

func checkRowCount(ctx context.Context, r Rule, src dataset.Source, _ *programCache) checkResult {
	n, err := src.RowCount(ctx)
	if err != nil {
		return accessFailure(r, err)
	}
	return countResult("row count", n, r.Params)
}

func checkColumnCount(ctx context.Context, r Rule, src dataset.Source, _ *programCache) checkResult {
	cols, err := src.Columns(ctx)
	if err != nil {
		return accessFailure(r, err)
	}
	return countResult("column count", len(cols), r.Params)
}

func countResult(what string, n int, p Params) checkResult {
	if withinBounds(float64(n), p) {
		return checkResult{passed: true, observed: n, message: fmt.Sprintf("%s %d is within %s", what, n, formatBounds(p))}
	}
	return checkResult{observed: n, message: fmt.Sprintf("%s %d is outside %s", what, n, formatBounds(p))}
}

func checkNotNull(ctx context.Context, r Rule, src dataset.Source, _ *programCache) checkResult {
	vals, err := src.ColumnValues(ctx, r.Column)
	if err != nil {
		return accessFailure(r, err)
	}

	nulls := 0
	for _, v := range vals {
		if isNull(v) {
			nulls++
		}
	}
	if nulls == 0 {
		return checkResult{passed: true, observed: 0, message: fmt.Sprintf("column %q has no null values", r.Column)}
	}
	return checkResult{observed: nulls, message: fmt.Sprintf("column %q has %d null values out of %d", r.Column, nulls, len(vals))}
}

func checkValuesBetween(ctx context.Context, r Rule, src dataset.Source, _ *programCache) checkResult {
	vals, err := src.ColumnValues(ctx, r.Column)
	if err != nil {
		return accessFailure(r, err)
	}

	outside := 0
	for _, v := range vals {
		if isNull(v) {
			continue
		}
		f, ok := toFloat(v)
		if !ok || !withinBounds(f, r.Params) {
			outside++
		}
	}
	if outside == 0 {
		return checkResult{passed: true, observed: 0, message: fmt.Sprintf("all values of %q are within %s", r.Column, formatBounds(r.Params))}
	}
	return checkResult{observed: outside, message: fmt.Sprintf("%d values of %q are outside %s", outside, r.Column, formatBounds(r.Params))}
}

// checkUnique reports the number of rows whose value occurs more than once.
func checkUnique(ctx context.Context, r Rule, src dataset.Source, _ *programCache) checkResult {
	vals, err := src.ColumnValues(ctx, r.Column)
	if err != nil {
		return accessFailure(r, err)
	}

	counts := make(map[any]int, len(vals))
	for _, v := range vals {
		if isNull(v) {
			continue
		}
		counts[distinctKey(v)]++
	}

	duplicated := 0
	for _, c := range counts {
		if c > 1 {
			duplicated += c
		}
	}
	if duplicated == 0 {
		return checkResult{passed: true, observed: 0, message: fmt.Sprintf("values of %q are unique", r.Column)}
	}
	return checkResult{observed: duplicated, message: fmt.Sprintf("%d rows of %q hold duplicated values", duplicated, r.Column)}
}

func checkDistinctCount(ctx context.Context, r Rule, src dataset.Source, _ *programCache) checkResult {
	vals, err := src.ColumnValues(ctx, r.Column)
	if err != nil {
		return accessFailure(r, err)
	}

	seen := make(map[any]struct{}, len(vals))
	for _, v := range vals {
		if isNull(v) {
			continue
		}
		seen[distinctKey(v)] = struct{}{}
	}
	return countResult(fmt.Sprintf("distinct value count of %q", r.Column), len(seen), r.Params)
}

func checkExpression(ctx context.Context, r Rule, src dataset.Source, progs *programCache) checkResult {
	expr := r.Params.String(ParamExpression)
	prog, err := progs.get(expr)
	if err != nil {
		// Rules are validated when added, so this only happens for rules
		// built outside a suite.
		return checkResult{message: fmt.Sprintf("invalid expression %q: %v", expr, err), err: err}
	}

	vals, err := src.ColumnValues(ctx, r.Column)
	if err != nil {
		return accessFailure(r, err)
	}

	failed := 0
	for _, v := range vals {
		if isNull(v) {
			continue
		}
		if !matches(prog, v) {
			failed++
		}
	}
	if failed == 0 {
		return checkResult{passed: true, observed: 0, message: fmt.Sprintf("all values of %q satisfy %s", r.Column, expr)}
	}
	return checkResult{observed: failed, message: fmt.Sprintf("%d values of %q do not satisfy %s", failed, r.Column, expr)}
}
