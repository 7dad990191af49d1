package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// expressionVar is the name a column value is bound to in expressions.
const expressionVar = "value"

// expressionCostLimit bounds the work a single evaluation may do.
const expressionCostLimit = 1000000

var expressionEnv = sync.OnceValues(func() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(expressionVar, cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
})

// compileExpression compiles and type checks expr into a program with a
// cost limit applied.
func compileExpression(expr string) (cel.Program, error) {
	env, err := expressionEnv()
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	prog, err := env.Program(ast, cel.CostLimit(expressionCostLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// programCache keeps compiled programs keyed by expression text.
type programCache struct {
	programs map[string]cel.Program
	mu       sync.RWMutex
}

func newProgramCache() *programCache {
	return &programCache{programs: make(map[string]cel.Program)}
}

func (c *programCache) get(expr string) (cel.Program, error) {
	c.mu.RLock()
	prog, ok := c.programs[expr]
	c.mu.RUnlock()
	if ok {
		return prog, nil
	}

	prog, err := compileExpression(expr)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.programs[expr] = prog
	c.mu.Unlock()
	return prog, nil
}

// matches evaluates prog for one value. Evaluation errors and non-boolean
// results count as a mismatch.
func matches(prog cel.Program, v any) bool {
	out, _, err := prog.Eval(map[string]any{expressionVar: v})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
