package rules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jadesonbruno/dataquality/dataset"
)

// Engine executes suites against data sources.
// It never mutates a source and keeps no per-run state, so one Engine can
// serve concurrent runs; compiled expressions are shared behind a RWMutex.
type Engine struct {
	logger   *slog.Logger
	programs *programCache
	now      func() time.Time
	newID    func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(en *Engine) {
		if l != nil {
			en.logger = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(en *Engine) {
		en.now = now
	}
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	en := &Engine{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		programs: newProgramCache(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(en)
	}
	return en
}

// RunOption configures a single run.
type RunOption func(*runConfig)

type runConfig struct {
	runName string
}

// WithRunName labels the run; by default it is named after the start time.
func WithRunName(name string) RunOption {
	return func(c *runConfig) {
		c.runName = name
	}
}

// DefaultRunName formats prefix_YYYYmmdd_HHMMSS.
func DefaultRunName(prefix string, t time.Time) string {
	return prefix + "_" + t.Format("20060102_150405")
}

// Run evaluates every rule of suite against src, in order, and returns the
// result. Data access failures become failing outcomes and never stop the
// run; Run only returns an error for a nil suite or source. The suite is
// frozen for further additions.
//
// If ctx is cancelled the remaining rules are recorded as failed with the
// context error, so the result still has one outcome per rule.
func (en *Engine) Run(ctx context.Context, suite *Suite, src dataset.Source, opts ...RunOption) (*RunResult, error) {
	if suite == nil {
		return nil, errors.New("rules: nil suite")
	}
	if src == nil {
		return nil, errors.New("rules: nil source")
	}

	started := en.now()
	cfg := runConfig{runName: DefaultRunName("run", started)}
	for _, opt := range opts {
		opt(&cfg)
	}

	rules := suite.freeze()
	result := &RunResult{
		RunID:     en.newID(),
		RunName:   cfg.runName,
		Suite:     suite.Name(),
		Source:    dataset.NameOf(src),
		StartedAt: started,
		Outcomes:  make([]RuleOutcome, 0, len(rules)),
		Success:   true,
	}

	en.logger.Debug("validation started",
		"run", result.RunName, "suite", result.Suite, "source", result.Source, "rules", len(rules))

	for _, r := range rules {
		outcome := en.evaluate(ctx, r, src)
		if !outcome.Passed {
			en.logger.Debug("rule failed",
				"run", result.RunName, "kind", r.Kind, "target", r.Target(), "severity", r.Severity, "message", outcome.Message)
			if r.Severity.AtLeast(SeverityCritical) {
				result.Success = false
			}
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.FinishedAt = en.now()
	stats := result.Statistics()
	en.logger.Info("validation finished",
		"run", result.RunName,
		"suite", result.Suite,
		"success", result.Success,
		"passed", stats.Passed,
		"failed", stats.Failed,
		"duration", result.Duration())

	return result, nil
}

// evaluate runs one rule, isolating failures: a panic or error inside an
// evaluator only fails this rule.
func (en *Engine) evaluate(ctx context.Context, r Rule, src dataset.Source) (outcome RuleOutcome) {
	outcome.Rule = r

	if err := ctx.Err(); err != nil {
		outcome.Message = fmt.Sprintf("not evaluated: %v", err)
		outcome.Error = err.Error()
		outcome.err = err
		return outcome
	}

	eval, ok := evaluators[r.Kind]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownKind, r.Kind)
		outcome.Message = err.Error()
		outcome.Error = err.Error()
		outcome.err = err
		return outcome
	}

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("%w: evaluator panic: %v", dataset.ErrUnreadable, p)
			en.logger.Error("rule evaluation panicked", "kind", r.Kind, "target", r.Target(), "panic", p)
			outcome = RuleOutcome{Rule: r, Message: err.Error(), Error: err.Error(), err: err}
		}
	}()

	res := eval(ctx, r, src, en.programs)
	outcome.Passed = res.passed && res.err == nil
	outcome.ObservedValue = res.observed
	outcome.Message = res.message
	if res.err != nil {
		outcome.Error = res.err.Error()
		outcome.err = res.err
		en.logger.Warn("data access failed", "kind", r.Kind, "target", r.Target(), "error", res.err)
	}
	return outcome
}
