package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jadesonbruno/dataquality/dataset"
)

// ValidationDefinition binds a suite to the data it validates.
type ValidationDefinition struct {
	Name   string
	Suite  *Suite
	Source dataset.Source
}

// Checkpoint runs a set of validation definitions together and hands every
// result to its sinks.
type Checkpoint struct {
	Name        string
	Definitions []ValidationDefinition
	Sinks       []Sink
	// RunNamePrefix prefixes the shared run name; defaults to the
	// checkpoint name.
	RunNamePrefix string
	// RunName, if set, is used as is instead of a generated name.
	RunName string
	Engine  *Engine
}

// CheckpointResult collects the results of one checkpoint run.
type CheckpointResult struct {
	Checkpoint string
	RunName    string
	Results    []*RunResult
	Success    bool
}

// Run validates every definition in order under one run name, then
// publishes each result to every sink.
//
// The results are always returned when validation itself ran. A non-nil
// error alongside them means only that some sinks failed; it joins one
// SinkUnavailableError per failed delivery.
func (c *Checkpoint) Run(ctx context.Context) (*CheckpointResult, error) {
	if len(c.Definitions) == 0 {
		return nil, fmt.Errorf("checkpoint %q has no validation definitions", c.Name)
	}

	engine := c.Engine
	if engine == nil {
		engine = NewEngine()
	}
	prefix := c.RunNamePrefix
	if prefix == "" {
		prefix = c.Name
	}
	runName := c.RunName
	if runName == "" {
		runName = DefaultRunName(prefix, engine.now())
	}

	out := &CheckpointResult{
		Checkpoint: c.Name,
		RunName:    runName,
		Results:    make([]*RunResult, 0, len(c.Definitions)),
		Success:    true,
	}

	for _, def := range c.Definitions {
		res, err := engine.Run(ctx, def.Suite, def.Source, WithRunName(runName))
		if err != nil {
			return nil, fmt.Errorf("validation definition %q: %w", def.Name, err)
		}
		out.Results = append(out.Results, res)
		if !res.Success {
			out.Success = false
		}
	}

	var errs []error
	for _, res := range out.Results {
		for _, s := range c.Sinks {
			if err := publish(ctx, s, res); err != nil {
				engine.logger.Warn("failed to publish result",
					"checkpoint", c.Name, "suite", res.Suite, "sink", SinkName(s), "error", err)
				errs = append(errs, err)
			}
		}
	}

	return out, errors.Join(errs...)
}

// Describe concatenates the description of every result.
func (r *CheckpointResult) Describe() string {
	var b strings.Builder
	status := "SUCCEEDED"
	if !r.Success {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "Checkpoint %q %s (run %s)\n", r.Checkpoint, status, r.RunName)
	for _, res := range r.Results {
		b.WriteString("\n")
		b.WriteString(res.Describe())
	}
	return b.String()
}
