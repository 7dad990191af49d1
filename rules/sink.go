package rules

import (
	"context"
	"errors"
)

// Sink receives finished run results: a console report, a docs site, a
// metrics registry. Publish must not modify the result. A sink that cannot
// deliver returns an error; callers wrap it in a SinkUnavailableError.
type Sink interface {
	Publish(ctx context.Context, result *RunResult) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, result *RunResult) error

func (f SinkFunc) Publish(ctx context.Context, result *RunResult) error {
	return f(ctx, result)
}

// NopSink discards results.
var NopSink Sink = SinkFunc(func(context.Context, *RunResult) error { return nil })

// MultiSink publishes to every sink in order. A failing sink does not stop
// the others; all failures are joined.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, result *RunResult) error {
	var errs []error
	for _, s := range m {
		if err := publish(ctx, s, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SinkName returns the name a sink reports itself under.
func SinkName(s Sink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "sink"
}

// publish hands a private copy of result to s and normalizes its failure
// into a SinkUnavailableError.
func publish(ctx context.Context, s Sink, result *RunResult) error {
	err := s.Publish(ctx, result.Clone())
	if err == nil {
		return nil
	}
	var unavailable *SinkUnavailableError
	if errors.As(err, &unavailable) {
		return err
	}
	return &SinkUnavailableError{Sink: SinkName(s), Err: err}
}

// Publish delivers result to s. The caller's result is never touched by the
// sink: it only sees a copy.
func Publish(ctx context.Context, s Sink, result *RunResult) error {
	if s == nil || result == nil {
		return nil
	}
	return publish(ctx, s, result)
}
