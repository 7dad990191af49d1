package rules

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKind    = errors.New("unknown rule kind")
	ErrDuplicateRule  = errors.New("duplicate rule")
	ErrInvalidParams  = errors.New("invalid rule parameters")
	ErrSuiteFrozen    = errors.New("suite is frozen")
	ErrSuiteNotFound  = errors.New("suite not found")
	ErrSuiteExists    = errors.New("suite already exists")
	ErrInvalidSuiteID = errors.New("invalid suite name")
)

// SuiteBuildError is returned when a rule cannot be added to a suite.
// It never affects other suites.
type SuiteBuildError struct {
	Suite  string
	Kind   Kind
	Detail string
	Err    error
}

func (e *SuiteBuildError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Kind != "" {
		msg = fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	if e.Suite != "" {
		msg = fmt.Sprintf("suite %q: %s", e.Suite, msg)
	}
	return msg
}

func (e *SuiteBuildError) Unwrap() error {
	return e.Err
}

func invalidParams(kind Kind, format string, args ...any) *SuiteBuildError {
	return &SuiteBuildError{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: ErrInvalidParams}
}

// SinkUnavailableError reports that a result could not be published.
// The result itself is unaffected.
type SinkUnavailableError struct {
	Sink string
	Err  error
}

func (e *SinkUnavailableError) Error() string {
	return fmt.Sprintf("sink %s unavailable: %v", e.Sink, e.Err)
}

func (e *SinkUnavailableError) Unwrap() error {
	return e.Err
}
