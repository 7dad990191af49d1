package server

import (
	"github.com/jadesonbruno/dataquality/report"
	"github.com/jadesonbruno/dataquality/rules"
)

// API request and response models

// SuiteResponse represents a suite in API responses
type SuiteResponse struct {
	Name  string       `json:"name" example:"expectation"`
	Rules []rules.Rule `json:"rules"`
}

// SuitesListResponse represents the response for listing suites
type SuitesListResponse struct {
	Suites []SuiteSummary `json:"suites"`
}

// SuiteSummary is a suite without its rules
type SuiteSummary struct {
	Name  string `json:"name" example:"expectation"`
	Rules int    `json:"rules" example:"7"`
}

// PutSuiteRequest represents the request body for creating or replacing a suite
type PutSuiteRequest struct {
	Rules []rules.Rule `json:"rules"`
}

// InlineData is a small table sent with a validation request
type InlineData struct {
	Columns []string `json:"columns" example:"id,name"`
	Records [][]any  `json:"records"`
}

// ValidateRequest represents the request body for running a suite. Source
// names one of the sources configured on the server; at most one of Source
// and Data may be set. When neither is, the default source is used.
type ValidateRequest struct {
	Suite   string      `json:"suite" example:"expectation" binding:"required"`
	Source  string      `json:"source,omitempty" example:"warehouse"`
	Data    *InlineData `json:"data,omitempty"`
	RunName string      `json:"run_name,omitempty" example:"demo_run_20240102_030405"`
}

// ValidateResponse represents the result of a validation run
type ValidateResponse struct {
	report.Record
	Description string   `json:"description"`
	SinkErrors  []string `json:"sink_errors,omitempty"`
}

// RunsListResponse represents the stored run history
type RunsListResponse struct {
	Runs []report.RunSummary `json:"runs"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"suite not found"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
	Suites int    `json:"suites" example:"1"`
	Error  string `json:"error,omitempty"`
}
