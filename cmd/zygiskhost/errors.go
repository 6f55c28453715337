package main

import "errors"

// Config errors
var (
	ErrReadConfig = errors.New("read config")
)

// Inspection errors
var (
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrUnknownRoot    = errors.New("unknown root implementation")
	ErrNoTraceDB      = errors.New("trace_db_path is not configured")
	ErrListFds        = errors.New("list descriptors")
)

// Plan errors
var (
	ErrOpenPlan    = errors.New("open hook plan")
	ErrDecodePlan  = errors.New("decode hook plan")
	ErrInvalidPlan = errors.New("invalid hook plan")
)

// Daemon errors
var (
	ErrMissingUID = errors.New("--uid is required")
)
