package module

import "errors"

var (
	ErrOpenModule        = errors.New("module: open")
	ErrEntryNotFound     = errors.New("module: entry symbol not found")
	ErrEntryType         = errors.New("module: entry symbol has wrong type")
	ErrNotRegistered     = errors.New("module: entry did not register")
	ErrUnsupportedAPI    = errors.New("module: unsupported api version")
	ErrMissingCallback   = errors.New("module: missing callback")
	ErrUnloadUnsupported = errors.New("module: loader cannot release modules")
	ErrPanicked          = errors.New("module: callback panicked")
	ErrUnknownStatic     = errors.New("module: unknown static module")
)
