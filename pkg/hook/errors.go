package hook

import "errors"

var (
	ErrInvalidPattern = errors.New("hook: invalid path pattern")
	ErrEmptySymbol    = errors.New("hook: empty symbol")
	ErrNilReplacement = errors.New("hook: nil replacement")
	ErrNoTarget       = errors.New("hook: no target file")
)
