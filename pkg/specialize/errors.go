package specialize

import "errors"

var (
	ErrInvalidConfig = errors.New("specialize: invalid config")
	ErrOpenJournal   = errors.New("specialize: open journal")
	ErrNoFossil      = errors.New("specialize: fossil region not cached")
)
