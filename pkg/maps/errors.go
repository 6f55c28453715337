package maps

import "errors"

var (
	ErrOpenProcFS = errors.New("maps: open procfs")
	ErrReadMaps   = errors.New("maps: read memory maps")
	ErrScrub      = errors.New("maps: scrub region")
)
