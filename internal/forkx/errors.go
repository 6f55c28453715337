package forkx

import "errors"

var (
	ErrSigmask = errors.New("forkx: change signal mask")
	ErrFork    = errors.New("forkx: fork")
)
