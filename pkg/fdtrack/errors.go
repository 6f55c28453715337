package fdtrack

import "errors"

var (
	ErrListFds   = errors.New("fdtrack: list descriptors")
	ErrInvalidFd = errors.New("fdtrack: invalid descriptor")
)
