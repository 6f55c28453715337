package daemon

import "errors"

var (
	ErrDial         = errors.New("daemon: dial")
	ErrEncode       = errors.New("daemon: encode request")
	ErrDecode       = errors.New("daemon: decode response")
	ErrSend         = errors.New("daemon: send request")
	ErrReceive      = errors.New("daemon: receive response")
	ErrRejected     = errors.New("daemon: request rejected")
	ErrMissingFd    = errors.New("daemon: response carried no descriptor")
	ErrBadNamespace = errors.New("daemon: unknown namespace kind")
)
