package mount

import "errors"

var (
	ErrReadMountInfo    = errors.New("mount: read mountinfo")
	ErrUnmount          = errors.New("mount: unmount")
	ErrNamespacePath    = errors.New("mount: implausible namespace path")
	ErrNamespaceRequest = errors.New("mount: namespace request")
	ErrOpenNamespace    = errors.New("mount: open namespace")
	ErrSetns            = errors.New("mount: setns")
	ErrJournal          = errors.New("mount: journal")
)
