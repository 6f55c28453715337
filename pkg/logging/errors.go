package logging

import "errors"

var (
	ErrCreateJournal = errors.New("logging: create journal file")
	ErrWriteEvent    = errors.New("logging: write event")
	ErrMarshalData   = errors.New("logging: marshal event data")
	ErrCloseWriter   = errors.New("logging: close writer")
	ErrWriterClosed  = errors.New("logging: writer closed")
)
