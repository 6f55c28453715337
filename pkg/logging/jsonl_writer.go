package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"sync"

	"github.com/jingkaihe/zygiskhost/internal/errx"
)

// JSONLWriter is the journal file sink. The spawning service and every
// child forked from it may hold a writer on the same file; each event goes
// out in a single append so lines from different processes never interleave.
type JSONLWriter struct {
	mu     sync.Mutex
	file   *os.File
	buf    bytes.Buffer
	lines  int
	closed bool
}

// NewJSONLWriter opens path for appending. The parent directory must exist.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, errx.Wrap(ErrCreateJournal, err)
	}
	return &JSONLWriter{file: f}, nil
}

func (w *JSONLWriter) Write(event *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}

	w.buf.Reset()
	if err := json.NewEncoder(&w.buf).Encode(event); err != nil {
		return errx.Wrap(ErrWriteEvent, err)
	}
	if _, err := w.file.Write(w.buf.Bytes()); err != nil {
		return errx.Wrap(ErrWriteEvent, err)
	}
	w.lines++
	return nil
}

// Lines returns how many events this writer appended.
func (w *JSONLWriter) Lines() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

// Close flushes the file to disk. Closing twice is a no-op.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	_ = w.file.Sync()
	if err := w.file.Close(); err != nil {
		return errx.Wrap(ErrCloseWriter, err)
	}
	return nil
}
