package logging

import (
	"encoding/json"
	"time"

	"github.com/jingkaihe/zygiskhost/internal/errx"
)

// EmitterConfig holds metadata stamped onto every event.
type EmitterConfig struct {
	Host       string // Host build, e.g. "zygiskhost/v1.2.0"
	Invocation string // Invocation id of the current specialization
	Process    string // Process nice name, once known
}

// Emitter stamps metadata onto events and dispatches them to sinks.
//
// A nil *Emitter is safe to use; Emit and Close do nothing.
type Emitter struct {
	config EmitterConfig
	sinks  []Sink
}

// NewEmitter creates an emitter with the given configuration and sinks.
func NewEmitter(cfg EmitterConfig, sinks ...Sink) *Emitter {
	return &Emitter{
		config: cfg,
		sinks:  sinks,
	}
}

// With returns an emitter sharing e's sinks with the invocation and process
// replaced. Closing the derived emitter closes the shared sinks.
func (e *Emitter) With(invocation, process string) *Emitter {
	if e == nil {
		return nil
	}
	cfg := e.config
	cfg.Invocation = invocation
	cfg.Process = process
	return &Emitter{config: cfg, sinks: e.sinks}
}

// Emit stamps an event of eventType and writes it to every sink. module
// names the module concerned, if any; data is the typed payload and may be
// nil. Sinks stop at the first error, which is returned.
func (e *Emitter) Emit(eventType, summary, module string, tags []string, data interface{}) error {
	if e == nil {
		return nil
	}
	var rawData json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return errx.Wrap(ErrMarshalData, err)
		}
		rawData = b
	}

	event := &Event{
		Timestamp:  time.Now().UTC(),
		Host:       e.config.Host,
		Invocation: e.config.Invocation,
		Process:    e.config.Process,
		EventType:  eventType,
		Summary:    summary,
		Module:     module,
		Tags:       tags,
		Data:       rawData,
	}

	for _, sink := range e.sinks {
		if err := sink.Write(event); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all sinks. Returns the first error encountered.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	var firstErr error
	for _, sink := range e.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
