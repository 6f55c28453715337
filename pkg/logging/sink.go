package logging

// Sink consumes journal events. Implementations must be safe for
// concurrent use and must not modify the event.
type Sink interface {
	Write(event *Event) error
	Close() error
}
