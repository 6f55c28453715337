package api

import "fmt"

// ModuleDescriptor identifies one module binary handed out by the daemon.
// Fd is an open descriptor of the binary (for example a sealed memfd) or -1
// when Path should be used instead.
type ModuleDescriptor struct {
	Name string
	Path string
	Fd   int
}

// Location returns a path the dynamic loader can open.
func (d ModuleDescriptor) Location() string {
	if d.Fd >= 0 {
		return fmt.Sprintf("/proc/self/fd/%d", d.Fd)
	}
	return d.Path
}

// APIVersion is the module API version a module negotiates at load.
type APIVersion int

const (
	APIVersionMin APIVersion = 1
	// APIVersionMax is the newest version this host implements.
	APIVersionMax APIVersion = 5
)
