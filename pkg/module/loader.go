package module

import (
	"plugin"
	"sort"
	"sync"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
)

// Handle is an opened module binary.
type Handle interface {
	Lookup(symbol string) (any, error)
	Close() error
}

// Loader opens module binaries.
type Loader interface {
	Open(desc api.ModuleDescriptor) (Handle, error)
}

// PluginLoader loads Go plugins from the descriptor's path or fd.
type PluginLoader struct{}

func (PluginLoader) Open(desc api.ModuleDescriptor) (Handle, error) {
	p, err := plugin.Open(desc.Location())
	if err != nil {
		return nil, errx.Wrap(ErrOpenModule, err)
	}
	return pluginHandle{p}, nil
}

type pluginHandle struct {
	p *plugin.Plugin
}

func (h pluginHandle) Lookup(symbol string) (any, error) {
	sym, err := h.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// Close always fails: the Go runtime cannot unmap a plugin.
func (pluginHandle) Close() error {
	return ErrUnloadUnsupported
}

var (
	staticMu sync.RWMutex
	static   = map[string]EntryFunc{}
)

// Register adds a compiled-in module. Modules linked into the host binary
// call this from their init() functions.
// Panics if a module is already registered under name.
func Register(name string, entry EntryFunc) {
	staticMu.Lock()
	defer staticMu.Unlock()
	if _, exists := static[name]; exists {
		panic("module: duplicate static registration for " + name)
	}
	static[name] = entry
}

// RegisteredModules returns the names of all compiled-in modules, sorted.
func RegisteredModules() []string {
	staticMu.RLock()
	defer staticMu.RUnlock()
	names := make([]string, 0, len(static))
	for name := range static {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupStatic(name string) (EntryFunc, bool) {
	staticMu.RLock()
	defer staticMu.RUnlock()
	e, ok := static[name]
	return e, ok
}

// StaticLoader resolves descriptors by name against compiled-in modules.
type StaticLoader struct{}

func (StaticLoader) Open(desc api.ModuleDescriptor) (Handle, error) {
	entry, ok := lookupStatic(desc.Name)
	if !ok {
		return nil, errx.With(ErrUnknownStatic, ": %q", desc.Name)
	}
	return &staticHandle{entry: entry}, nil
}

type staticHandle struct {
	entry EntryFunc
}

func (h *staticHandle) Lookup(symbol string) (any, error) {
	if symbol != EntryName || h.entry == nil {
		return nil, errx.With(ErrEntryNotFound, ": %s", symbol)
	}
	return h.entry, nil
}

func (h *staticHandle) Close() error {
	h.entry = nil
	return nil
}

// ChainLoader tries each loader in order and returns the first success.
type ChainLoader []Loader

func (c ChainLoader) Open(desc api.ModuleDescriptor) (Handle, error) {
	var firstErr error
	for _, l := range c {
		h, err := l.Open(desc)
		if err == nil {
			return h, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = errx.With(ErrOpenModule, ": no loader for %q", desc.Name)
	}
	return nil, firstErr
}
