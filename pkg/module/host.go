package module

import (
	"log/slog"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
	"github.com/jingkaihe/zygiskhost/pkg/logging"
)

// Host owns the modules of one specialization, in load order.
type Host struct {
	loader  Loader
	modules []*Module
	emitter *logging.Emitter
	logger  *slog.Logger
}

// NewHost creates a host. emitter may be nil.
func NewHost(loader Loader, emitter *logging.Emitter, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		loader:  loader,
		emitter: emitter,
		logger:  logger.With("component", "module"),
	}
}

// Modules returns the loaded modules in load order.
func (h *Host) Modules() []*Module {
	return h.modules
}

// Module returns the module with the given id. Ids are positions in the
// daemon's module list, so descriptors that failed to load leave gaps.
func (h *Host) Module(id int) (*Module, bool) {
	for _, m := range h.modules {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

// Load opens every descriptor, runs its entry and validates what it
// registered, then calls OnLoad on every valid module. Modules that fail
// to open are skipped; modules that fail validation stay loaded but are
// never dispatched. It returns the number of valid modules.
func (h *Host) Load(descs []api.ModuleDescriptor, env api.Env, ctrl Controller) int {
	for i, desc := range descs {
		handle, err := h.loader.Open(desc)
		if err != nil {
			h.logger.Warn("open module failed", "module", desc.Name, "error", err)
			continue
		}
		entry, err := resolveEntry(handle)
		if err != nil {
			h.logger.Warn("resolve module entry failed", "module", desc.Name, "error", err)
			_ = handle.Close()
			continue
		}

		m := &Module{
			ID:     i,
			Name:   desc.Name,
			handle: handle,
			entry:  entry,
			logger: h.logger.With("module", desc.Name),
		}
		m.table = newTable(m, ctrl)
		h.modules = append(h.modules, m)

		if err := m.call("entry", func() { entry(m.table, env) }); err != nil {
			m.err = err
		} else {
			m.validate()
		}
		h.emitLoad(m)
		if m.err != nil {
			m.logger.Warn("module rejected", "error", m.err)
		}
	}

	valid := 0
	for _, m := range h.modules {
		if !m.Valid() {
			continue
		}
		if err := m.onLoad(env); err != nil {
			continue
		}
		valid++
	}
	return valid
}

func resolveEntry(handle Handle) (EntryFunc, error) {
	sym, err := handle.Lookup(EntryName)
	if err != nil {
		return nil, errx.Wrap(ErrEntryNotFound, err)
	}
	switch fn := sym.(type) {
	case EntryFunc:
		return fn, nil
	case func(*Table, api.Env):
		return fn, nil
	case *EntryFunc:
		return *fn, nil
	default:
		return nil, errx.With(ErrEntryType, ": %T", sym)
	}
}

// PreApp dispatches the app pre-specialize callback to every valid module.
func (h *Host) PreApp(args *api.AppSpecializeArgs) {
	for _, m := range h.modules {
		if m.Valid() {
			_ = m.preApp(args)
		}
	}
}

// PreServer dispatches the server pre-specialize callback.
func (h *Host) PreServer(args *api.ServerSpecializeArgs) {
	for _, m := range h.modules {
		if m.Valid() {
			_ = m.preServer(args)
		}
	}
}

// PostApp dispatches the app post-specialize callback in load order and
// tries to unload each module after its callback. It returns how many
// modules were loaded and how many are gone.
func (h *Host) PostApp(args *api.AppSpecializeArgs) (loaded, unloaded int) {
	return h.post(func(m *Module) error { return m.postApp(args) })
}

// PostServer is PostApp for the system service.
func (h *Host) PostServer(args *api.ServerSpecializeArgs) (loaded, unloaded int) {
	return h.post(func(m *Module) error { return m.postServer(args) })
}

func (h *Host) post(dispatch func(*Module) error) (loaded, unloaded int) {
	for _, m := range h.modules {
		if m.Valid() {
			_ = dispatch(m)
		}
		if m.tryUnload() {
			m.table.revoke()
			unloaded++
		}
	}
	loaded = len(h.modules)
	_ = h.emitter.Emit(logging.EventModuleUnload, "post-specialize unload", "", nil, &logging.ModuleUnloadData{
		Loaded:   loaded,
		Unloaded: unloaded,
		Clean:    loaded == unloaded,
	})
	return loaded, unloaded
}

// Clear forgets every module once all of them are unloaded and returns
// how many it dropped. Nothing happens while any module is resident.
func (h *Host) Clear() int {
	for _, m := range h.modules {
		if m.handle != nil {
			return 0
		}
	}
	n := len(h.modules)
	h.modules = nil
	return n
}

func (h *Host) emitLoad(m *Module) {
	data := &logging.ModuleLoadData{
		ID:         m.ID,
		APIVersion: int(m.APIVersion()),
		Valid:      m.err == nil,
	}
	if m.err != nil {
		data.Reason = m.err.Error()
	}
	_ = h.emitter.Emit(logging.EventModuleLoad, "load "+m.Name, m.Name, nil, data)
}
