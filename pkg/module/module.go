// Package module loads third-party modules into a specializing process and
// dispatches the specialization callbacks to them.
package module

import (
	"fmt"
	"log/slog"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
)

// Module is one loaded module binary. It owns its handle.
type Module struct {
	ID   int
	Name string

	handle Handle
	entry  EntryFunc
	table  *Table
	abi    *ModuleABI
	err    error
	unload bool
	logger *slog.Logger
}

// APIVersion returns the registered version, or 0 before registration.
func (m *Module) APIVersion() api.APIVersion {
	if m.abi == nil {
		return 0
	}
	return m.abi.APIVersion
}

// Valid reports whether the module registered a complete ABI.
func (m *Module) Valid() bool {
	return m.err == nil && m.abi != nil
}

// Err returns why the module is not dispatched, if it is not.
func (m *Module) Err() error {
	return m.err
}

// RequestUnload marks the module for release after post-specialization.
func (m *Module) RequestUnload() {
	m.unload = true
}

func (m *Module) validate() {
	if m.abi == nil {
		m.err = ErrNotRegistered
		return
	}
	m.err = m.abi.Validate()
}

func (m *Module) call(name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errx.With(ErrPanicked, ": %s: %v", name, r)
			m.logger.Error("module callback panicked", "callback", name, "panic", fmt.Sprint(r))
		}
	}()
	fn()
	return nil
}

func (m *Module) onLoad(env api.Env) error {
	return m.call("OnLoad", func() { m.abi.OnLoad(m.abi.Impl, env) })
}

func (m *Module) preApp(args *api.AppSpecializeArgs) error {
	if m.abi.Legacy() {
		return m.call("LegacyPreAppSpecialize", func() { m.abi.LegacyPreAppSpecialize(m.abi.Impl, args.Legacy()) })
	}
	return m.call("PreAppSpecialize", func() { m.abi.PreAppSpecialize(m.abi.Impl, args) })
}

func (m *Module) postApp(args *api.AppSpecializeArgs) error {
	if m.abi.Legacy() {
		return m.call("LegacyPostAppSpecialize", func() { m.abi.LegacyPostAppSpecialize(m.abi.Impl, args.Legacy()) })
	}
	return m.call("PostAppSpecialize", func() { m.abi.PostAppSpecialize(m.abi.Impl, args) })
}

func (m *Module) preServer(args *api.ServerSpecializeArgs) error {
	return m.call("PreServerSpecialize", func() { m.abi.PreServerSpecialize(m.abi.Impl, args) })
}

func (m *Module) postServer(args *api.ServerSpecializeArgs) error {
	return m.call("PostServerSpecialize", func() { m.abi.PostServerSpecialize(m.abi.Impl, args) })
}

// tryUnload releases the handle if the module asked for it. It reports
// whether the module is gone.
func (m *Module) tryUnload() bool {
	if !m.unload || m.handle == nil {
		return false
	}
	if err := m.handle.Close(); err != nil {
		m.logger.Debug("module stays resident", "error", err)
		return false
	}
	m.handle = nil
	return true
}
