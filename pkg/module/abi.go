package module

import (
	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
)

// EntryName is the symbol every module binary exports.
const EntryName = "ZygiskModuleEntry"

// EntryFunc is the type of the exported entry. It must call
// Table.RegisterModule exactly once.
type EntryFunc func(table *Table, env api.Env)

// ModuleABI is what a module registers: its API version, an opaque
// implementation value passed back to every callback, and the callbacks.
//
// Modules on API versions 1 and 2 provide the Legacy app callbacks and
// receive argument views aliasing the native struct. Versions 3 and later
// provide the native ones.
type ModuleABI struct {
	APIVersion api.APIVersion
	Impl       any

	OnLoad func(impl any, env api.Env)

	PreAppSpecialize  func(impl any, args *api.AppSpecializeArgs)
	PostAppSpecialize func(impl any, args *api.AppSpecializeArgs)

	LegacyPreAppSpecialize  func(impl any, args *api.LegacyAppSpecializeArgs)
	LegacyPostAppSpecialize func(impl any, args *api.LegacyAppSpecializeArgs)

	PreServerSpecialize  func(impl any, args *api.ServerSpecializeArgs)
	PostServerSpecialize func(impl any, args *api.ServerSpecializeArgs)
}

// Legacy reports whether the module expects the v1 argument shape.
func (a *ModuleABI) Legacy() bool {
	return a.APIVersion < 3
}

// Validate checks that every callback required by the version is present.
func (a *ModuleABI) Validate() error {
	if a.APIVersion < api.APIVersionMin || a.APIVersion > api.APIVersionMax {
		return errx.With(ErrUnsupportedAPI, ": %d", a.APIVersion)
	}
	missing := func(name string) error {
		return errx.With(ErrMissingCallback, ": %s (api v%d)", name, a.APIVersion)
	}
	if a.OnLoad == nil {
		return missing("OnLoad")
	}
	if a.Legacy() {
		if a.LegacyPreAppSpecialize == nil {
			return missing("LegacyPreAppSpecialize")
		}
		if a.LegacyPostAppSpecialize == nil {
			return missing("LegacyPostAppSpecialize")
		}
	} else {
		if a.PreAppSpecialize == nil {
			return missing("PreAppSpecialize")
		}
		if a.PostAppSpecialize == nil {
			return missing("PostAppSpecialize")
		}
	}
	if a.PreServerSpecialize == nil {
		return missing("PreServerSpecialize")
	}
	if a.PostServerSpecialize == nil {
		return missing("PostServerSpecialize")
	}
	return nil
}
