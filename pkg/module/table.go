package module

import (
	"github.com/jingkaihe/zygiskhost/pkg/api"
)

// Controller is the host side every table slot forwards to. The
// specialization context implements it; id is the calling module's index.
type Controller interface {
	PLTHookRegister(pattern, symbol string, fn uintptr, backup *uintptr)
	PLTHookExclude(pattern, symbol string)
	PLTHookRegisterInode(dev, inode uint64, symbol string, fn uintptr, backup *uintptr)
	PLTHookCommit() bool
	ConnectCompanion(id int) (int, error)
	ModuleDir(id int) (int, error)
	ProcessFlags() api.ProcessFlags
	ExemptFd(fd int) bool
	SetOption(id int, opt api.Option)
}

// Table is the capability table a module entry receives. Slots are nil
// until RegisterModule installs the ones its API version may use.
type Table struct {
	// Installed for every version.
	HookNativeMethods func(env api.Env, className string, methods []api.NativeMethod)
	PLTHookRegister   func(pattern, symbol string, fn uintptr, backup *uintptr)
	PLTHookExclude    func(pattern, symbol string)
	PLTHookCommit     func() bool
	ConnectCompanion  func() (int, error)
	SetOption         func(opt api.Option)

	// API version 2 and later.
	GetModuleDir func() (int, error)
	GetFlags     func() api.ProcessFlags

	// API version 4 and later.
	PLTHookRegisterInode func(dev, inode uint64, symbol string, fn uintptr, backup *uintptr)
	ExemptFd             func(fd int) bool

	module *Module
	ctrl   Controller
}

func newTable(m *Module, ctrl Controller) *Table {
	return &Table{module: m, ctrl: ctrl}
}

// RegisterModule records abi for the calling module and installs the slots
// of its version. It returns false for a repeated registration or an API
// version this host does not implement.
func (t *Table) RegisterModule(abi *ModuleABI) bool {
	if abi == nil || t.module.abi != nil {
		return false
	}
	if abi.APIVersion < api.APIVersionMin || abi.APIVersion > api.APIVersionMax {
		return false
	}
	t.module.abi = abi

	id, ctrl := t.module.ID, t.ctrl
	t.HookNativeMethods = func(env api.Env, className string, methods []api.NativeMethod) {
		env.HookNativeMethods(className, methods)
	}
	t.PLTHookRegister = ctrl.PLTHookRegister
	t.PLTHookExclude = ctrl.PLTHookExclude
	t.PLTHookCommit = ctrl.PLTHookCommit
	t.ConnectCompanion = func() (int, error) { return ctrl.ConnectCompanion(id) }
	t.SetOption = func(opt api.Option) { ctrl.SetOption(id, opt) }

	if abi.APIVersion >= 2 {
		t.GetModuleDir = func() (int, error) { return ctrl.ModuleDir(id) }
		t.GetFlags = func() api.ProcessFlags { return ctrl.ProcessFlags().Public() }
	}
	if abi.APIVersion >= 4 {
		t.PLTHookRegisterInode = ctrl.PLTHookRegisterInode
		t.ExemptFd = ctrl.ExemptFd
	}
	return true
}

// revoke empties every slot so a table kept past unload can no longer
// reach the invocation that created it.
func (t *Table) revoke() {
	*t = Table{module: t.module}
}

// Revoked reports whether the table was emptied on unload.
func (t *Table) Revoked() bool {
	return t.ctrl == nil
}
