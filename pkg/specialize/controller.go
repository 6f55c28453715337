package specialize

import (
	"github.com/jingkaihe/zygiskhost/pkg/api"
	"github.com/jingkaihe/zygiskhost/pkg/logging"
)

// The methods below back the module capability table.

func (c *Context) PLTHookRegister(pattern, symbol string, fn uintptr, backup *uintptr) {
	if err := c.hooks.Register(pattern, symbol, fn, backup); err != nil {
		c.logger.Warn("drop hook registration", "pattern", pattern, "symbol", symbol, "error", err)
	}
}

func (c *Context) PLTHookExclude(pattern, symbol string) {
	if err := c.hooks.Exclude(pattern, symbol); err != nil {
		c.logger.Warn("drop hook exclusion", "pattern", pattern, "symbol", symbol, "error", err)
	}
}

func (c *Context) PLTHookRegisterInode(dev, inode uint64, symbol string, fn uintptr, backup *uintptr) {
	if err := c.hooks.RegisterInode(dev, inode, symbol, fn, backup); err != nil {
		c.logger.Warn("drop inode hook registration", "dev", dev, "inode", inode, "symbol", symbol, "error", err)
	}
}

func (c *Context) PLTHookCommit() bool {
	regs, excls := c.hooks.Pending()
	ok := c.hooks.Commit()
	_ = c.events.Emit(logging.EventHookCommit, "commit hooks", "", nil, &logging.HookCommitData{
		Registrations: regs,
		Exclusions:    excls,
		OK:            ok,
	})
	return ok
}

func (c *Context) ConnectCompanion(id int) (int, error) {
	return c.client.ConnectCompanion(c.ctx, id)
}

func (c *Context) ModuleDir(id int) (int, error) {
	return c.client.GetModuleDir(c.ctx, id)
}

// ProcessFlags returns the classification fetched for this invocation, or
// zero if none was fetched.
func (c *Context) ProcessFlags() api.ProcessFlags {
	return c.info
}

// ExemptFd keeps fd open across sanitization. Requests after sanitization
// or on paths where the bridge does not check descriptors succeed without
// effect; requests on paths with no ignore list fail.
func (c *Context) ExemptFd(fd int) bool {
	if c.flags.Has(FlagPostSpecialize) || c.flags.Has(FlagSkipCloseLogPipe) {
		return true
	}
	if !c.canExemptFd() {
		return false
	}
	c.exempted = append(c.exempted, fd)
	c.logger.Debug("exempt descriptor", "fd", fd)
	return true
}

func (c *Context) SetOption(id int, opt api.Option) {
	switch opt {
	case api.OptionForceDenylistUnmount:
		c.flags |= FlagDoRevertUnmount
	case api.OptionDlcloseModuleLibrary:
		if c.host == nil {
			return
		}
		if m, ok := c.host.Module(id); ok {
			m.RequestUnload()
		}
	default:
		c.logger.Warn("unknown module option", "module_id", id, "option", int(opt))
	}
}
