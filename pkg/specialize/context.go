package specialize

import (
	"context"
	"log/slog"
	"slices"

	"github.com/jingkaihe/zygiskhost/internal/forkx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
	"github.com/jingkaihe/zygiskhost/pkg/daemon"
	"github.com/jingkaihe/zygiskhost/pkg/fdtrack"
	"github.com/jingkaihe/zygiskhost/pkg/hook"
	"github.com/jingkaihe/zygiskhost/pkg/logging"
	"github.com/jingkaihe/zygiskhost/pkg/maps"
	"github.com/jingkaihe/zygiskhost/pkg/module"
	"github.com/jingkaihe/zygiskhost/pkg/mount"
)

// Context is one fork-and-specialize invocation. The bridge calls one pre
// and the matching post entry point on it, in that order.
type Context struct {
	ctx    context.Context
	rt     *Runtime
	env    api.Env
	id     string
	client daemon.Client
	logger *slog.Logger
	events *logging.Emitter

	flags   Flags
	state   State
	role    forkx.Role
	pid     int
	process string

	app    *api.AppSpecializeArgs
	server *api.ServerSpecializeArgs

	info        api.ProcessFlags
	infoFetched bool

	fds      *fdtrack.Tracker
	exempted []int
	hooks    *hook.Registry
	host     *module.Host
}

// ID returns the invocation id.
func (c *Context) ID() string { return c.id }

// Flags returns the role flags raised so far.
func (c *Context) Flags() Flags { return c.flags }

// State returns the current state.
func (c *Context) State() State { return c.state }

// ForkedPid returns the pid the internal fork returned: the child's pid in
// the parent, 0 in the child and -1 before any fork. The bridge reuses it
// instead of forking again.
func (c *Context) ForkedPid() int { return c.pid }

// IsChild reports whether this side of the invocation is the process being
// specialized. A pure specialize never forks and is always the child.
func (c *Context) IsChild() bool { return c.role == forkx.Child }

// ForkAndSpecializePre runs before the bridge forks an application.
func (c *Context) ForkAndSpecializePre(args *api.AppSpecializeArgs) {
	c.app = args
	c.setProcess(args.NiceName)
	c.flags |= FlagAppForkAndSpecialize
	c.logger.Debug("pre fork and specialize")

	c.rt.zygoteUnmount(c, func() api.ProcessFlags {
		return c.processFlags(c.ownerUID(args))
	})

	c.fork()
	if c.IsChild() {
		c.appSpecializePre()
	}
	c.sanitizeFds()
}

// ForkAndSpecializePost runs after the bridge specialized the application.
func (c *Context) ForkAndSpecializePost() {
	if c.IsChild() {
		c.logger.Debug("post fork and specialize")
		c.appSpecializePost()
	}
	c.forkPost()
}

// SpecializeAppProcessPre runs before an in-place specialize. The bridge
// does not check descriptors on this path.
func (c *Context) SpecializeAppProcessPre(args *api.AppSpecializeArgs) {
	c.app = args
	c.setProcess(args.NiceName)
	c.flags |= FlagSkipCloseLogPipe
	c.logger.Debug("pre specialize")
	c.appSpecializePre()
}

// SpecializeAppProcessPost runs after an in-place specialize.
func (c *Context) SpecializeAppProcessPost() {
	c.logger.Debug("post specialize")
	c.appSpecializePost()
}

// ForkSystemServerPre runs before the bridge forks the system service.
func (c *Context) ForkSystemServerPre(args *api.ServerSpecializeArgs) {
	c.server = args
	c.setProcess("system_server")
	c.flags |= FlagServerForkAndSpecialize
	c.logger.Debug("pre fork system server")

	if n, err := c.scrubFossil(); err != nil {
		c.logger.Warn("scrub zygote fossil failed", "error", err)
	} else {
		c.logger.Debug("scrubbed zygote fossil", "occurrences", n)
	}

	c.fork()
	if c.IsChild() {
		c.serverSpecializePre()
	}
	c.sanitizeFds()
}

// ForkSystemServerPost runs after the bridge specialized the system service.
func (c *Context) ForkSystemServerPost() {
	if c.IsChild() {
		c.logger.Debug("post fork system server")
		c.runModulesPost()
	}
	c.forkPost()
}

func (c *Context) setProcess(name string) {
	c.process = name
	c.logger = c.logger.With("process", name)
	c.events = c.rt.emitter.With(c.id, name)
}

func (c *Context) fork() {
	c.state = StateForkPending
	role, pid, err := c.rt.opts.Fork()
	if err != nil && pid < 0 {
		// No child exists; the bridge forks on its own.
		c.logger.Error("fork failed", "error", err)
		c.role, c.pid, c.state = forkx.Parent, -1, StateParent
		return
	}
	if err != nil {
		c.logger.Warn("fork signal mask", "error", err)
	}
	c.role, c.pid = role, pid
	if role == forkx.Parent {
		c.state = StateParent
		return
	}
	if err := c.fds.RecordOpen(); err != nil {
		c.logger.Error("record open descriptors failed", "error", err)
	}
}

func (c *Context) forkPost() {
	if err := c.rt.opts.Unblock(); err != nil {
		c.logger.Warn("unblock SIGCHLD failed", "error", err)
	}
}

func (c *Context) ownerUID(args *api.AppSpecializeArgs) int {
	uid := args.UID
	if !c.rt.cfg.IsIsolatedUID(uid) || args.AppDataDir == "" {
		return uid
	}
	owner, err := c.rt.opts.StatUID(args.AppDataDir)
	if err != nil {
		c.logger.Warn("stat isolated data dir failed", "data_dir", args.AppDataDir, "error", err)
		return uid
	}
	c.logger.Debug("identified isolated service", "uid", owner, "data_dir", args.AppDataDir)
	return owner
}

// processFlags fetches the classification of uid once per invocation.
func (c *Context) processFlags(uid int) api.ProcessFlags {
	if c.infoFetched {
		return c.info
	}
	c.infoFetched = true
	flags, err := c.client.GetProcessFlags(c.ctx, uid)
	if err != nil {
		c.logger.Warn("get process flags failed", "uid", uid, "error", err)
		return 0
	}
	c.info = flags
	return flags
}

func (c *Context) appSpecializePre() {
	c.state = StateChildPreSpecialize
	info := c.info
	if !c.infoFetched {
		info = c.processFlags(c.ownerUID(c.app))
	}
	if info.Has(api.UnmountMask) {
		c.logger.Info("process is on the denylist")
		c.flags |= FlagDoRevertUnmount
	}
	c.flags |= FlagAppSpecialize
	c.emitSpecialize("app_pre", c.app.UID)

	c.runModulesPre()
	c.updateNamespace()
}

func (c *Context) appSpecializePost() {
	c.runModulesPost()
	if c.info.Has(api.ProcessIsManager) {
		c.logger.Info("process is the manager", "uid", c.app.UID)
		if err := c.rt.opts.Setenv(api.ManagerEnvMarker, "1"); err != nil {
			c.logger.Warn("set manager marker failed", "error", err)
		}
	}
}

func (c *Context) serverSpecializePre() {
	c.state = StateChildPreSpecialize
	c.emitSpecialize("server_pre", c.server.UID)
	c.runModulesPre()
	if err := c.client.SystemServerStarted(c.ctx); err != nil {
		c.logger.Warn("notify system server started failed", "error", err)
	}
	if err := c.client.CacheMountNamespace(c.ctx, c.rt.opts.Getpid()); err != nil {
		c.logger.Warn("cache mount namespace failed", "error", err)
	}
}

func (c *Context) runModulesPre() {
	descs, err := c.client.ReadModules(c.ctx)
	if err != nil {
		c.logger.Warn("read modules failed", "error", err)
	}
	c.host = module.NewHost(c.rt.loader, c.events, c.logger)
	c.host.Load(descs, c.env, c)
	for _, d := range descs {
		if d.Fd >= 0 {
			_ = c.rt.opts.CloseFd(d.Fd)
		}
	}
	c.state = StateChildModulesLoaded
	// Module libraries are mapped now; hooks must see them.
	_ = c.rt.maps.Refresh()

	switch {
	case c.flags.Has(FlagAppSpecialize):
		c.host.PreApp(c.app)
	case c.flags.Has(FlagServerForkAndSpecialize):
		c.host.PreServer(c.server)
	}
	c.state = StateChildSpecializing
}

func (c *Context) runModulesPost() {
	c.flags |= FlagPostSpecialize
	c.state = StateChildPostSpecialize

	var loaded, unloaded int
	if c.host != nil {
		switch {
		case c.flags.Has(FlagAppSpecialize):
			c.emitSpecialize("app_post", c.app.UID)
			loaded, unloaded = c.host.PostApp(c.app)
		case c.flags.Has(FlagServerForkAndSpecialize):
			c.emitSpecialize("server_post", c.server.UID)
			loaded, unloaded = c.host.PostServer(c.server)
		}
	}
	if loaded > 0 {
		c.logger.Debug("modules unloaded", "unloaded", unloaded, "loaded", loaded)
		if loaded == unloaded {
			c.clearTraces()
		}
	}
	c.rt.recordModules(c.flags.Has(FlagAppSpecialize), loaded, unloaded)
	c.state = StateDone
}

// clearTraces drops the host's bookkeeping once no module is left in the
// process. The tables were already emptied on unload.
func (c *Context) clearTraces() {
	dropped := c.host.Clear()
	c.host = nil
	c.logger.Debug("all modules unloaded, cleared traces", "modules", dropped)
}

// updateNamespace applies the namespace policy once modules had their say.
func (c *Context) updateNamespace() {
	var kind api.MountNamespace
	switch {
	case c.flags.Has(FlagDoRevertUnmount):
		kind = api.MountNamespaceClean
	case c.info.Has(api.ProcessGrantedRoot):
		kind = api.MountNamespaceRoot
	default:
		return
	}

	path, err := c.rt.opts.Namespaces(c.client).Switch(c.ctx, kind)
	data := &logging.NamespaceSwitchData{Kind: kind.String(), Path: path, OK: err == nil}
	if err != nil {
		data.Error = err.Error()
		c.logger.Error("update mount namespace failed", "kind", kind.String(), "error", err)
	}
	_ = c.events.Emit(logging.EventNamespaceSwitch, "switch to "+kind.String()+" namespace", "", nil, data)
}

func (c *Context) scrubFossil() (int, error) {
	cfg := c.rt.cfg
	region, ok := c.rt.maps.Find(func(r maps.Region) bool {
		return r.Anonymous() && r.Offset == 0 && r.Private && r.Path == cfg.FossilRegion
	})
	if !ok {
		return 0, ErrNoFossil
	}
	return c.rt.opts.Scrub(region, []byte(cfg.FossilNeedle))
}

func (c *Context) canExemptFd() bool {
	return c.flags.Has(FlagAppForkAndSpecialize) && c.app != nil && c.app.FdsToIgnore != nil
}

// sanitizeFds hands exempted descriptors to the bridge and closes every
// descriptor the child is not allowed to keep.
func (c *Context) sanitizeFds() {
	if !c.IsChild() {
		return
	}

	if c.canExemptFd() && len(c.exempted) > 0 {
		base := *c.app.FdsToIgnore
		for _, fd := range base {
			_ = c.fds.Allow(fd)
		}
		merged := append(slices.Clone(base), c.exempted...)
		arr, err := c.env.NewIntArray(merged)
		if err != nil {
			c.logger.Error("build descriptor ignore list failed", "error", err)
		} else {
			*c.app.FdsToIgnore = arr
			for _, fd := range c.exempted {
				_ = c.fds.Allow(fd)
			}
		}
	}

	closed, err := c.fds.Sanitize()
	if err != nil {
		c.logger.Error("sanitize descriptors failed", "error", err)
		return
	}
	_ = c.events.Emit(logging.EventFdSanitize, "sanitize descriptors", "", nil, &logging.FdSanitizeData{
		Closed:   closed,
		Exempted: c.exempted,
	})
}

func (c *Context) recordUnmount(o mount.Outcome) {
	if j := c.rt.journal; j != nil {
		if err := j.Append(c.ctx, mount.NewRecord(c.id, o)); err != nil {
			c.logger.Warn("journal unmount failed", "error", err)
		}
	}
	data := &logging.UnmountData{Target: o.Trace.Target, MountID: o.Trace.ID, OK: o.OK()}
	if o.Err != nil {
		data.Error = o.Err.Error()
	}
	_ = c.events.Emit(logging.EventUnmount, "unmount "+o.Trace.Target, "", nil, data)
}

func (c *Context) emitSpecialize(phase string, uid int) {
	_ = c.events.Emit(logging.EventSpecialize, phase+" "+c.process, "", nil, &logging.SpecializeData{
		Phase: phase,
		UID:   uid,
		Flags: c.flags.String(),
		Role:  c.role.String(),
	})
}
