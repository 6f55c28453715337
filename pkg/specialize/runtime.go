// Package specialize runs modules around the spawning service's
// fork-and-specialize calls and leaves the new process clean.
package specialize

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/internal/forkx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
	"github.com/jingkaihe/zygiskhost/pkg/daemon"
	"github.com/jingkaihe/zygiskhost/pkg/fdtrack"
	"github.com/jingkaihe/zygiskhost/pkg/hook"
	"github.com/jingkaihe/zygiskhost/pkg/logging"
	"github.com/jingkaihe/zygiskhost/pkg/maps"
	"github.com/jingkaihe/zygiskhost/pkg/module"
	"github.com/jingkaihe/zygiskhost/pkg/mount"
	"github.com/jingkaihe/zygiskhost/pkg/version"
)

// NamespaceSwitcher joins a daemon-provided mount namespace.
type NamespaceSwitcher interface {
	Switch(ctx context.Context, kind api.MountNamespace) (string, error)
}

// Options wires a Runtime. Nil fields get the live implementation.
type Options struct {
	Config api.Config

	Maps    *maps.Cache
	Engine  hook.Engine
	Loader  module.Loader
	Journal mount.Journal
	Emitter *logging.Emitter
	Logger  *slog.Logger

	// Dial returns the daemon client for one invocation.
	Dial func(invocation string) daemon.Client
	// Namespaces builds the namespace switcher for one invocation.
	Namespaces func(source mount.NamespaceSource) NamespaceSwitcher

	Fork      func() (forkx.Role, int, error)
	Unblock   func() error
	Unmount   func(target string) error
	Setenv    func(key, value string) error
	StatUID   func(path string) (int, error)
	Scrub     func(region maps.Region, needle []byte) (int, error)
	FdLister  fdtrack.Lister
	CloseFd   func(fd int) error
	Getpid    func() int
	NewInvoke func() string
}

// Runtime is the process-lifetime state of the host inside the spawning
// service. It outlives every Context it creates.
type Runtime struct {
	cfg       api.Config
	maps      *maps.Cache
	engine    hook.Engine
	loader    module.Loader
	journal   mount.Journal
	emitter   *logging.Emitter
	logger    *slog.Logger
	unmounter *mount.Unmounter
	opts      Options

	mu              sync.Mutex
	traces          []mount.Trace
	unmounted       bool
	spoofMaps       bool
	residentModules int
}

// NewRuntime validates the config, fills defaults and takes the first map
// snapshot. Journals named in the config are opened here.
func NewRuntime(opts Options) (*Runtime, error) {
	cfg := opts.Config
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, errx.Wrap(ErrInvalidConfig, err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger

	if opts.Maps == nil {
		opts.Maps = maps.NewCache(maps.ProcSource(cfg.ProcRoot, 0), logger)
	}
	if opts.Engine == nil {
		logger.Warn("no patch engine configured, hooks are planned but not applied")
		opts.Engine = hook.NewPlanner()
	}
	if opts.Loader == nil {
		opts.Loader = module.ChainLoader{module.StaticLoader{}, module.PluginLoader{}}
	}
	if opts.Journal == nil && cfg.TraceDBPath != "" {
		j, err := mount.OpenSQLiteJournal(cfg.TraceDBPath)
		if err != nil {
			return nil, errx.Wrap(ErrOpenJournal, err)
		}
		opts.Journal = j
	}
	if opts.Emitter == nil && cfg.JournalPath != "" {
		w, err := logging.NewJSONLWriter(cfg.JournalPath)
		if err != nil {
			if opts.Journal != nil {
				opts.Journal.Close()
			}
			return nil, errx.Wrap(ErrOpenJournal, err)
		}
		opts.Emitter = logging.NewEmitter(logging.EmitterConfig{Host: version.Host()}, w)
	}
	if opts.Dial == nil {
		opts.Dial = func(invocation string) daemon.Client {
			return daemon.NewSocketClient(cfg.DaemonSocket, cfg.DaemonTimeout, invocation, logger)
		}
	}
	if opts.Namespaces == nil {
		opts.Namespaces = func(source mount.NamespaceSource) NamespaceSwitcher {
			return mount.NewManager(source, logger)
		}
	}
	if opts.Fork == nil {
		opts.Fork = forkx.Fork
	}
	if opts.Unblock == nil {
		opts.Unblock = forkx.UnblockSIGCHLD
	}
	if opts.Setenv == nil {
		opts.Setenv = os.Setenv
	}
	if opts.StatUID == nil {
		opts.StatUID = statUID
	}
	if opts.Scrub == nil {
		memPath := filepath.Join(cfg.ProcRoot, "self", "mem")
		opts.Scrub = func(region maps.Region, needle []byte) (int, error) {
			return maps.ScrubRegion(memPath, region, needle)
		}
	}
	if opts.CloseFd == nil {
		opts.CloseFd = unix.Close
	}
	if opts.Getpid == nil {
		opts.Getpid = os.Getpid
	}
	if opts.NewInvoke == nil {
		opts.NewInvoke = func() string { return uuid.NewString() }
	}

	rt := &Runtime{
		cfg:       cfg,
		maps:      opts.Maps,
		engine:    opts.Engine,
		loader:    opts.Loader,
		journal:   opts.Journal,
		emitter:   opts.Emitter,
		logger:    logger.With("component", "specialize"),
		unmounter: mount.NewUnmounter(opts.Unmount, logger),
		opts:      opts,
	}
	_ = rt.maps.Refresh()
	return rt, nil
}

func statUID(path string) (int, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return -1, err
	}
	return int(st.Uid), nil
}

// Config returns the normalized config.
func (r *Runtime) Config() api.Config {
	return r.cfg
}

// Maps returns the process-wide memory map cache.
func (r *Runtime) Maps() *maps.Cache {
	return r.maps
}

// PendingTraces returns the zygote mounts still waiting to be removed.
func (r *Runtime) PendingTraces() []mount.Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mount.Trace(nil), r.traces...)
}

// ZygoteUnmounted reports whether every zygote trace has been removed.
func (r *Runtime) ZygoteUnmounted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unmounted
}

// ShouldSpoofMaps reports whether modules stayed resident in the last
// specialized application, so its memory maps need hiding.
func (r *Runtime) ShouldSpoofMaps() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spoofMaps
}

// ResidentModules returns how many modules stayed loaded after the last
// post-specialization.
func (r *Runtime) ResidentModules() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.residentModules
}

// NewContext starts one invocation. ctx bounds every daemon request the
// invocation makes.
func (r *Runtime) NewContext(ctx context.Context, env api.Env) *Context {
	id := r.opts.NewInvoke()
	c := &Context{
		ctx:    ctx,
		rt:     r,
		env:    env,
		id:     id,
		client: r.opts.Dial(id),
		role:   forkx.Child,
		pid:    -1,
		logger: r.logger.With("invocation", id),
		events: r.emitter.With(id, ""),
	}
	c.fds = fdtrack.NewTracker(fdtrack.Options{
		ProcRoot: r.cfg.ProcRoot,
		Lister:   r.opts.FdLister,
		Close:    r.opts.CloseFd,
		Logger:   c.logger,
	})
	c.hooks = hook.NewRegistry(r.engine, r.maps, c.logger)
	return c
}

// Close releases the journals.
func (r *Runtime) Close() error {
	var firstErr error
	if r.journal != nil {
		firstErr = r.journal.Close()
	}
	if err := r.emitter.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// zygoteUnmount removes root-solution mounts from the spawning service
// itself before it forks an application. Traces that fail to unmount are
// kept and retried by later invocations. fetchFlags is only called while
// unmounting is still pending.
func (r *Runtime) zygoteUnmount(c *Context, fetchFlags func() api.ProcessFlags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unmounted {
		return
	}
	flags := fetchFlags()
	if len(r.traces) == 0 {
		traces, err := mount.ReadTraces(r.cfg.ProcRoot, 0, flags)
		if err != nil {
			c.logger.Warn("collect zygote traces failed", "error", err)
			return
		}
		r.traces = traces
	}

	if abort, reason := mount.ShouldAbortUnmount(r.traces, flags, r.cfg.UnmountGuard); abort {
		c.logger.Info("abort unmounting zygote", "reason", reason)
		return
	}

	remaining, outcomes := r.unmounter.Unmount(r.traces)
	for _, o := range outcomes {
		c.recordUnmount(o)
	}
	r.traces = remaining
	r.unmounted = len(remaining) == 0
}

func (r *Runtime) recordModules(app bool, loaded, unloaded int) {
	if loaded == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.residentModules = loaded - unloaded
	r.spoofMaps = app && r.residentModules > 0
}
