package specialize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/zygiskhost/internal/forkx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
	"github.com/jingkaihe/zygiskhost/pkg/daemon"
	"github.com/jingkaihe/zygiskhost/pkg/hook"
	"github.com/jingkaihe/zygiskhost/pkg/logging"
	"github.com/jingkaihe/zygiskhost/pkg/maps"
	"github.com/jingkaihe/zygiskhost/pkg/module"
	"github.com/jingkaihe/zygiskhost/pkg/mount"
)

const sampleMountInfo = `20 1 253:0 / / ro,relatime shared:1 - ext4 /dev/block/dm-0 ro,seclabel
40 20 7:12 / /data/adb/modules rw,relatime shared:2 - ext4 /dev/block/loop12 rw,seclabel
52 20 253:5 /adb/modules/demo/system/etc/hosts /system/etc/hosts ro,relatime shared:3 - ext4 /dev/block/dm-5 rw,seclabel
`

var testRegions = []maps.Region{
	{Start: 0x7000, End: 0x8000, Path: "/apex/com.android.runtime/lib64/bionic/libc.so", Dev: 0xfd01, Inode: 2048, Readable: true, Private: true},
	{Start: 0x9000, End: 0xa000, Path: "/system/lib64/libandroid_runtime.so", Dev: 0xfd01, Inode: 3000, Readable: true, Private: true},
	{Start: 0x10000, End: 0x20000, Path: api.DefaultFossilRegion, Readable: true, Writable: true, Private: true},
}

type fakeClient struct {
	flags         api.ProcessFlags
	modules       []api.ModuleDescriptor
	flagUIDs      []int
	reads         int
	serverStarted int
	cachedPids    []int
	companions    []int
}

func (c *fakeClient) ReadModules(context.Context) ([]api.ModuleDescriptor, error) {
	c.reads++
	return c.modules, nil
}

func (c *fakeClient) GetProcessFlags(_ context.Context, uid int) (api.ProcessFlags, error) {
	c.flagUIDs = append(c.flagUIDs, uid)
	return c.flags, nil
}

func (c *fakeClient) UpdateMountNamespace(context.Context, api.MountNamespace) (string, error) {
	return "/proc/812/fd/9", nil
}

func (c *fakeClient) CacheMountNamespace(_ context.Context, pid int) error {
	c.cachedPids = append(c.cachedPids, pid)
	return nil
}

func (c *fakeClient) SystemServerStarted(context.Context) error {
	c.serverStarted++
	return nil
}

func (c *fakeClient) ConnectCompanion(_ context.Context, id int) (int, error) {
	c.companions = append(c.companions, id)
	return 40 + id, nil
}

func (c *fakeClient) GetModuleDir(_ context.Context, id int) (int, error) {
	return 60 + id, nil
}

type fakeSwitcher struct {
	kinds []api.MountNamespace
}

func (s *fakeSwitcher) Switch(_ context.Context, kind api.MountNamespace) (string, error) {
	s.kinds = append(s.kinds, kind)
	return "/proc/812/fd/9", nil
}

type fakeEnv struct {
	arrays [][]int
}

func (e *fakeEnv) NewIntArray(values []int) ([]int, error) {
	cp := append([]int(nil), values...)
	e.arrays = append(e.arrays, cp)
	return cp, nil
}

func (e *fakeEnv) HookNativeMethods(string, []api.NativeMethod) {}

type entryHandle struct {
	entry module.EntryFunc
}

func (h *entryHandle) Lookup(symbol string) (any, error) {
	if symbol != module.EntryName {
		return nil, errors.New("not found")
	}
	return h.entry, nil
}

func (h *entryHandle) Close() error { return nil }

type entryLoader map[string]module.EntryFunc

func (l entryLoader) Open(desc api.ModuleDescriptor) (module.Handle, error) {
	entry, ok := l[desc.Name]
	if !ok {
		return nil, module.ErrOpenModule
	}
	return &entryHandle{entry: entry}, nil
}

type captureSink struct {
	events []*logging.Event
}

func (s *captureSink) Write(event *logging.Event) error {
	cp := *event
	s.events = append(s.events, &cp)
	return nil
}

func (s *captureSink) Close() error { return nil }

func (s *captureSink) count(eventType string) int {
	n := 0
	for _, e := range s.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

// testModule builds a v5 module whose callbacks get the capability table.
type testModule struct {
	pre        func(tbl *module.Table, args *api.AppSpecializeArgs)
	post       func(tbl *module.Table, args *api.AppSpecializeArgs)
	preServer  func(tbl *module.Table, args *api.ServerSpecializeArgs)
	postServer func(tbl *module.Table, args *api.ServerSpecializeArgs)
}

func (m testModule) entry() module.EntryFunc {
	return func(tbl *module.Table, env api.Env) {
		tbl.RegisterModule(&module.ModuleABI{
			APIVersion: api.APIVersionMax,
			OnLoad:     func(any, api.Env) {},
			PreAppSpecialize: func(_ any, args *api.AppSpecializeArgs) {
				if m.pre != nil {
					m.pre(tbl, args)
				}
			},
			PostAppSpecialize: func(_ any, args *api.AppSpecializeArgs) {
				if m.post != nil {
					m.post(tbl, args)
				}
			},
			PreServerSpecialize: func(_ any, args *api.ServerSpecializeArgs) {
				if m.preServer != nil {
					m.preServer(tbl, args)
				}
			},
			PostServerSpecialize: func(_ any, args *api.ServerSpecializeArgs) {
				if m.postServer != nil {
					m.postServer(tbl, args)
				}
			},
		})
	}
}

type harness struct {
	client   *fakeClient
	switcher *fakeSwitcher
	env      *fakeEnv
	sink     *captureSink
	planner  *hook.Planner
	loader   entryLoader
	procRoot string

	role        forkx.Role
	forks       int
	unblocks    int
	open        map[int]bool
	closed      []int
	unmounts    []string
	failUnmount map[string]int
	setenv      map[string]string
	owners      map[string]int
	scrubs      []maps.Region
	needles     []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "100"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "100", "mountinfo"), []byte(sampleMountInfo), 0644))
	require.NoError(t, os.Symlink("100", filepath.Join(root, "self")))

	return &harness{
		client:      &fakeClient{},
		switcher:    &fakeSwitcher{},
		env:         &fakeEnv{},
		sink:        &captureSink{},
		planner:     hook.NewPlanner(),
		loader:      entryLoader{},
		procRoot:    root,
		role:        forkx.Child,
		open:        map[int]bool{0: true, 1: true, 2: true},
		failUnmount: map[string]int{},
		setenv:      map[string]string{},
		owners:      map[string]int{},
	}
}

func (h *harness) addModule(name string, m testModule) {
	h.loader[name] = m.entry()
	h.client.modules = append(h.client.modules, api.ModuleDescriptor{Name: name, Fd: -1})
}

func (h *harness) runtime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := NewRuntime(Options{
		Config:  api.Config{ProcRoot: h.procRoot},
		Maps:    maps.NewCache(func() ([]maps.Region, error) { return testRegions, nil }, nil),
		Engine:  h.planner,
		Loader:  h.loader,
		Emitter: logging.NewEmitter(logging.EmitterConfig{Host: "test"}, h.sink),
		Dial:    func(string) daemon.Client { return h.client },
		Namespaces: func(mount.NamespaceSource) NamespaceSwitcher {
			return h.switcher
		},
		Fork: func() (forkx.Role, int, error) {
			h.forks++
			if h.role == forkx.Parent {
				return forkx.Parent, 1234, nil
			}
			return forkx.Child, 0, nil
		},
		Unblock: func() error {
			h.unblocks++
			return nil
		},
		Unmount: func(target string) error {
			h.unmounts = append(h.unmounts, target)
			if h.failUnmount[target] > 0 {
				h.failUnmount[target]--
				return errors.New("EBUSY")
			}
			return nil
		},
		Setenv: func(key, value string) error {
			h.setenv[key] = value
			return nil
		},
		StatUID: func(path string) (int, error) {
			if uid, ok := h.owners[path]; ok {
				return uid, nil
			}
			return -1, os.ErrNotExist
		},
		Scrub: func(region maps.Region, needle []byte) (int, error) {
			h.scrubs = append(h.scrubs, region)
			h.needles = append(h.needles, string(needle))
			return 1, nil
		},
		FdLister: func() ([]string, int, error) {
			names := []string{".", ".."}
			for fd := range h.open {
				names = append(names, strconv.Itoa(fd))
			}
			return append(names, "99"), 99, nil
		},
		CloseFd: func(fd int) error {
			delete(h.open, fd)
			h.closed = append(h.closed, fd)
			return nil
		},
		Getpid:    func() int { return 4242 },
		NewInvoke: func() string { return "inv-1" },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func (h *harness) newContext(t *testing.T) *Context {
	return h.runtime(t).NewContext(context.Background(), h.env)
}

func appArgs(uid int) *api.AppSpecializeArgs {
	ignore := []int{2}
	return &api.AppSpecializeArgs{UID: uid, NiceName: "com.example.app", AppDataDir: "/data/user/0/com.example.app", FdsToIgnore: &ignore}
}

func TestContext_ForkAndSpecialize_IsolatedUIDLookup(t *testing.T) {
	h := newHarness(t)
	h.owners["/data/user/0/com.example.app"] = 10200
	c := h.newContext(t)

	c.ForkAndSpecializePre(appArgs(95000))
	c.ForkAndSpecializePost()

	assert.Equal(t, []int{10200}, h.client.flagUIDs, "flags fetched once for the owning uid")
}

func TestContext_ForkAndSpecialize_RegularUIDNotCorrected(t *testing.T) {
	h := newHarness(t)
	h.owners["/data/user/0/com.example.app"] = 10200
	c := h.newContext(t)

	c.ForkAndSpecializePre(appArgs(10123))

	assert.Equal(t, []int{10123}, h.client.flagUIDs)
}

func TestContext_ForkAndSpecialize_ExemptedFdSurvives(t *testing.T) {
	h := newHarness(t)
	var exemptOK, lateExempt bool
	h.addModule("companion", testModule{
		pre: func(tbl *module.Table, args *api.AppSpecializeArgs) {
			h.open[7] = true
			h.open[8] = true
			exemptOK = tbl.ExemptFd(7)
		},
		post: func(tbl *module.Table, args *api.AppSpecializeArgs) {
			lateExempt = tbl.ExemptFd(11)
		},
	})
	c := h.newContext(t)
	args := appArgs(10123)

	c.ForkAndSpecializePre(args)

	assert.True(t, exemptOK)
	assert.Equal(t, []int{2, 7}, *args.FdsToIgnore)
	assert.Equal(t, []int{8}, h.closed)
	assert.True(t, h.open[7])
	assert.Equal(t, 1, h.sink.count(logging.EventFdSanitize))

	c.ForkAndSpecializePost()
	assert.True(t, lateExempt, "exempt after sanitization succeeds without effect")
	assert.Equal(t, []int{2, 7}, *args.FdsToIgnore)
	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, 1, h.unblocks)
}

func TestContext_ExemptFd_WithoutIgnoreList(t *testing.T) {
	h := newHarness(t)
	var ok bool
	h.addModule("companion", testModule{
		pre: func(tbl *module.Table, args *api.AppSpecializeArgs) {
			h.open[7] = true
			ok = tbl.ExemptFd(7)
		},
	})
	c := h.newContext(t)
	args := appArgs(10123)
	args.FdsToIgnore = nil

	c.ForkAndSpecializePre(args)

	assert.False(t, ok)
	assert.Equal(t, []int{7}, h.closed)
}

func TestContext_SpecializeAppProcess(t *testing.T) {
	h := newHarness(t)
	var ok bool
	h.addModule("companion", testModule{
		pre: func(tbl *module.Table, args *api.AppSpecializeArgs) {
			h.open[7] = true
			ok = tbl.ExemptFd(7)
		},
	})
	c := h.newContext(t)
	args := appArgs(10123)

	c.SpecializeAppProcessPre(args)
	c.SpecializeAppProcessPost()

	assert.True(t, ok)
	assert.Zero(t, h.forks)
	assert.Empty(t, h.closed, "no sanitization on the pure specialize path")
	assert.Equal(t, []int{2}, *args.FdsToIgnore)
	assert.True(t, c.Flags().Has(FlagSkipCloseLogPipe|FlagAppSpecialize|FlagPostSpecialize))
	assert.Empty(t, h.unmounts, "zygote unmount only runs before a fork")
	assert.Equal(t, -1, c.ForkedPid())
}

func TestContext_ForkAndSpecialize_Parent(t *testing.T) {
	h := newHarness(t)
	h.role = forkx.Parent
	h.addModule("never", testModule{})
	c := h.newContext(t)

	c.ForkAndSpecializePre(appArgs(10123))

	assert.False(t, c.IsChild())
	assert.Equal(t, 1234, c.ForkedPid())
	assert.Equal(t, StateParent, c.State())
	assert.Zero(t, h.client.reads, "modules load only in the child")
	assert.Empty(t, h.closed)

	c.ForkAndSpecializePost()
	assert.Equal(t, 1, h.unblocks)
}

func TestContext_NamespacePolicy(t *testing.T) {
	tests := []struct {
		name  string
		flags api.ProcessFlags
		force bool
		want  []api.MountNamespace
	}{
		{"denylisted", api.ProcessOnDenylist, false, []api.MountNamespace{api.MountNamespaceClean}},
		{"denylisted with root", api.ProcessOnDenylist | api.ProcessGrantedRoot, false, []api.MountNamespace{api.MountNamespaceClean}},
		{"granted root", api.ProcessGrantedRoot, false, []api.MountNamespace{api.MountNamespaceRoot}},
		{"forced by module", api.ProcessGrantedRoot, true, []api.MountNamespace{api.MountNamespaceClean}},
		{"plain app", 0, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.client.flags = tt.flags
			h.addModule("policy", testModule{
				pre: func(tbl *module.Table, args *api.AppSpecializeArgs) {
					if tt.force {
						tbl.SetOption(api.OptionForceDenylistUnmount)
					}
				},
			})
			c := h.newContext(t)

			c.SpecializeAppProcessPre(appArgs(10123))

			assert.Equal(t, tt.want, h.switcher.kinds)
			assert.Equal(t, len(tt.want), h.sink.count(logging.EventNamespaceSwitch))
		})
	}
}

func TestContext_ManagerMarker(t *testing.T) {
	h := newHarness(t)
	h.client.flags = api.ProcessIsManager | api.ProcessGrantedRoot | api.ProcessRootIsMagisk
	var seen api.ProcessFlags
	h.addModule("flags", testModule{
		pre: func(tbl *module.Table, args *api.AppSpecializeArgs) {
			seen = tbl.GetFlags()
		},
	})
	c := h.newContext(t)

	c.ForkAndSpecializePre(appArgs(10123))
	assert.Empty(t, h.setenv, "marker is set after specialization")
	c.ForkAndSpecializePost()

	assert.Equal(t, "1", h.setenv[api.ManagerEnvMarker])
	assert.Equal(t, api.ProcessGrantedRoot, seen, "private bits hidden from modules")
}

func TestContext_ZygoteUnmount_RetriesFailures(t *testing.T) {
	h := newHarness(t)
	h.failUnmount["/system/etc/hosts"] = 1
	rt := h.runtime(t)

	first := rt.NewContext(context.Background(), h.env)
	first.ForkAndSpecializePre(appArgs(10123))

	assert.Equal(t, []string{"/system/etc/hosts", "/data/adb/modules"}, h.unmounts)
	assert.False(t, rt.ZygoteUnmounted())
	require.Len(t, rt.PendingTraces(), 1)
	assert.Equal(t, "/system/etc/hosts", rt.PendingTraces()[0].Target)
	assert.Equal(t, 2, h.sink.count(logging.EventUnmount))

	second := rt.NewContext(context.Background(), h.env)
	second.ForkAndSpecializePre(appArgs(10124))

	assert.Equal(t, []string{"/system/etc/hosts", "/data/adb/modules", "/system/etc/hosts"}, h.unmounts)
	assert.True(t, rt.ZygoteUnmounted())
	assert.Empty(t, rt.PendingTraces())

	third := rt.NewContext(context.Background(), h.env)
	third.ForkAndSpecializePre(appArgs(10125))
	assert.Len(t, h.unmounts, 3, "no further unmounts once clean")
}

func TestContext_ZygoteUnmount_AbortsOnProductOverlay(t *testing.T) {
	h := newHarness(t)
	overlay := sampleMountInfo + "61 20 253:5 /adb/modules/demo/product/overlay /product/overlay ro,relatime shared:4 - ext4 /dev/block/dm-5 rw,seclabel\n"
	require.NoError(t, os.WriteFile(filepath.Join(h.procRoot, "100", "mountinfo"), []byte(overlay), 0644))
	rt := h.runtime(t)

	rt.NewContext(context.Background(), h.env).ForkAndSpecializePre(appArgs(10123))

	assert.Empty(t, h.unmounts)
	assert.False(t, rt.ZygoteUnmounted())
	assert.Len(t, rt.PendingTraces(), 3)
}

func TestContext_ForkSystemServer(t *testing.T) {
	h := newHarness(t)
	var preUID, posts int
	h.addModule("server", testModule{
		preServer: func(tbl *module.Table, args *api.ServerSpecializeArgs) {
			preUID = args.UID
		},
		postServer: func(tbl *module.Table, args *api.ServerSpecializeArgs) {
			posts++
		},
	})
	rt := h.runtime(t)
	c := rt.NewContext(context.Background(), h.env)

	c.ForkSystemServerPre(&api.ServerSpecializeArgs{UID: 1000})

	require.Len(t, h.scrubs, 1)
	assert.Equal(t, api.DefaultFossilRegion, h.scrubs[0].Path)
	assert.Equal(t, []string{api.DefaultFossilNeedle}, h.needles)
	assert.Equal(t, 1000, preUID)
	assert.Equal(t, 1, h.client.serverStarted)
	assert.Equal(t, []int{4242}, h.client.cachedPids)
	assert.Empty(t, h.client.flagUIDs, "system service is never classified")
	assert.Empty(t, h.unmounts)

	c.ForkSystemServerPost()
	assert.Equal(t, 1, posts)
	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, 1, h.unblocks)
	assert.Equal(t, 1, rt.ResidentModules())
	assert.False(t, rt.ShouldSpoofMaps(), "only application processes need map hiding")
}

func TestContext_ModuleUnloadClearsTraces(t *testing.T) {
	tests := []struct {
		name     string
		dlclose  bool
		resident int
		spoof    bool
	}{
		{"resident module", false, 1, true},
		{"unloaded module", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			var table *module.Table
			h.addModule("unload", testModule{
				pre: func(tbl *module.Table, args *api.AppSpecializeArgs) {
					table = tbl
					if tt.dlclose {
						tbl.SetOption(api.OptionDlcloseModuleLibrary)
					}
				},
			})
			rt := h.runtime(t)
			c := rt.NewContext(context.Background(), h.env)

			c.ForkAndSpecializePre(appArgs(10123))
			c.ForkAndSpecializePost()

			assert.Equal(t, tt.resident, rt.ResidentModules())
			assert.Equal(t, tt.spoof, rt.ShouldSpoofMaps())
			assert.Equal(t, 1, h.sink.count(logging.EventModuleUnload))

			require.NotNil(t, table)
			if tt.dlclose {
				assert.Nil(t, c.host, "host forgotten once every module is gone")
				assert.True(t, table.Revoked())
				assert.Nil(t, table.ConnectCompanion)
				assert.Nil(t, table.PLTHookCommit)
				assert.Nil(t, table.ExemptFd)
			} else {
				require.NotNil(t, c.host)
				assert.Len(t, c.host.Modules(), 1)
				assert.False(t, table.Revoked())
			}
		})
	}
}

func TestContext_PLTHookCommit(t *testing.T) {
	h := newHarness(t)
	var backup uintptr
	var committed bool
	h.addModule("hooks", testModule{
		pre: func(tbl *module.Table, args *api.AppSpecializeArgs) {
			tbl.PLTHookRegister(`.*/libc\.so$`, "open", 0x1234, &backup)
			tbl.PLTHookRegister(`(`, "open", 0x1234, &backup)
			committed = tbl.PLTHookCommit()
		},
	})
	c := h.newContext(t)

	c.ForkAndSpecializePre(appArgs(10123))

	assert.True(t, committed)
	patches := h.planner.Committed()
	require.Len(t, patches, 1)
	assert.Equal(t, hook.Key{Dev: 0xfd01, Inode: 2048, Symbol: "open"}, patches[0].Key)
	assert.Equal(t, 1, h.sink.count(logging.EventHookCommit))
}

func TestContext_CompanionAndModuleDir(t *testing.T) {
	h := newHarness(t)
	var companion, dir int
	h.addModule("first", testModule{})
	h.addModule("second", testModule{
		pre: func(tbl *module.Table, args *api.AppSpecializeArgs) {
			companion, _ = tbl.ConnectCompanion()
			dir, _ = tbl.GetModuleDir()
		},
	})
	c := h.newContext(t)

	c.ForkAndSpecializePre(appArgs(10123))

	assert.Equal(t, []int{1}, h.client.companions)
	assert.Equal(t, 41, companion)
	assert.Equal(t, 61, dir)
}

func TestContext_EventsCarryInvocation(t *testing.T) {
	h := newHarness(t)
	h.addModule("first", testModule{})
	c := h.newContext(t)

	c.ForkAndSpecializePre(appArgs(10123))
	c.ForkAndSpecializePost()

	require.NotEmpty(t, h.sink.events)
	types := make([]string, 0, len(h.sink.events))
	for _, e := range h.sink.events {
		assert.Equal(t, "inv-1", e.Invocation)
		types = append(types, e.EventType)
	}
	sort.Strings(types)
	assert.Contains(t, types, logging.EventModuleLoad)
	assert.Contains(t, types, logging.EventSpecialize)
	assert.Equal(t, "inv-1", c.ID())
}

func TestContext_ForkAndSpecialize_ParentFetchesFlagsOnlyWhileUnmountPending(t *testing.T) {
	h := newHarness(t)
	h.role = forkx.Parent
	h.owners["/data/user/0/com.example.app"] = 10200
	rt := h.runtime(t)

	rt.NewContext(context.Background(), h.env).ForkAndSpecializePre(appArgs(95000))
	require.True(t, rt.ZygoteUnmounted())
	assert.Equal(t, []int{10200}, h.client.flagUIDs)

	second := rt.NewContext(context.Background(), h.env)
	second.ForkAndSpecializePre(appArgs(95001))
	second.ForkAndSpecializePost()

	assert.Equal(t, []int{10200}, h.client.flagUIDs, "no classification once the zygote is clean")
	assert.Zero(t, second.ProcessFlags())
}

func TestContext_TwoModulesHookLibc_ExclusionVetoesBoth(t *testing.T) {
	h := newHarness(t)
	var backupA, backupRuntime, backupB uintptr
	var committed bool
	h.addModule("a", testModule{
		pre: func(tbl *module.Table, args *api.AppSpecializeArgs) {
			tbl.PLTHookRegister(`.*libc\.so$`, "open", 0xa001, &backupA)
			tbl.PLTHookRegister(`.*libandroid_runtime\.so$`, "open", 0xa002, &backupRuntime)
		},
	})
	h.addModule("b", testModule{
		pre: func(tbl *module.Table, args *api.AppSpecializeArgs) {
			tbl.PLTHookRegister(`.*libc\.so$`, "open", 0xb001, &backupB)
			tbl.PLTHookExclude(`.*libc\.so$`, "")
			committed = tbl.PLTHookCommit()
		},
	})
	c := h.newContext(t)

	c.ForkAndSpecializePre(appArgs(10123))

	assert.True(t, committed)
	patches := h.planner.Committed()
	require.Len(t, patches, 1, "neither libc hook survives the exclusion")
	assert.Equal(t, hook.Key{Dev: 0xfd01, Inode: 3000, Symbol: "open"}, patches[0].Key)
	assert.Equal(t, uintptr(0xa002), patches[0].Fn)
	assert.Same(t, &backupRuntime, patches[0].Backup)
	assert.Equal(t, []string{"/system/lib64/libandroid_runtime.so"}, patches[0].Paths)
}
