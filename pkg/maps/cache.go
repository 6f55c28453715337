// Package maps keeps a process-wide snapshot of the memory map. Hook
// commits and fossil scrubbing read the snapshot instead of parsing
// /proc/self/maps each time.
package maps

import (
	"log/slog"
	"sync"

	"github.com/prometheus/procfs"

	"github.com/jingkaihe/zygiskhost/internal/errx"
)

// Region is one line of a memory map.
type Region struct {
	Start      uintptr
	End        uintptr
	Readable   bool
	Writable   bool
	Executable bool
	Private    bool
	Offset     int64
	Dev        uint64
	Inode      uint64
	Path       string
}

// HookEligible reports whether the region can carry PLT patches: the first
// mapping of a file, private and readable.
func (r Region) HookEligible() bool {
	return r.Offset == 0 && r.Private && r.Readable
}

// Anonymous reports whether the region has no backing file.
func (r Region) Anonymous() bool {
	return r.Dev == 0 && r.Inode == 0
}

// Size returns the region length in bytes.
func (r Region) Size() uintptr {
	return r.End - r.Start
}

// Source produces a fresh list of regions.
type Source func() ([]Region, error)

// ProcSource reads the maps of pid under procRoot. pid <= 0 means the
// calling process.
func ProcSource(procRoot string, pid int) Source {
	return func() ([]Region, error) {
		fs, err := procfs.NewFS(procRoot)
		if err != nil {
			return nil, errx.Wrap(ErrOpenProcFS, err)
		}
		var proc procfs.Proc
		if pid <= 0 {
			proc, err = fs.Self()
		} else {
			proc, err = fs.Proc(pid)
		}
		if err != nil {
			return nil, errx.Wrap(ErrOpenProcFS, err)
		}
		entries, err := proc.ProcMaps()
		if err != nil {
			return nil, errx.Wrap(ErrReadMaps, err)
		}
		regions := make([]Region, 0, len(entries))
		for _, e := range entries {
			r := Region{
				Start:  e.StartAddr,
				End:    e.EndAddr,
				Offset: e.Offset,
				Dev:    e.Dev,
				Inode:  e.Inode,
				Path:   e.Pathname,
			}
			if e.Perms != nil {
				r.Readable = e.Perms.Read
				r.Writable = e.Perms.Write
				r.Executable = e.Perms.Execute
				r.Private = e.Perms.Private
			}
			regions = append(regions, r)
		}
		return regions, nil
	}
}

// Cache holds the last snapshot read from its source.
type Cache struct {
	mu      sync.RWMutex
	source  Source
	regions []Region
	logger  *slog.Logger
}

// NewCache creates an empty cache. Call Refresh to populate it.
func NewCache(source Source, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		source: source,
		logger: logger.With("component", "maps"),
	}
}

// Refresh replaces the snapshot. On error the previous snapshot is kept.
func (c *Cache) Refresh() error {
	regions, err := c.source()
	if err != nil {
		c.logger.Warn("refresh memory maps failed", "error", err)
		return err
	}
	c.mu.Lock()
	c.regions = regions
	c.mu.Unlock()
	c.logger.Debug("memory maps refreshed", "regions", len(regions))
	return nil
}

// Snapshot returns a copy of the cached regions.
func (c *Cache) Snapshot() []Region {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	return out
}

// Find returns the first cached region matching pred.
func (c *Cache) Find(pred func(Region) bool) (Region, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.regions {
		if pred(r) {
			return r, true
		}
	}
	return Region{}, false
}

// Len returns the number of cached regions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.regions)
}
