// Package fdtrack records which descriptors a forked child may keep and
// closes the rest before control returns to the bridge.
package fdtrack

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/sys/unix"

	"github.com/jingkaihe/zygiskhost/internal/errx"
)

// Lister returns the names in the process descriptor directory together
// with the descriptor number used to read it. That descriptor is closed
// again by the time Lister returns.
type Lister func() (names []string, scanFd int, err error)

// DirLister lists dir, normally /proc/self/fd.
func DirLister(dir string) Lister {
	return func() ([]string, int, error) {
		f, err := os.Open(dir)
		if err != nil {
			return nil, -1, err
		}
		defer f.Close()
		scanFd := int(f.Fd())
		names, err := f.Readdirnames(-1)
		if err != nil {
			return nil, scanFd, err
		}
		return names, scanFd, nil
	}
}

// Options configures a Tracker. Zero fields use the live process.
type Options struct {
	ProcRoot string
	Lister   Lister
	Close    func(fd int) error
	Logger   *slog.Logger
}

// Tracker is the allowed-descriptor set of one specialization.
type Tracker struct {
	allowed *bitset.BitSet
	list    Lister
	closeFd func(int) error
	logger  *slog.Logger
}

// NewTracker creates a tracker with an empty allowed set.
func NewTracker(opts Options) *Tracker {
	if opts.ProcRoot == "" {
		opts.ProcRoot = "/proc"
	}
	if opts.Lister == nil {
		opts.Lister = DirLister(filepath.Join(opts.ProcRoot, "self", "fd"))
	}
	if opts.Close == nil {
		opts.Close = unix.Close
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Tracker{
		allowed: bitset.New(1024),
		list:    opts.Lister,
		closeFd: opts.Close,
		logger:  opts.Logger.With("component", "fdtrack"),
	}
}

// RecordOpen marks every descriptor currently open as allowed, except the
// one used for the scan.
func (t *Tracker) RecordOpen() error {
	fds, scanFd, err := t.listFds()
	if err != nil {
		return err
	}
	for _, fd := range fds {
		if fd == scanFd {
			continue
		}
		t.allowed.Set(uint(fd))
	}
	return nil
}

// Allow marks fd as allowed.
func (t *Tracker) Allow(fd int) error {
	if fd < 0 {
		return errx.With(ErrInvalidFd, ": %d", fd)
	}
	t.allowed.Set(uint(fd))
	return nil
}

// Allowed reports whether fd is in the allowed set.
func (t *Tracker) Allowed(fd int) bool {
	return fd >= 0 && t.allowed.Test(uint(fd))
}

// Sanitize closes every listed descriptor that is not allowed and returns
// the closed descriptors in ascending order. Close failures are logged.
func (t *Tracker) Sanitize() ([]int, error) {
	fds, scanFd, err := t.listFds()
	if err != nil {
		return nil, err
	}
	var closed []int
	for _, fd := range fds {
		if fd == scanFd || t.Allowed(fd) {
			continue
		}
		if err := t.closeFd(fd); err != nil {
			t.logger.Warn("close descriptor failed", "fd", fd, "error", err)
			continue
		}
		closed = append(closed, fd)
	}
	if len(closed) > 0 {
		t.logger.Debug("closed stray descriptors", "fds", closed)
	}
	return closed, nil
}

func (t *Tracker) listFds() ([]int, int, error) {
	names, scanFd, err := t.list()
	if err != nil {
		return nil, -1, errx.Wrap(ErrListFds, err)
	}
	fds := make([]int, 0, len(names))
	for _, name := range names {
		fd, err := strconv.Atoi(name)
		if err != nil || fd < 0 {
			continue
		}
		fds = append(fds, fd)
	}
	sort.Ints(fds)
	return fds, scanFd, nil
}
