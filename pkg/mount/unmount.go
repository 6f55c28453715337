package mount

import (
	"log/slog"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
)

// ShouldAbortUnmount reports whether the unmount step must be skipped for
// traces, and why. An empty list aborts. A target under the protected
// prefix but outside the allowed one aborts, except that on Magisk the
// protected prefix itself may go.
func ShouldAbortUnmount(traces []Trace, flags api.ProcessFlags, guard api.UnmountGuard) (bool, string) {
	if len(traces) == 0 {
		return true, "empty trace list"
	}
	magisk := flags.Has(api.ProcessRootIsMagisk)
	for _, t := range traces {
		if !strings.HasPrefix(t.Target, guard.ProtectedPrefix) || strings.HasPrefix(t.Target, guard.AllowedPrefix) {
			continue
		}
		if magisk && t.Target == guard.ProtectedPrefix {
			continue
		}
		return true, "prohibited target " + t.Raw
	}
	return false, ""
}

// Outcome is the result of unmounting one trace.
type Outcome struct {
	Trace Trace
	Err   error
}

// OK reports whether the trace was removed.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Unmounter detaches traces.
type Unmounter struct {
	umount func(target string) error
	logger *slog.Logger
}

// NewUnmounter creates an unmounter. A nil umount detaches with umount2.
func NewUnmounter(umount func(target string) error, logger *slog.Logger) *Unmounter {
	if umount == nil {
		umount = func(target string) error { return unix.Unmount(target, unix.MNT_DETACH) }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Unmounter{umount: umount, logger: logger.With("component", "mount")}
}

// Unmount detaches every trace in order. It returns the traces that could
// not be removed, in their original order, and one outcome per trace.
func (u *Unmounter) Unmount(traces []Trace) (remaining []Trace, outcomes []Outcome) {
	for _, t := range traces {
		u.logger.Debug("unmounting", "target", t.Target, "mnt_id", t.ID)
		var err error
		if uerr := u.umount(t.Target); uerr != nil {
			err = errx.Wrap(ErrUnmount, uerr)
			u.logger.Error("unmount failed", "target", t.Target, "mnt_id", t.ID, "error", uerr)
			remaining = append(remaining, t)
		}
		outcomes = append(outcomes, Outcome{Trace: t, Err: err})
	}
	return remaining, outcomes
}
