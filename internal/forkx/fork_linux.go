//go:build linux

package forkx

import (
	"syscall"
	_ "unsafe"

	"golang.org/x/sys/unix"

	"github.com/jingkaihe/zygiskhost/internal/errx"
)

//go:linkname beforeFork syscall.runtime_BeforeFork
func beforeFork()

//go:linkname afterFork syscall.runtime_AfterFork
func afterFork()

// Fork clones the calling process. SIGCHLD is blocked across the clone and
// unblocked again on both sides as soon as it returns, so a handler installed
// later cannot reap a child nobody expects yet.
//
// The child keeps running Go code with a single OS thread. Callers must keep
// the child's work short and synchronous until it execs or specializes.
func Fork() (Role, int, error) {
	if err := maskSIGCHLD(unix.SIG_BLOCK); err != nil {
		return Parent, -1, errx.Wrap(ErrSigmask, err)
	}

	syscall.ForkLock.Lock()
	beforeFork()
	pid, _, errno := unix.RawSyscall6(unix.SYS_CLONE, uintptr(unix.SIGCHLD), 0, 0, 0, 0, 0)
	afterFork()
	syscall.ForkLock.Unlock()

	unmaskErr := maskSIGCHLD(unix.SIG_UNBLOCK)
	if errno != 0 {
		return Parent, -1, errx.Wrap(ErrFork, errno)
	}
	role := Parent
	if pid == 0 {
		role = Child
	}
	if unmaskErr != nil {
		return role, int(pid), errx.Wrap(ErrSigmask, unmaskErr)
	}
	return role, int(pid), nil
}

func maskSIGCHLD(how int) error {
	var set unix.Sigset_t
	sigaddset(&set, unix.SIGCHLD)
	return unix.PthreadSigmask(how, &set, nil)
}

// UnblockSIGCHLD removes SIGCHLD from the calling thread's signal mask.
func UnblockSIGCHLD() error {
	if err := maskSIGCHLD(unix.SIG_UNBLOCK); err != nil {
		return errx.Wrap(ErrSigmask, err)
	}
	return nil
}
