//go:build linux && (386 || arm || mips || mipsle)

package forkx

import "golang.org/x/sys/unix"

func sigaddset(set *unix.Sigset_t, sig unix.Signal) {
	n := uint(sig) - 1
	set.Val[n/32] |= 1 << (n % 32)
}
