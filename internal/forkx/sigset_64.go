//go:build linux && (amd64 || arm64 || riscv64 || loong64 || mips64 || mips64le || ppc64 || ppc64le || s390x)

package forkx

import "golang.org/x/sys/unix"

func sigaddset(set *unix.Sigset_t, sig unix.Signal) {
	n := uint(sig) - 1
	set.Val[n/64] |= 1 << (n % 64)
}
