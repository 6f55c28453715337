package api

import "strings"

// ProcessFlags is the classification the daemon reports for a uid.
type ProcessFlags uint32

const (
	ProcessGrantedRoot  ProcessFlags = 1 << 0
	ProcessOnDenylist   ProcessFlags = 1 << 1
	ProcessIsManager    ProcessFlags = 1 << 27
	ProcessRootIsAPatch ProcessFlags = 1 << 28
	ProcessRootIsKSU    ProcessFlags = 1 << 29
	ProcessRootIsMagisk ProcessFlags = 1 << 30
)

const (
	// UnmountMask must be fully set for a process to count as denylisted.
	UnmountMask = ProcessOnDenylist

	// PrivateMask bits are never shown to modules.
	PrivateMask = ProcessIsManager | ProcessRootIsAPatch | ProcessRootIsKSU | ProcessRootIsMagisk
)

// Has reports whether every bit of mask is set.
func (f ProcessFlags) Has(mask ProcessFlags) bool {
	return f&mask == mask
}

// Public strips the bits modules must not see.
func (f ProcessFlags) Public() ProcessFlags {
	return f &^ PrivateMask
}

// RootImplementation names the root solution encoded in the flags, or "" if
// none is set.
func (f ProcessFlags) RootImplementation() string {
	switch {
	case f.Has(ProcessRootIsMagisk):
		return RootMagisk
	case f.Has(ProcessRootIsKSU):
		return RootKernelSU
	case f.Has(ProcessRootIsAPatch):
		return RootAPatch
	default:
		return ""
	}
}

func (f ProcessFlags) String() string {
	names := []struct {
		bit  ProcessFlags
		name string
	}{
		{ProcessGrantedRoot, "granted_root"},
		{ProcessOnDenylist, "on_denylist"},
		{ProcessIsManager, "is_manager"},
		{ProcessRootIsAPatch, "root_apatch"},
		{ProcessRootIsKSU, "root_ksu"},
		{ProcessRootIsMagisk, "root_magisk"},
	}
	var parts []string
	for _, n := range names {
		if f.Has(n.bit) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Root implementation names as they appear as mount sources.
const (
	RootMagisk   = "magisk"
	RootKernelSU = "KSU"
	RootAPatch   = "APatch"
)

// ParseRootImplementation maps a user-supplied name to its flag bit.
func ParseRootImplementation(name string) (ProcessFlags, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "magisk":
		return ProcessRootIsMagisk, true
	case "ksu", "kernelsu":
		return ProcessRootIsKSU, true
	case "apatch":
		return ProcessRootIsAPatch, true
	case "", "none":
		return 0, true
	default:
		return 0, false
	}
}
