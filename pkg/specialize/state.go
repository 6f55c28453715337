package specialize

import (
	"fmt"
	"strings"
)

// State is the position of a Context in its invocation.
type State int

const (
	StateCreated State = iota
	StateForkPending
	StateParent
	StateChildPreSpecialize
	StateChildModulesLoaded
	StateChildSpecializing
	StateChildPostSpecialize
	StateDone
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateForkPending:
		return "fork_pending"
	case StateParent:
		return "parent"
	case StateChildPreSpecialize:
		return "child_pre_specialize"
	case StateChildModulesLoaded:
		return "child_modules_loaded"
	case StateChildSpecializing:
		return "child_specializing"
	case StateChildPostSpecialize:
		return "child_post_specialize"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Flags are the role bits of one invocation. They are only ever added.
type Flags uint32

const (
	FlagAppSpecialize Flags = 1 << iota
	FlagAppForkAndSpecialize
	FlagServerForkAndSpecialize
	FlagPostSpecialize
	FlagSkipCloseLogPipe
	FlagDoRevertUnmount
)

func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}

func (f Flags) String() string {
	names := []struct {
		bit  Flags
		name string
	}{
		{FlagAppSpecialize, "app_specialize"},
		{FlagAppForkAndSpecialize, "app_fork_and_specialize"},
		{FlagServerForkAndSpecialize, "server_fork_and_specialize"},
		{FlagPostSpecialize, "post_specialize"},
		{FlagSkipCloseLogPipe, "skip_close_log_pipe"},
		{FlagDoRevertUnmount, "do_revert_unmount"},
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
