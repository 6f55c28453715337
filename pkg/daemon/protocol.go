package daemon

import (
	"fmt"

	"github.com/jingkaihe/zygiskhost/pkg/api"
)

// OpCode selects the daemon action of a request.
type OpCode uint8

const (
	OpReadModules OpCode = iota + 1
	OpGetProcessFlags
	OpUpdateMountNamespace
	OpCacheMountNamespace
	OpSystemServerStarted
	OpConnectCompanion
	OpGetModuleDir
)

func (o OpCode) String() string {
	switch o {
	case OpReadModules:
		return "read_modules"
	case OpGetProcessFlags:
		return "get_process_flags"
	case OpUpdateMountNamespace:
		return "update_mount_namespace"
	case OpCacheMountNamespace:
		return "cache_mount_namespace"
	case OpSystemServerStarted:
		return "system_server_started"
	case OpConnectCompanion:
		return "connect_companion"
	case OpGetModuleDir:
		return "get_module_dir"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Request is one packet sent to the daemon.
type Request struct {
	Op         OpCode             `cbor:"op"`
	Invocation string             `cbor:"inv"`
	UID        int                `cbor:"uid,omitempty"`
	PID        int                `cbor:"pid,omitempty"`
	Namespace  api.MountNamespace `cbor:"ns,omitempty"`
	ModuleID   int                `cbor:"mod,omitempty"`
}

// Response is the daemon's single reply packet. Descriptors travel as
// SCM_RIGHTS ancillary data next to it.
type Response struct {
	OK      bool          `cbor:"ok"`
	Error   string        `cbor:"err,omitempty"`
	Flags   uint32        `cbor:"flags,omitempty"`
	Path    string        `cbor:"path,omitempty"`
	Modules []ModuleEntry `cbor:"modules,omitempty"`
}

// ModuleEntry names one module in a read_modules response. When the reply
// carries one descriptor per entry, descriptor i belongs to entry i.
type ModuleEntry struct {
	Name string `cbor:"name"`
	Path string `cbor:"path,omitempty"`
}
