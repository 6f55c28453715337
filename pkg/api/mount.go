package api

import "fmt"

// MountNamespace selects which namespace handle to request from the daemon.
type MountNamespace uint8

const (
	// MountNamespaceClean has all root and module mounts removed.
	MountNamespaceClean MountNamespace = iota
	// MountNamespaceRoot is the namespace the spawning service started in.
	MountNamespaceRoot
)

func (n MountNamespace) String() string {
	switch n {
	case MountNamespaceClean:
		return "clean"
	case MountNamespaceRoot:
		return "root"
	default:
		return fmt.Sprintf("namespace(%d)", uint8(n))
	}
}

// UnmountGuard holds the path literals of the zygote unmount workaround for
// resource overlays on /product.
type UnmountGuard struct {
	ProtectedPrefix string `json:"protected_prefix" mapstructure:"protected_prefix"`
	AllowedPrefix   string `json:"allowed_prefix" mapstructure:"allowed_prefix"`
}

// DefaultUnmountGuard must not be generalized: the literals come from a
// specific overlay layout.
var DefaultUnmountGuard = UnmountGuard{
	ProtectedPrefix: "/product",
	AllowedPrefix:   "/product/bin",
}
