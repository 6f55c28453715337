package api

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jingkaihe/zygiskhost/internal/errx"
)

const (
	// Isolated service uid range, inclusive.
	IsolatedUIDStart = 90000
	IsolatedUIDEnd   = 99999

	DefaultProcRoot      = "/proc"
	DefaultDaemonDir     = "/data/adb/zygiskhost"
	DefaultDaemonTimeout = 3 * time.Second

	// DefaultFossilRegion is the anonymous mapping holding the main thread's
	// stack and TLS in the spawning service.
	DefaultFossilRegion = "[anon:stack_and_tls:main]"
	// DefaultFossilNeedle is left behind on that stack by profile loading.
	DefaultFossilNeedle = "ref_profiles"

	// ManagerEnvMarker is set to "1" inside the trusted manager process.
	ManagerEnvMarker = "ZYGISK_ENABLED"
)

// Config holds runtime settings. Zero values are replaced by defaults in
// Normalize.
type Config struct {
	DaemonSocket     string        `json:"daemon_socket,omitempty" mapstructure:"daemon_socket"`
	DaemonTimeout    time.Duration `json:"daemon_timeout,omitempty" mapstructure:"daemon_timeout"`
	ProcRoot         string        `json:"proc_root,omitempty" mapstructure:"proc_root"`
	IsolatedUIDStart int           `json:"isolated_uid_start,omitempty" mapstructure:"isolated_uid_start"`
	IsolatedUIDEnd   int           `json:"isolated_uid_end,omitempty" mapstructure:"isolated_uid_end"`
	UnmountGuard     UnmountGuard  `json:"unmount_guard" mapstructure:"unmount_guard"`
	FossilRegion     string        `json:"fossil_region,omitempty" mapstructure:"fossil_region"`
	FossilNeedle     string        `json:"fossil_needle,omitempty" mapstructure:"fossil_needle"`

	// JournalPath enables the JSON-L event journal when set.
	JournalPath string `json:"journal_path,omitempty" mapstructure:"journal_path"`
	// TraceDBPath enables the sqlite unmount journal when set.
	TraceDBPath string `json:"trace_db_path,omitempty" mapstructure:"trace_db_path"`
}

// DefaultConfig returns a config with every field set to its default.
func DefaultConfig() Config {
	var c Config
	c.Normalize()
	return c
}

// DefaultDaemonSocket picks the socket for this process's pointer width.
func DefaultDaemonSocket() string {
	name := "cp64.sock"
	if strconv.IntSize == 32 {
		name = "cp32.sock"
	}
	return filepath.Join(DefaultDaemonDir, name)
}

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	if c.DaemonSocket == "" {
		c.DaemonSocket = DefaultDaemonSocket()
	}
	if c.DaemonTimeout <= 0 {
		c.DaemonTimeout = DefaultDaemonTimeout
	}
	if c.ProcRoot == "" {
		c.ProcRoot = DefaultProcRoot
	}
	if c.IsolatedUIDStart == 0 && c.IsolatedUIDEnd == 0 {
		c.IsolatedUIDStart = IsolatedUIDStart
		c.IsolatedUIDEnd = IsolatedUIDEnd
	}
	if c.UnmountGuard.ProtectedPrefix == "" {
		c.UnmountGuard.ProtectedPrefix = DefaultUnmountGuard.ProtectedPrefix
	}
	if c.UnmountGuard.AllowedPrefix == "" {
		c.UnmountGuard.AllowedPrefix = DefaultUnmountGuard.AllowedPrefix
	}
	if c.FossilRegion == "" {
		c.FossilRegion = DefaultFossilRegion
	}
	if c.FossilNeedle == "" {
		c.FossilNeedle = DefaultFossilNeedle
	}
}

// Validate checks config invariants.
func (c *Config) Validate() error {
	if c.IsolatedUIDStart > c.IsolatedUIDEnd {
		return errx.With(ErrInvalidConfig, ": isolated uid range %d-%d is empty", c.IsolatedUIDStart, c.IsolatedUIDEnd)
	}
	if !filepath.IsAbs(c.ProcRoot) {
		return errx.With(ErrInvalidConfig, ": proc_root %q must be absolute", c.ProcRoot)
	}
	if !strings.HasPrefix(c.UnmountGuard.AllowedPrefix, c.UnmountGuard.ProtectedPrefix) {
		return errx.With(ErrInvalidConfig, ": unmount_guard.allowed_prefix %q must be under %q",
			c.UnmountGuard.AllowedPrefix, c.UnmountGuard.ProtectedPrefix)
	}
	return nil
}

// IsIsolatedUID reports whether uid falls in the isolated service range.
func (c *Config) IsIsolatedUID(uid int) bool {
	return uid >= c.IsolatedUIDStart && uid <= c.IsolatedUIDEnd
}
