package logging

import (
	"encoding/json"
	"time"
)

// Event is one entry of the specialization journal.
// Required fields: Timestamp, Host, Invocation, EventType, Summary.
type Event struct {
	Timestamp  time.Time       `json:"ts"`
	Host       string          `json:"host"`
	Invocation string          `json:"invocation"`
	Process    string          `json:"process,omitempty"`
	EventType  string          `json:"event_type"`
	Summary    string          `json:"summary"`
	Module     string          `json:"module,omitempty"`
	Tags       []string        `json:"tags,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

const (
	EventModuleLoad      = "module_load"
	EventModuleUnload    = "module_unload"
	EventHookCommit      = "hook_commit"
	EventUnmount         = "unmount"
	EventFdSanitize      = "fd_sanitize"
	EventNamespaceSwitch = "namespace_switch"
	EventSpecialize      = "specialize"
)

// ModuleLoadData is the payload of module_load events.
type ModuleLoadData struct {
	ID         int    `json:"id"`
	APIVersion int    `json:"api_version"`
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason,omitempty"`
}

// ModuleUnloadData is the payload of module_unload events.
type ModuleUnloadData struct {
	Loaded   int  `json:"loaded"`
	Unloaded int  `json:"unloaded"`
	Clean    bool `json:"clean"`
}

// HookCommitData is the payload of hook_commit events.
type HookCommitData struct {
	Registrations int  `json:"registrations"`
	Exclusions    int  `json:"exclusions"`
	OK            bool `json:"ok"`
}

// UnmountData is the payload of unmount events.
type UnmountData struct {
	Target  string `json:"target"`
	MountID int    `json:"mount_id"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// FdSanitizeData is the payload of fd_sanitize events.
type FdSanitizeData struct {
	Closed   []int `json:"closed"`
	Exempted []int `json:"exempted,omitempty"`
}

// NamespaceSwitchData is the payload of namespace_switch events.
type NamespaceSwitchData struct {
	Kind  string `json:"kind"`
	Path  string `json:"path,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SpecializeData is the payload of specialize events.
type SpecializeData struct {
	Phase string `json:"phase"`
	UID   int    `json:"uid"`
	Flags string `json:"flags"`
	Role  string `json:"role,omitempty"`
}
