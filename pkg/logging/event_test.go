package logging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_JSONFieldNames(t *testing.T) {
	event := &Event{
		Timestamp:  time.Date(2026, 2, 23, 14, 30, 0, 123000000, time.UTC),
		Host:       "zygiskhost/dev",
		Invocation: "3f1c1a7e-0d52-4bfa-9a8e-1c2d3e4f5a6b",
		EventType:  EventUnmount,
		Summary:    "unmount /system/etc/hosts",
	}
	b, err := json.Marshal(event)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))

	for _, key := range []string{"ts", "host", "invocation", "event_type", "summary"} {
		assert.Contains(t, m, key)
	}
	for _, key := range []string{"process", "module", "tags", "data"} {
		assert.NotContains(t, m, key)
	}
}

func TestEvent_TimestampFormat(t *testing.T) {
	ts := time.Date(2026, 2, 23, 14, 30, 0, 123456789, time.UTC)
	event := &Event{Timestamp: ts, Host: "h", Invocation: "i", EventType: "t", Summary: "s"}

	b, err := json.Marshal(event)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	parsed, err := time.Parse(time.RFC3339Nano, m["ts"].(string))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts))
}

func TestUnmountData_OKNotOmitted(t *testing.T) {
	b, err := json.Marshal(&UnmountData{Target: "/product/overlay", MountID: 7})
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, false, m["ok"], "ok must be present even when false")
	assert.NotContains(t, m, "error")
}

func TestFdSanitizeData_ClosedAlwaysPresent(t *testing.T) {
	b, err := json.Marshal(&FdSanitizeData{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"closed":null}`, string(b))
}

func TestEventTypeConstants(t *testing.T) {
	assert.Equal(t, "module_load", EventModuleLoad)
	assert.Equal(t, "module_unload", EventModuleUnload)
	assert.Equal(t, "hook_commit", EventHookCommit)
	assert.Equal(t, "unmount", EventUnmount)
	assert.Equal(t, "fd_sanitize", EventFdSanitize)
	assert.Equal(t, "namespace_switch", EventNamespaceSwitch)
	assert.Equal(t, "specialize", EventSpecialize)
}
