package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/zygiskhost/pkg/hook"
	"github.com/jingkaihe/zygiskhost/pkg/maps"
)

type staticMaps []maps.Region

func (s staticMaps) Snapshot() []maps.Region { return append([]maps.Region(nil), s...) }

var planRegions = staticMaps{
	{Path: "/apex/com.android.runtime/lib64/bionic/libc.so", Dev: 0xfd01, Inode: 2048, Readable: true, Private: true},
	{Path: "/system/lib64/libandroid_runtime.so", Dev: 0xfd01, Inode: 3000, Readable: true, Private: true},
	{Path: "/system/lib64/libart.so", Dev: 0xfd01, Inode: 3100, Readable: true, Private: true},
}

const samplePlan = `
registrations:
  - pattern: '.*\.so$'
    symbol: open
exclusions:
  - pattern: '.*/libart\.so$'
    symbol: open
inodes:
  - dev: 64769
    inode: 3000
    symbol: close
`

func TestDecodePlan(t *testing.T) {
	p, err := decodePlan(strings.NewReader(samplePlan))
	require.NoError(t, err)
	assert.Equal(t, []PlanHook{{Pattern: `.*\.so$`, Symbol: "open"}}, p.Registrations)
	assert.Equal(t, []PlanHook{{Pattern: `.*/libart\.so$`, Symbol: "open"}}, p.Exclusions)
	assert.Equal(t, []PlanInode{{Dev: 64769, Inode: 3000, Symbol: "close"}}, p.Inodes)
}

func TestDecodePlan_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"empty", "", ErrInvalidPlan},
		{"exclusions only", "exclusions:\n  - pattern: x\n", ErrInvalidPlan},
		{"unknown field", "registrations:\n  - pattern: x\n    symbol: y\n    fn: 1\n", ErrDecodePlan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodePlan(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestApplyPlan(t *testing.T) {
	p, err := decodePlan(strings.NewReader(samplePlan))
	require.NoError(t, err)

	planner, ok, err := applyPlan(p, planRegions, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	var keys []string
	for _, patch := range planner.Committed() {
		keys = append(keys, patch.Key.String())
	}
	assert.ElementsMatch(t, []string{
		hook.Key{Dev: 0xfd01, Inode: 2048, Symbol: "open"}.String(),
		hook.Key{Dev: 0xfd01, Inode: 3000, Symbol: "open"}.String(),
		hook.Key{Dev: 0xfd01, Inode: 3000, Symbol: "close"}.String(),
	}, keys)
}

func TestApplyPlan_BadPattern(t *testing.T) {
	_, _, err := applyPlan(&Plan{Registrations: []PlanHook{{Pattern: "(", Symbol: "open"}}}, planRegions, nil)
	assert.ErrorIs(t, err, ErrInvalidPlan)
	assert.ErrorIs(t, err, hook.ErrInvalidPattern)
}

func TestPerms(t *testing.T) {
	assert.Equal(t, "r-xp", perms(maps.Region{Readable: true, Executable: true, Private: true}))
	assert.Equal(t, "rw-s", perms(maps.Region{Readable: true, Writable: true}))
}
