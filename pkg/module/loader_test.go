package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/zygiskhost/pkg/api"
)

func TestStaticLoader(t *testing.T) {
	var ran bool
	Register("loader-test-demo", func(table *Table, env api.Env) { ran = true })

	assert.Contains(t, RegisteredModules(), "loader-test-demo")
	assert.Panics(t, func() { Register("loader-test-demo", nil) })

	h, err := StaticLoader{}.Open(api.ModuleDescriptor{Name: "loader-test-demo", Fd: -1})
	require.NoError(t, err)

	entry, err := resolveEntry(h)
	require.NoError(t, err)
	entry(nil, nil)
	assert.True(t, ran)

	_, err = h.Lookup("other")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	require.NoError(t, h.Close())
	_, err = h.Lookup(EntryName)
	assert.ErrorIs(t, err, ErrEntryNotFound, "released handle resolves nothing")

	_, err = StaticLoader{}.Open(api.ModuleDescriptor{Name: "nope", Fd: -1})
	assert.ErrorIs(t, err, ErrUnknownStatic)
}

func TestPluginLoader_MissingFile(t *testing.T) {
	_, err := PluginLoader{}.Open(api.ModuleDescriptor{Name: "x", Path: "/nonexistent/module.so", Fd: -1})
	assert.ErrorIs(t, err, ErrOpenModule)
}

func TestChainLoader(t *testing.T) {
	Register("loader-test-chain", func(*Table, api.Env) {})
	chain := ChainLoader{fakeLoader{}, StaticLoader{}}

	h, err := chain.Open(api.ModuleDescriptor{Name: "loader-test-chain", Fd: -1})
	require.NoError(t, err)
	assert.NotNil(t, h)

	_, err = chain.Open(api.ModuleDescriptor{Name: "none", Fd: -1})
	assert.ErrorIs(t, err, ErrOpenModule, "first error wins")

	_, err = ChainLoader{}.Open(api.ModuleDescriptor{Name: "none", Fd: -1})
	assert.ErrorIs(t, err, ErrOpenModule)
}
