package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func journalPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "specialize.jsonl")
}

func TestJSONLWriter_FileMode(t *testing.T) {
	path := journalPath(t)

	w, err := NewJSONLWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestJSONLWriter_RequiresParentDir(t *testing.T) {
	_, err := NewJSONLWriter(filepath.Join(t.TempDir(), "missing", "specialize.jsonl"))
	assert.ErrorIs(t, err, ErrCreateJournal)
}

// A forked child and the spawning service each hold their own writer on
// the same journal file.
func TestJSONLWriter_ParentAndChildShareJournal(t *testing.T) {
	path := journalPath(t)

	parent, err := NewJSONLWriter(path)
	require.NoError(t, err)
	child, err := NewJSONLWriter(path)
	require.NoError(t, err)

	require.NoError(t, parent.Write(specializeEvent("inv-1", "unmount /system/etc/hosts")))
	require.NoError(t, child.Write(specializeEvent("inv-1", "load demo")))
	require.NoError(t, parent.Write(specializeEvent("inv-2", "unmount /data/adb/modules")))
	require.NoError(t, child.Close())
	require.NoError(t, parent.Close())

	events := decodeJournal(t, path)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"unmount /system/etc/hosts", "load demo", "unmount /data/adb/modules"},
		[]string{events[0].Summary, events[1].Summary, events[2].Summary})
	assert.Equal(t, "inv-2", events[2].Invocation)
}

func TestJSONLWriter_LinesStayWhole(t *testing.T) {
	path := journalPath(t)
	w, err := NewJSONLWriter(path)
	require.NoError(t, err)

	const writers, perWriter = 16, 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				_ = w.Write(specializeEvent("inv-concurrent", "commit hooks"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	assert.Len(t, decodeJournal(t, path), writers*perWriter)
}

func specializeEvent(invocation, summary string) *Event {
	return &Event{
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Host:       "zygiskhost/test",
		Invocation: invocation,
		EventType:  EventSpecialize,
		Summary:    summary,
	}
}

func decodeJournal(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e), "line %d", len(events)+1)
		events = append(events, e)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestJSONLWriter_WriteAfterClose(t *testing.T) {
	path := journalPath(t)
	w, err := NewJSONLWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.Write(specializeEvent("inv-1", "load demo")))
	assert.Equal(t, 1, w.Lines())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "second close is a no-op")

	assert.ErrorIs(t, w.Write(specializeEvent("inv-1", "late")), ErrWriterClosed)
	assert.Equal(t, 1, w.Lines())
	assert.Len(t, decodeJournal(t, path), 1)
}
