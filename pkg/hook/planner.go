package hook

import (
	"sort"
	"sync"

	"github.com/jingkaihe/zygiskhost/pkg/maps"
)

// Patch is one hook a Planner resolved at commit time.
type Patch struct {
	Key    Key
	Fn     uintptr
	Backup *uintptr
	Paths  []string
}

// Planner is an Engine that resolves patches against the map snapshot
// without touching memory. Committed patches are kept for inspection.
type Planner struct {
	mu         sync.Mutex
	pending    map[Key]Patch
	committed  []Patch
	unresolved []Key
}

// NewPlanner returns an empty planner.
func NewPlanner() *Planner {
	return &Planner{pending: make(map[Key]Patch)}
}

// Register queues a patch. A later registration for the same key replaces
// the earlier one.
func (p *Planner) Register(key Key, fn uintptr, backup *uintptr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[key] = Patch{Key: key, Fn: fn, Backup: backup}
}

// Commit resolves each queued patch to the paths mapping its file. It fails
// when any queued patch has no eligible mapping left.
func (p *Planner) Commit(regions []maps.Region) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	ok := true
	keys := make([]Key, 0, len(p.pending))
	for k := range p.pending {
		keys = append(keys, k)
	}
	sortKeys(keys)

	for _, k := range keys {
		patch := p.pending[k]
		seen := make(map[string]bool)
		for _, r := range regions {
			if r.Dev != k.Dev || r.Inode != k.Inode || !r.HookEligible() || seen[r.Path] {
				continue
			}
			seen[r.Path] = true
			patch.Paths = append(patch.Paths, r.Path)
		}
		if len(patch.Paths) == 0 {
			p.unresolved = append(p.unresolved, k)
			ok = false
			continue
		}
		p.committed = append(p.committed, patch)
	}
	p.pending = make(map[Key]Patch)
	return ok
}

// Committed returns every patch resolved so far, in commit order.
func (p *Planner) Committed() []Patch {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Patch, len(p.committed))
	copy(out, p.committed)
	return out
}

// Unresolved returns keys that had no mapping when committed.
func (p *Planner) Unresolved() []Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Key, len(p.unresolved))
	copy(out, p.unresolved)
	return out
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Dev != keys[j].Dev {
			return keys[i].Dev < keys[j].Dev
		}
		if keys[i].Inode != keys[j].Inode {
			return keys[i].Inode < keys[j].Inode
		}
		return keys[i].Symbol < keys[j].Symbol
	})
}
