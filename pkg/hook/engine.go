package hook

import (
	"fmt"

	"github.com/jingkaihe/zygiskhost/pkg/maps"
)

// Key identifies a patch target. Every mapping of the same file shares one
// key, so a file mapped several times is patched once.
type Key struct {
	Dev    uint64
	Inode  uint64
	Symbol string
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d!%s", k.Dev, k.Inode, k.Symbol)
}

// Engine is the binary-patch engine. Register queues a patch; Commit applies
// everything queued against the given map snapshot in one pass and reports
// aggregate success. Commit with nothing queued must succeed.
type Engine interface {
	Register(key Key, fn uintptr, backup *uintptr)
	Commit(regions []maps.Region) bool
}
