package maps

import (
	"bytes"
	"os"

	"github.com/jingkaihe/zygiskhost/internal/errx"
)

const scrubChunk = 64 << 10

// ScrubRegion overwrites every occurrence of needle inside r with NUL bytes
// through the memory file at memPath (normally /proc/self/mem). It returns
// the number of occurrences cleared.
func ScrubRegion(memPath string, r Region, needle []byte) (int, error) {
	if len(needle) == 0 || r.Size() == 0 {
		return 0, nil
	}
	mem, err := os.OpenFile(memPath, os.O_RDWR, 0)
	if err != nil {
		return 0, errx.Wrap(ErrScrub, err)
	}
	defer mem.Close()

	zero := make([]byte, len(needle))
	buf := make([]byte, scrubChunk+len(needle)-1)
	found := 0
	end := int64(r.End)
	for off := int64(r.Start); off < end; off += scrubChunk {
		n := int64(len(buf))
		if off+n > end {
			n = end - off
		}
		chunk := buf[:n]
		if _, err := mem.ReadAt(chunk, off); err != nil {
			return found, errx.Wrap(ErrScrub, err)
		}
		for i := 0; ; {
			j := bytes.Index(chunk[i:], needle)
			if j < 0 {
				break
			}
			at := off + int64(i+j)
			// Occurrences starting in the overlap belong to the next chunk.
			if at >= off+scrubChunk {
				break
			}
			if _, err := mem.WriteAt(zero, at); err != nil {
				return found, errx.Wrap(ErrScrub, err)
			}
			found++
			i += j + len(needle)
		}
	}
	return found, nil
}
