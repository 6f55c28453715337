// Package mount finds and removes root-solution mounts and moves the
// process between mount namespaces.
package mount

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/procfs"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
)

const (
	modulesRoot  = "/adb/modules"
	modulesMount = "/data/adb/modules"
	loopDevice   = "/dev/block/loop"
)

// Trace is one mount left behind by the root solution.
type Trace struct {
	Target string
	ID     int
	Raw    string
}

func (t Trace) String() string {
	return fmt.Sprintf("%s (mnt_id: %d)", t.Target, t.ID)
}

// Collect picks the mounts belonging to the root solution named by flags:
// anything rooted at the modules directory or mounted below it, anything
// whose source is the root implementation's name, and for KernelSU anything
// sharing the loop device backing the modules directory. The result is
// ordered by descending mount id so nested mounts go first.
func Collect(infos []*procfs.MountInfo, flags api.ProcessFlags) []Trace {
	rootSource := flags.RootImplementation()

	var ksuSource string
	if flags.Has(api.ProcessRootIsKSU) {
		for _, info := range infos {
			if info.MountPoint == modulesMount && strings.HasPrefix(info.Source, loopDevice) {
				ksuSource = info.Source
				break
			}
		}
	}

	var traces []Trace
	for _, info := range infos {
		match := strings.HasPrefix(info.Root, modulesRoot) ||
			strings.HasPrefix(info.MountPoint, modulesMount) ||
			(rootSource != "" && info.Source == rootSource) ||
			(ksuSource != "" && info.Source == ksuSource)
		if !match {
			continue
		}
		traces = append(traces, Trace{
			Target: info.MountPoint,
			ID:     info.MountID,
			Raw:    rawLine(info),
		})
	}
	sort.SliceStable(traces, func(i, j int) bool { return traces[i].ID > traces[j].ID })
	return traces
}

// ReadTraces reads the mountinfo of pid under procRoot and collects its
// traces. pid <= 0 means the calling process.
func ReadTraces(procRoot string, pid int, flags api.ProcessFlags) ([]Trace, error) {
	infos, err := ReadMountInfo(procRoot, pid)
	if err != nil {
		return nil, err
	}
	return Collect(infos, flags), nil
}

// ReadMountInfo parses the mountinfo of pid under procRoot.
func ReadMountInfo(procRoot string, pid int) ([]*procfs.MountInfo, error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return nil, errx.Wrap(ErrReadMountInfo, err)
	}
	var proc procfs.Proc
	if pid <= 0 {
		proc, err = fs.Self()
	} else {
		proc, err = fs.Proc(pid)
	}
	if err != nil {
		return nil, errx.Wrap(ErrReadMountInfo, err)
	}
	infos, err := proc.MountInfo()
	if err != nil {
		return nil, errx.Wrap(ErrReadMountInfo, err)
	}
	return infos, nil
}

func rawLine(info *procfs.MountInfo) string {
	return fmt.Sprintf("%d %d %s %s %s - %s %s",
		info.MountID, info.ParentID, info.MajorMinorVer, info.Root, info.MountPoint, info.FSType, info.Source)
}
