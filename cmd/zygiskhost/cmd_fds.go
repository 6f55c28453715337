package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/fdtrack"
)

var fdsCmd = &cobra.Command{
	Use:   "fds",
	Short: "List the open descriptors of a process",
	RunE:  runFds,
}

func init() {
	fdsCmd.Flags().Int("pid", 0, "Process to inspect (default: self)")
	viper.BindPFlag("fds.pid", fdsCmd.Flags().Lookup("pid"))

	rootCmd.AddCommand(fdsCmd)
}

func runFds(cmd *cobra.Command, args []string) error {
	pid, _ := cmd.Flags().GetInt("pid")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := filepath.Join(cfg.ProcRoot, procDir(pid), "fd")
	names, scanFd, err := fdtrack.DirLister(dir)()
	if err != nil {
		return errx.Wrap(ErrListFds, err)
	}

	var fds []int
	for _, name := range names {
		fd, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		// Our own directory handle only shows up when listing ourselves.
		if pid <= 0 && fd == scanFd {
			continue
		}
		fds = append(fds, fd)
	}
	sort.Ints(fds)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FD\tTARGET")
	for _, fd := range fds {
		target, err := os.Readlink(filepath.Join(dir, strconv.Itoa(fd)))
		if err != nil {
			target = "?"
		}
		fmt.Fprintf(w, "%d\t%s\n", fd, target)
	}
	w.Flush()
	return nil
}
