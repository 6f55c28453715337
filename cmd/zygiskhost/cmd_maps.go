package main

import (
	"fmt"
	"os"
	"regexp"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/maps"
)

var mapsCmd = &cobra.Command{
	Use:   "maps",
	Short: "List the memory map of a process",
	RunE:  runMaps,
}

func init() {
	mapsCmd.Flags().Int("pid", 0, "Process to inspect (default: self)")
	mapsCmd.Flags().String("pattern", "", "Only show regions whose path matches this regular expression")
	mapsCmd.Flags().Bool("eligible", false, "Only show regions that can carry PLT hooks")
	viper.BindPFlag("maps.pid", mapsCmd.Flags().Lookup("pid"))
	viper.BindPFlag("maps.pattern", mapsCmd.Flags().Lookup("pattern"))
	viper.BindPFlag("maps.eligible", mapsCmd.Flags().Lookup("eligible"))

	rootCmd.AddCommand(mapsCmd)
}

func runMaps(cmd *cobra.Command, args []string) error {
	pid, _ := cmd.Flags().GetInt("pid")
	pattern, _ := cmd.Flags().GetString("pattern")
	eligible, _ := cmd.Flags().GetBool("eligible")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var re *regexp.Regexp
	if pattern != "" {
		if re, err = regexp.Compile(pattern); err != nil {
			return errx.Wrap(ErrInvalidPattern, err)
		}
	}

	cache := maps.NewCache(maps.ProcSource(cfg.ProcRoot, pid), nil)
	if err := cache.Refresh(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANGE\tPERMS\tOFFSET\tDEV\tINODE\tPATH")
	for _, r := range cache.Snapshot() {
		if eligible && !r.HookEligible() {
			continue
		}
		if re != nil && !re.MatchString(r.Path) {
			continue
		}
		fmt.Fprintf(w, "%x-%x\t%s\t%08x\t%x:%x\t%d\t%s\n",
			r.Start, r.End, perms(r), r.Offset, r.Dev>>8, r.Dev&0xff, r.Inode, r.Path)
	}
	w.Flush()
	return nil
}

func perms(r maps.Region) string {
	b := []byte("---p")
	if r.Readable {
		b[0] = 'r'
	}
	if r.Writable {
		b[1] = 'w'
	}
	if r.Executable {
		b[2] = 'x'
	}
	if !r.Private {
		b[3] = 's'
	}
	return string(b)
}
