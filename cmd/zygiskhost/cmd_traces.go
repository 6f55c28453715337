package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
	"github.com/jingkaihe/zygiskhost/pkg/mount"
)

var tracesCmd = &cobra.Command{
	Use:   "traces",
	Short: "Show root-solution mounts visible to a process",
	RunE:  runTraces,
}

func init() {
	tracesCmd.Flags().Int("pid", 0, "Process to inspect (default: self)")
	tracesCmd.Flags().String("root", "", "Root implementation (magisk, ksu, apatch)")
	tracesCmd.Flags().Bool("journal", false, "List recorded unmount outcomes instead")
	tracesCmd.Flags().Int("limit", 50, "Maximum number of journal records")
	viper.BindPFlag("traces.pid", tracesCmd.Flags().Lookup("pid"))
	viper.BindPFlag("traces.root", tracesCmd.Flags().Lookup("root"))
	viper.BindPFlag("traces.journal", tracesCmd.Flags().Lookup("journal"))
	viper.BindPFlag("traces.limit", tracesCmd.Flags().Lookup("limit"))

	rootCmd.AddCommand(tracesCmd)
}

func runTraces(cmd *cobra.Command, args []string) error {
	pid, _ := cmd.Flags().GetInt("pid")
	root, _ := cmd.Flags().GetString("root")
	journal, _ := cmd.Flags().GetBool("journal")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if journal {
		return listJournal(cmd, cfg, limit)
	}

	flags, ok := api.ParseRootImplementation(root)
	if !ok {
		return errx.With(ErrUnknownRoot, ": %q", root)
	}

	traces, err := mount.ReadTraces(cfg.ProcRoot, pid, flags)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MNT_ID\tTARGET\tMOUNTINFO")
	for _, t := range traces {
		fmt.Fprintf(w, "%d\t%s\t%s\n", t.ID, t.Target, t.Raw)
	}
	w.Flush()

	if abort, reason := mount.ShouldAbortUnmount(traces, flags, cfg.UnmountGuard); abort {
		fmt.Printf("\nZygote unmount would be skipped: %s\n", reason)
	} else {
		fmt.Printf("\nZygote unmount would detach %d mounts\n", len(traces))
	}
	return nil
}

func listJournal(cmd *cobra.Command, cfg api.Config, limit int) error {
	if cfg.TraceDBPath == "" {
		return ErrNoTraceDB
	}
	j, err := mount.OpenSQLiteJournal(cfg.TraceDBPath)
	if err != nil {
		return err
	}
	defer j.Close()

	records, err := j.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AT\tINVOCATION\tMNT_ID\tTARGET\tRESULT")
	for _, r := range records {
		result := "ok"
		if !r.OK {
			result = r.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.At.Format("2006-01-02 15:04:05"), r.Invocation, r.MountID, r.Target, result)
	}
	w.Flush()
	return nil
}
