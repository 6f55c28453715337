package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/zygiskhost/pkg/maps"
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Work with PLT hook plans",
}

var hooksPlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Resolve a hook plan against a process memory map without patching",
	RunE:  runHooksPlan,
}

func init() {
	hooksPlanCmd.Flags().StringP("file", "f", "", "Hook plan file (YAML)")
	hooksPlanCmd.Flags().Int("pid", 0, "Process whose memory map is used (default: self)")
	hooksPlanCmd.MarkFlagRequired("file")
	viper.BindPFlag("hooks.plan.file", hooksPlanCmd.Flags().Lookup("file"))
	viper.BindPFlag("hooks.plan.pid", hooksPlanCmd.Flags().Lookup("pid"))

	hooksCmd.AddCommand(hooksPlanCmd)
	rootCmd.AddCommand(hooksCmd)
}

func runHooksPlan(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	pid, _ := cmd.Flags().GetInt("pid")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	plan, err := loadPlan(file)
	if err != nil {
		return err
	}

	cache := maps.NewCache(maps.ProcSource(cfg.ProcRoot, pid), nil)
	if err := cache.Refresh(); err != nil {
		return err
	}

	planner, ok, err := applyPlan(plan, cache, nil)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tPATHS")
	for _, p := range planner.Committed() {
		fmt.Fprintf(w, "%s\t%s\n", p.Key, strings.Join(p.Paths, ","))
	}
	w.Flush()

	for _, k := range planner.Unresolved() {
		fmt.Printf("unresolved: %s\n", k)
	}
	if !ok {
		fmt.Println("commit would fail")
	}
	return nil
}
