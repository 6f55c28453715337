package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/zygiskhost/pkg/daemon"
)

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Ask the daemon how it classifies a uid",
	RunE:  runFlags,
}

func init() {
	flagsCmd.Flags().Int("uid", -1, "Application uid")
	viper.BindPFlag("flags.uid", flagsCmd.Flags().Lookup("uid"))

	rootCmd.AddCommand(flagsCmd)
}

func runFlags(cmd *cobra.Command, args []string) error {
	uid, _ := cmd.Flags().GetInt("uid")
	if uid < 0 {
		return ErrMissingUID
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := daemon.NewSocketClient(cfg.DaemonSocket, cfg.DaemonTimeout, uuid.NewString(), nil)
	flags, err := client.GetProcessFlags(cmd.Context(), uid)
	if err != nil {
		return err
	}

	root := flags.RootImplementation()
	if root == "" {
		root = "-"
	}
	fmt.Printf("uid:      %d\n", uid)
	fmt.Printf("flags:    %s (0x%08x)\n", flags, uint32(flags))
	fmt.Printf("modules:  %s\n", flags.Public())
	fmt.Printf("root:     %s\n", root)
	if cfg.IsIsolatedUID(uid) {
		fmt.Println("note:     isolated uid, the host looks up the owning app instead")
	}
	return nil
}
