package main

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/zygiskhost/internal/errx"
	"github.com/jingkaihe/zygiskhost/pkg/api"
)

var rootCmd = &cobra.Command{
	Use:               "zygiskhost",
	Short:             "Inspect the state the zygisk host works with",
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (YAML)")
	rootCmd.PersistentFlags().String("proc-root", "", "procfs mount point")
	rootCmd.PersistentFlags().String("socket", "", "Daemon socket path")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	viper.BindPFlag("proc_root", rootCmd.PersistentFlags().Lookup("proc-root"))
	viper.BindPFlag("daemon_socket", rootCmd.PersistentFlags().Lookup("socket"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, args []string) error {
	viper.SetEnvPrefix("ZYGISKHOST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			return errx.Wrap(ErrReadConfig, err)
		}
	}

	level := slog.LevelInfo
	if viper.GetBool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig merges the config file, environment and flags over the
// defaults.
func loadConfig() (api.Config, error) {
	var cfg api.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, errx.Wrap(ErrReadConfig, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func procDir(pid int) string {
	if pid <= 0 {
		return "self"
	}
	return strconv.Itoa(pid)
}
