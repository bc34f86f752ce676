// Package cmd is the kangen command tree: bootstrap/migrate/serve, one
// subcommand per verb, grounded on evalgo-org-eve/cli's and
// junjiewwang-perf-analysis/cmd/cli/cmd's cobra+viper command trees.
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kanrt/kan/container"
)

var cfgFile string

// resources is the per-run service locator every subcommand pulls its
// logger and config out of, replacing the teacher's module-level statics
// (spec.md §9 "Global mutable state") for the CLI's own dependencies too.
var resources = container.NewResources()

var rootCmd = &cobra.Command{
	Use:   "kangen",
	Short: "reflection, migration and reference-manager driver for a kan workspace",
	Long: `kangen wires the reflection registry, generator driver, migration
engine and universe resource-reference manager against a workspace
directory on disk.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := logrus.New()
		level, err := logrus.ParseLevel(viper.GetString("log_level"))
		if err != nil {
			return fmt.Errorf("invalid log_level: %w", err)
		}
		logger.SetLevel(level)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if _, ok := container.GetResource[*logrus.Logger](resources); !ok {
			resources.Add(logger)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.kangen.yaml)")
	rootCmd.PersistentFlags().String("workspace", ".", "workspace root directory")
	rootCmd.PersistentFlags().String("cache-dir", ".kangen-cache", "reference cache directory, relative to workspace")
	rootCmd.PersistentFlags().Int64("budget-ns", int64(0), "per-tick time budget in nanoseconds (0: unbudgeted)")
	rootCmd.PersistentFlags().Int("workers", 4, "reference manager worker count")
	rootCmd.PersistentFlags().String("log-level", "info", "logrus level")

	bindFlag("workspace", "workspace")
	bindFlag("cache_dir", "cache-dir")
	bindFlag("budget_ns", "budget-ns")
	bindFlag("workers", "workers")
	bindFlag("log_level", "log-level")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".kangen")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("KANGEN")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}
