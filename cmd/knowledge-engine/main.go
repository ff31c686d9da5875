// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the knowledge-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/knowledge-engine/internal/secrets"
	"github.com/pdiddy/knowledge-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API tokens loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the knowledge-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "knowledge-engine",
	Short: "Knowledge structures built on missing-context completions",
	Long: `knowledge-engine builds knowledge structures on top of a text-completion
gateway that reports, alongside each answer, the context it was missing.

Each capability is a subcommand: explore follows missing context recursively
into a research tree, evolve runs seed/fill/measure knowledge experiments
against a local store, link detects concept overlap between experiment
domains, and agents runs multi-perspective orchestration patterns.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./knowledge-engine.yaml or ~/.config/knowledge-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("knowledge-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "knowledge-engine"))
		}
	}

	viper.SetEnvPrefix("KNOWLEDGE_ENGINE")
	viper.AutomaticEnv()

	viper.SetDefault("data_dir", "data")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// queryConfig assembles the shared gateway settings from config and the
// loaded token secret. Zero values fall through to package defaults.
func queryConfig() types.QueryConfig {
	token := viper.GetString("token")
	if token == "" {
		token = loadedSecrets["lumen-token"]
	}
	return types.QueryConfig{
		BaseURL:      viper.GetString("base_url"),
		Token:        token,
		Model:        viper.GetString("model"),
		Temperature:  viper.GetFloat64("temperature"),
		Timeout:      viper.GetDuration("timeout"),
		CallInterval: callInterval(),
	}
}

func callInterval() time.Duration {
	if !viper.IsSet("call_interval") {
		return 0
	}
	return viper.GetDuration("call_interval")
}

func dataDir() string {
	return viper.GetString("data_dir")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
