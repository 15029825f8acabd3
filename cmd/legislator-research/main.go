// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the legislator-research CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/civicdata/legislator-research/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// apiKeyFor returns the credential for a backend: the explicit flag value
// if given, else the .secrets/ file, else the conventional environment
// variable.
func apiKeyFor(flagValue, secretName, envName string) string {
	if flagValue != "" {
		return flagValue
	}
	if v, ok := loadedSecrets[secretName]; ok {
		return v
	}
	return os.Getenv(envName)
}

// rootCmd is the base command for the legislator-research CLI.
var rootCmd = &cobra.Command{
	Use:   "legislator-research",
	Short: "Enrich an OpenStates people dataset with AI research findings",
	Long: `legislator-research walks an OpenStates-style people dataset, delegates
each active legislator to an AI research backend, and writes campaign issue
and donor findings next to a mirrored copy of the source tree.

Runs are resumable: people whose research output already exists are skipped,
one person's failure never aborts a batch, and every run leaves an auditable
summary in the run ledger.`,
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

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./legislator-research.yaml or ~/.config/legislator-research/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("legislator-research")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "legislator-research"))
		}
	}

	viper.SetEnvPrefix("LEGISLATOR_RESEARCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
