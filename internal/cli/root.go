// Package cli is the bachgen command line: offline generation straight to
// MIDI or JSON files.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Conceptual-Machines/bachgen/internal/logger"
)

const (
	envPrefix = "BACHGEN"

	formatMIDI = "midi"
	formatJSON = "json"
	formatText = "text"
)

// NewRootCmd builds the bachgen command tree. Settings are resolved from
// flags, then BACHGEN_* environment variables, then the config file.
func NewRootCmd(version string) *cobra.Command {
	v := viper.New()
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "bachgen",
		Short: "Generate Bach-style Goldberg variations and organ toccatas",
		Long: `bachgen renders deterministic Baroque keyboard music as Standard MIDI
files. The same seed and settings always produce the same notes.

Goldberg runs follow the 32-piece plan of aria, variations and aria da capo.
Toccata runs follow one of four archetypes for a three-manual organ.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger.SetLevel(logger.LevelWarn)
			if verbose {
				logger.SetLevel(logger.LevelDebug)
			}
			return initConfig(v, cmd, configPath)
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every rendered variation and section")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./bachgen.{yaml,toml,json} if present)")
	root.PersistentFlags().StringP("out", "o", "", `Output path; "-" writes to stdout`)
	root.PersistentFlags().StringP("format", "f", formatMIDI, "Output format: midi, json")

	root.AddCommand(newGoldbergCmd(v))
	root.AddCommand(newToccataCmd(v))
	root.AddCommand(newPlanCmd(v))
	root.AddCommand(newTokenCmd(v))
	return root
}

func initConfig(v *viper.Viper, cmd *cobra.Command, configPath string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("bachgen")
		v.AddConfigPath(".")
		var notFound viper.ConfigFileNotFoundError
		if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return v.BindPFlags(cmd.Flags())
}
