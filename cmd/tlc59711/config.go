package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/tlc59711/internal/config"
)

func init() {
	configInitCmd.Flags().BoolVarP(&forceFlag, `force`, `f`, false, `overwrite an existing file`)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var forceFlag bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "manage the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "write the default config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeDefaultConfig(configFlag, forceFlag)
	},
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s exists; use --force to overwrite", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("wrote default config")
	return nil
}
