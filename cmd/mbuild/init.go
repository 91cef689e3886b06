package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fcanata061/mbuild/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the base directory layout (sources, build, stage, packages, logs, state, recipes, hooks)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return err
		}
		fmt.Printf("initialized mbuild base directory at %s\n", cfg.Base)
		return nil
	},
}
