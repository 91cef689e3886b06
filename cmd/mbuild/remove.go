package main

import (
	"github.com/spf13/cobra"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/log"
	"github.com/fcanata061/mbuild/internal/pipeline"
)

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Uninstall a registered package from the target root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		e := pipeline.New(cfg, log.Default())
		return e.Remove(args[0])
	},
}
