package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/log"
	"github.com/fcanata061/mbuild/internal/pipeline"
	"github.com/fcanata061/mbuild/internal/recipe"
)

var packCmd = &cobra.Command{
	Use:   "pack <recipe-path>",
	Short: "Re-package the current stage tree for a recipe without rebuilding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		r, err := recipe.Load(args[0])
		if err != nil {
			return err
		}

		e := pipeline.New(cfg, log.Default())
		result, err := e.Pack(r)
		if err != nil {
			return err
		}
		fmt.Println(result.ArchivePath)
		return nil
	},
}
