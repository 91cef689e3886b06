package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/log"
	"github.com/fcanata061/mbuild/internal/pipeline"
	"github.com/fcanata061/mbuild/internal/recipe"
	"github.com/fcanata061/mbuild/internal/statusui"
)

var runCmd = &cobra.Command{
	Use:   "run <recipe-path>",
	Short: "Fetch, extract, patch, build, check, stage, and package a recipe",
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

		spinner := statusui.NewSpinner(nil)
		spinner.Start(fmt.Sprintf("%s building %s-%s", statusui.Tag("run"), r.Name, r.Version))
		defer spinner.Stop()

		counting, counts := log.NewCounting(log.Default())
		e := pipeline.New(cfg, counting)
		result, err := e.Run(globalCtx, r)
		if err != nil {
			return err
		}
		spinner.Stop()
		fmt.Println(result.ArchivePath)
		if counts.Warnings() > 0 || counts.Errors() > 0 {
			fmt.Printf("%s %d warning(s), %d error(s)\n", statusui.Tag("run"), counts.Warnings(), counts.Errors())
		}
		return nil
	},
}
