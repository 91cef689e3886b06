package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fcanata061/mbuild/internal/config"
	"github.com/fcanata061/mbuild/internal/log"
	"github.com/fcanata061/mbuild/internal/pipeline"
)

var installCmd = &cobra.Command{
	Use:   "install <package.ppkg>",
	Short: "Install a package archive into the target root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		archivePath := args[0]
		if !filepath.IsAbs(archivePath) {
			archivePath = filepath.Join(cfg.Packages, archivePath)
		}

		e := pipeline.New(cfg, log.Default())
		return e.Install(archivePath)
	},
}
