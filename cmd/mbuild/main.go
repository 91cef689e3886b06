// Command mbuild is the CLI entry point for the source-to-binary package
// manager: init, run, install, remove, pack.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fcanata061/mbuild/internal/log"
	"github.com/fcanata061/mbuild/internal/mbuilderr"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool

	globalCtx    context.Context
	globalCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "mbuild",
	Short: "A minimalist source-to-binary package manager",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "show errors only")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "show verbose (info-level) output")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "show debug output")
	rootCmd.PersistentPreRun = initLogger

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(packCmd)
}

func main() {
	globalCtx, globalCancel = context.WithCancel(context.Background())
	defer globalCancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nreceived %s, canceling operation...\n", sig)
		globalCancel()
		<-sigChan
		fmt.Fprintln(os.Stderr, "forced exit")
		exitWithCode(ExitCancelled)
	}()

	if err := rootCmd.Execute(); err != nil {
		if globalCtx.Err() == context.Canceled {
			exitWithCode(ExitCancelled)
		}
		fmt.Fprintln(os.Stderr, err)
		exitWithCode(exitCodeFor(err))
	}
}

func initLogger(cmd *cobra.Command, args []string) {
	level := determineLogLevel()
	log.SetDefault(log.New(log.NewCLIHandler(level)))
}

func determineLogLevel() slog.Level {
	switch {
	case debugFlag:
		return slog.LevelDebug
	case verboseFlag:
		return slog.LevelInfo
	case quietFlag:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// exitCodeFor maps a pipeline error to a named exit code via errors.As,
// rather than matching on error message text.
func exitCodeFor(err error) int {
	var merr *mbuilderr.Error
	if !errors.As(err, &merr) {
		return ExitGeneral
	}
	switch merr.Kind {
	case mbuilderr.Usage:
		return ExitUsage
	case mbuilderr.Fetch:
		return ExitFetchFailed
	case mbuilderr.Extract:
		return ExitNoSourceDir
	default:
		return ExitGeneral
	}
}
