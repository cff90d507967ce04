package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/VectorBits/Reentry/src/internal/config"
	"github.com/VectorBits/Reentry/src/internal/logger"
	"github.com/VectorBits/Reentry/src/internal/ui"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFile    string
	quiet      bool
	noBanner   bool
}

var (
	rootOpts rootOptions
	appCfg   *config.AppConfig
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "reentry",
		Short:         "Reentry - static reentrancy detection over solc ASTs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&rootOpts.configPath, "config", "", "settings file (default: search config/settings.yaml, settings.yaml)")
	pf.StringVar(&rootOpts.logLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringVar(&rootOpts.logFile, "log-file", "", "rotating log file (overrides settings)")
	pf.BoolVarP(&rootOpts.quiet, "quiet", "q", false, "only log warnings and errors")
	pf.BoolVar(&rootOpts.noBanner, "no-banner", false, "do not print the banner")

	root.AddCommand(newAnalyzeCmd(), newGraphCmd(), newRunsCmd())
	return root
}

func setup(cmd *cobra.Command) error {
	var err error
	if rootOpts.configPath != "" {
		appCfg, err = config.LoadConfigFrom(rootOpts.configPath)
	} else {
		appCfg, err = config.LoadConfig()
	}
	if err != nil {
		return err
	}

	opts := logger.Options{
		Level:      appCfg.Log.Level,
		File:       appCfg.Log.File,
		MaxSizeMB:  appCfg.Log.MaxSizeMB,
		MaxBackups: appCfg.Log.MaxBackups,
		MaxAgeDays: appCfg.Log.MaxAgeDays,
		Compress:   appCfg.Log.Compress,
		Quiet:      rootOpts.quiet,
	}
	if rootOpts.logLevel != "" {
		opts.Level = rootOpts.logLevel
	}
	if rootOpts.logFile != "" {
		opts.File = rootOpts.logFile
	}
	if err := logger.InitLogger(opts); err != nil {
		ui.LogWarn("failed to init logger: %v", err)
	}

	if !rootOpts.noBanner && !rootOpts.quiet && cmd.Name() == "analyze" {
		ui.PrintBanner()
	}
	return nil
}

// Run executes the command line; the first interrupt cancels the context,
// the second exits.
func Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigChan)
		close(sigChan)
	}()

	go func() {
		count := 0
		for range sigChan {
			count++
			if count == 1 {
				fmt.Fprintln(os.Stderr, "\nInterrupt received, stopping... (press Ctrl+C again to force exit)")
				cancel()
				continue
			}
			fmt.Fprintln(os.Stderr, "\nForce exiting...")
			os.Exit(130)
		}
	}()

	return newRootCmd().ExecuteContext(ctx)
}

func PrintFatal(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
