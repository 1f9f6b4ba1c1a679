package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iamshnoo/soc-bias/internal"
	"github.com/iamshnoo/soc-bias/internal/config"
	"github.com/iamshnoo/soc-bias/internal/output"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath    string
	persistentDir string
	mode          string
	logLevel      string
	noColor       bool
	quiet         bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "seat",
		Short:         "Measure social bias in word and sentence embeddings with WEAT/SEAT",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&g.persistentDir, "persistent-dir", "", "Directory holding data/, results/ and model files")
	flags.StringVar(&g.mode, "mode", "", "Word lists to use: lang_spec|trans")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: ERROR|WARN|INFO|DEBUG|TRACE")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	flags.BoolVarP(&g.quiet, "quiet", "q", false, "Only print errors")

	rootCmd.AddCommand(
		newRunCmd(g),
		newListCmd(g),
		newGenerateCmd(g),
		newServeCmd(g),
		newMigrateCmd(g),
	)
	return rootCmd
}

// load reads the configuration and applies the global flags on top of it
func (g *globalFlags) load(cmd *cobra.Command) (*config.Config, *internal.Logger, *output.Printer, error) {
	printer := output.NewPrinter(!g.noColor, g.quiet)

	cfg, err := config.Load(g.configPath)
	if err != nil {
		printer.Error("%v", err)
		return nil, nil, printer, err
	}
	if cmd.Flags().Changed("persistent-dir") {
		cfg.PersistentDir = g.persistentDir
	}
	if cmd.Flags().Changed("mode") {
		cfg.Run.Mode = g.mode
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}

	logger := internal.NewDefaultLogger()
	if level, ok := internal.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}
	if g.quiet {
		logger.SetLevel(internal.LogLevelError)
	}
	return cfg, logger, printer, nil
}

// fail prints err and returns it so cobra exits non-zero
func fail(printer *output.Printer, err error) error {
	printer.Error("%v", err)
	return err
}

func validateAfterFlags(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}
