// Command dotscan reports the variables doT templates use.
//
// Usage:
//
//	dotscan analyze [file|dir|bundle.txtar] [--context-file FILE] [--watch] [--compress]
//	dotscan expand FILE
//	dotscan tokens FILE [--defs] [--tree] [--text]
//	dotscan serve [--addr :8080]
//
// Global flags select the configuration file (--config, $DOTSCAN_CONFIG or
// ./.dotscan.yaml), the define sandbox (--sandbox literal|v8) and the log
// level (--log-level). Logs go to stderr; results are JSON on stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abiiranathan/dot-analyzer/analyzer/validator"
)

// app holds the state shared by the subcommands. It is filled in by the
// root command before any subcommand runs.
type app struct {
	configPath string
	sandbox    string
	logLevel   string

	logger zerolog.Logger
	cfg    validator.Config
}

// main is the CLI entry point for the template analyzer.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   appName,
		Short: "Static analysis of doT templates",
		Long: appName + " expands the defines of doT templates and reports, for every variable\n" +
			"a template references, how it is used and what type it has.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (default $"+envConfig+" or ./"+defaultConfigFile+")")
	flags.StringVar(&a.sandbox, "sandbox", "", "sandbox running define code: "+sandboxLiteral+" or "+sandboxV8)
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newAnalyzeCmd(a))
	root.AddCommand(newExpandCmd(a))
	root.AddCommand(newTokensCmd(a))
	root.AddCommand(newServeCmd(a))
	return root
}

// init loads the configuration file and applies the global flags on top
// of it.
func (a *app) init(cmd *cobra.Command) error {
	path, err := resolveConfigPath(a.configPath)
	if err != nil {
		return err
	}
	fc, err := loadConfig(path)
	if err != nil {
		return err
	}

	if a.sandbox != "" {
		fc.Sandbox = a.sandbox
	}
	if a.logLevel != "" {
		fc.LogLevel = a.logLevel
	}

	a.logger, err = newLogger(fc.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.cfg, err = analysisConfig(fc, a.logger)
	if err != nil {
		return err
	}

	if path != "" {
		a.logger.Debug().Str("config", path).Msg("configuration loaded")
	}
	return nil
}
