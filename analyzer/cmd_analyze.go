package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abiiranathan/dot-analyzer/analyzer/scope"
	"github.com/abiiranathan/dot-analyzer/analyzer/validator"
)

type analyzeOptions struct {
	contextFile string
	watch       bool
	compress    bool
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [file|dir|bundle.txtar]",
		Short: "Report the variables used by templates",
		Long: "Analyze one template, every template of a directory or the templates of a\n" +
			"txtar bundle. A single template prints its variables; directories and\n" +
			"bundles print one result per template with its diagnostics.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) == 1 {
				target = args[0]
			}
			return a.analyze(cmd.Context(), cmd.OutOrStdout(), target, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.contextFile, "context-file", "", "YAML or JSON file declaring the types of root variables")
	f.BoolVar(&opts.watch, "watch", false, "analyze a directory again whenever its files change")
	f.BoolVar(&opts.compress, "compress", false, "output gzip-compressed JSON")
	return cmd
}

func (a *app) analyze(ctx context.Context, w io.Writer, target string, opts analyzeOptions) error {
	cfg := a.cfg
	if opts.contextFile != "" {
		spec, err := loadContext(opts.contextFile)
		if err != nil {
			return err
		}
		cfg.Context = spec
	}

	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	switch {
	case info.IsDir():
		run := func() error {
			result, err := validator.AnalyzeDir(target, cfg)
			if err != nil {
				return err
			}
			a.logResult(result)
			return encodeJSON(w, result, opts.compress)
		}
		if err := run(); err != nil {
			return err
		}
		if !opts.watch {
			return nil
		}
		return watchDir(ctx, target, a.logger, func() {
			if err := run(); err != nil {
				a.logger.Error().Err(err).Msg("analysis failed")
			}
		})

	case opts.watch:
		return fmt.Errorf("--watch requires a directory, got %s", target)

	case filepath.Ext(target) == ".txtar":
		data, err := os.ReadFile(target)
		if err != nil {
			return err
		}
		result, err := validator.AnalyzeArchive(data, cfg)
		if err != nil {
			return err
		}
		a.logResult(result)
		return encodeJSON(w, result, opts.compress)

	default:
		return a.analyzeFile(w, target, cfg, opts.compress)
	}
}

// analyzeFile prints the variables of a single template. An error
// diagnostic fails the command.
func (a *app) analyzeFile(w io.Writer, file string, cfg validator.Config, compress bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	s := scope.New()
	if cfg.Context != nil {
		if err := scope.Seed(s, cfg.Context); err != nil {
			return fmt.Errorf("context file: %w", err)
		}
	}

	result := validator.AnalyzeTemplate(filepath.ToSlash(file), string(data), s, cfg)
	for _, d := range result.Diagnostics {
		if d.Severity == validator.SeverityError {
			return fmt.Errorf("%s:%d:%d: %s", d.Template, d.Line, d.Column, d.Message)
		}
		a.logger.Warn().Str("template", d.Template).Int("line", d.Line).Int("column", d.Column).Msg(d.Message)
	}
	return encodeJSON(w, result.Variables, compress)
}

// logResult logs a summary of a directory or bundle analysis.
func (a *app) logResult(result validator.AnalysisResult) {
	for _, dup := range result.Duplicates {
		a.logger.Warn().Str("define", dup.Name).Int("declarations", len(dup.Entries)).Msg(dup.Message)
	}
	for _, msg := range result.Errors {
		a.logger.Error().Msg(msg)
	}

	diagnostics := 0
	for _, f := range result.Files {
		diagnostics += len(f.Diagnostics)
	}
	a.logger.Info().
		Int("templates", len(result.Files)).
		Int("diagnostics", diagnostics).
		Bool("errors", result.HasErrors()).
		Msg("analysis complete")
}
