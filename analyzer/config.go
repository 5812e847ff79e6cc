package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/abiiranathan/dot-analyzer/analyzer/defs"
	"github.com/abiiranathan/dot-analyzer/analyzer/expr"
	"github.com/abiiranathan/dot-analyzer/analyzer/sandbox"
	"github.com/abiiranathan/dot-analyzer/analyzer/validator"
)

// appName is the single source of truth for the application name.
const appName = "dotscan"

var (
	envConfig         = strings.ToUpper(appName) + "_CONFIG"
	defaultConfigFile = "." + appName + ".yaml"
)

// Sandbox names accepted by --sandbox and the config file.
const (
	sandboxLiteral = "literal"
	sandboxV8      = "v8"
)

// fileConfig is the YAML configuration file. Zero values keep the library
// defaults.
type fileConfig struct {
	Pattern            string        `yaml:"pattern"`
	DefExtensions      []string      `yaml:"defExtensions"`
	TemplateExtensions []string      `yaml:"templateExtensions"`
	IgnoreText         *bool         `yaml:"ignoreText"`
	Sandbox            string        `yaml:"sandbox"`
	Timeout            time.Duration `yaml:"timeout"`
	MaxDepth           int           `yaml:"maxDepth"`
	CacheSize          int           `yaml:"cacheSize"`
	LogLevel           string        `yaml:"logLevel"`
}

// resolveConfigPath returns the configuration file to load.
// Priority: --config > $DOTSCAN_CONFIG > .dotscan.yaml in the working directory.
// An empty result means no configuration file; only the implicit default
// may be missing.
func resolveConfigPath(flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if v := os.Getenv(envConfig); v != "" {
		return v, nil
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("could not stat %s: %w", defaultConfigFile, err)
	}
	return "", nil
}

// loadConfig reads the configuration file at path. Unknown keys are errors.
func loadConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

// loadContext reads a context file describing the types of root
// variables. JSON files are valid YAML.
func loadContext(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context file: %w", err)
	}

	var spec map[string]any
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse context file %s: %w", path, err)
	}
	return spec, nil
}

// newEvaluator returns the sandbox selected by name.
func newEvaluator(name string) (defs.Evaluator, error) {
	switch name {
	case "", sandboxLiteral:
		return sandbox.Literal{}, nil
	case sandboxV8:
		return v8Evaluator()
	}
	return nil, fmt.Errorf("unknown sandbox %q (want %s or %s)", name, sandboxLiteral, sandboxV8)
}

// analysisConfig builds the validator configuration from the file
// configuration.
func analysisConfig(fc fileConfig, logger zerolog.Logger) (validator.Config, error) {
	cfg := validator.DefaultConfig()
	cfg.Logger = logger

	evaluator, err := newEvaluator(fc.Sandbox)
	if err != nil {
		return cfg, err
	}
	cfg.Expander = defs.NewExpander(evaluator)
	cfg.Expander.Logger = logger
	if fc.Timeout > 0 {
		cfg.Expander.Timeout = fc.Timeout
	}
	if fc.MaxDepth > 0 {
		cfg.Expander.MaxDepth = fc.MaxDepth
	}

	if fc.CacheSize > 0 {
		cfg.Analyzer = expr.New(fc.CacheSize)
	}
	if fc.Pattern != "" {
		cfg.Pattern = fc.Pattern
	}
	if len(fc.DefExtensions) > 0 {
		cfg.DefExtensions = fc.DefExtensions
	}
	if len(fc.TemplateExtensions) > 0 {
		cfg.TemplateExtensions = fc.TemplateExtensions
	}
	if fc.IgnoreText != nil {
		cfg.IgnoreText = *fc.IgnoreText
	}
	return cfg, nil
}

// newLogger returns a console logger writing to w. An empty level means
// warnings and errors only.
func newLogger(level string, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.WarnLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	console := zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
		cw.Out = w
		cw.NoColor = os.Getenv("NO_COLOR") != ""
		cw.TimeFormat = "15:04:05"
	})
	return zerolog.New(console).Level(lvl).With().Timestamp().Logger(), nil
}
