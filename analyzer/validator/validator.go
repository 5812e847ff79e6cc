/*
Package validator performs static analysis on doT templates.

It expands the compile-time layer of a template (defines and macro
evaluations), builds the tree of runtime tags and infers, for every
variable the template references, how it is used and what type it has.

The validator provides:
  - Variable usage contexts (interpolated, escaped, conditional, iteration)
  - Type inference including array element types learned from loop bodies
  - Structural tag errors and expression errors with source positions
  - Directory and txtar bundle analysis with shared define files
  - Duplicate define detection
*/
package validator

import (
	"github.com/abiiranathan/dot-analyzer/analyzer/defs"
	"github.com/abiiranathan/dot-analyzer/analyzer/dot"
	"github.com/abiiranathan/dot-analyzer/analyzer/expr"
	"github.com/abiiranathan/dot-analyzer/analyzer/sandbox"
	"github.com/abiiranathan/dot-analyzer/analyzer/scope"
)

// ScanTemplate analyzes the variables used by a doT template.
//
// Pipeline:
//  1. Expand defines and macro evaluations into s (cfg.Expander)
//  2. Scan runtime tags (dot.Scan, honoring cfg.IgnoreText)
//  3. Build the tag tree (dot.Parse)
//  4. Scan variables (ScanVariables with cfg.Analyzer)
//
// Parameters:
//   - template: doT template source
//   - s: root scope; nil creates a fresh one. Reusing a scope across calls
//     accumulates analyses and keeps earlier defines visible
//   - cfg: analysis configuration; nil Expander and Analyzer fall back to
//     the defaults of DefaultConfig
//
// Returns: the members of s, or a *dot.TagError or *ExpressionError.
// Evaluation errors never fail the analysis.
func ScanTemplate(template string, s *scope.Scope, cfg Config) (map[string]*scope.VariableInfo, error) {
	_, vars, err := scanTemplate(template, s, cfg)
	return vars, err
}

// scanTemplate is ScanTemplate also returning the expanded template, which
// tag offsets in errors refer to.
func scanTemplate(template string, s *scope.Scope, cfg Config) (string, map[string]*scope.VariableInfo, error) {
	if s == nil {
		s = scope.New()
	}
	expander := cfg.Expander
	if expander == nil {
		expander = defs.NewExpander(sandbox.Literal{})
		expander.Logger = cfg.Logger
	}
	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = defaultAnalyzer
	}

	expanded := expander.Expand(template, s)

	tokens, err := dot.Parse(dot.Scan(expanded, dot.ScanOptions{IgnoreText: cfg.IgnoreText}))
	if err != nil {
		return expanded, nil, err
	}

	vars, err := ScanVariables(tokens, analyzer, s)
	return expanded, vars, err
}

var defaultAnalyzer = expr.New(expr.DefaultCacheSize)
