package validator

import (
	"runtime"

	"github.com/rs/zerolog"

	"github.com/abiiranathan/dot-analyzer/analyzer/defs"
	"github.com/abiiranathan/dot-analyzer/analyzer/expr"
	"github.com/abiiranathan/dot-analyzer/analyzer/sandbox"
	"github.com/abiiranathan/dot-analyzer/analyzer/scope"
)

// Severity levels of a ValidationResult.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationResult represents a single diagnostic (error or warning) found during template analysis.
type ValidationResult struct {
	// Template is the path of the template where the issue was found.
	Template string `json:"template"`
	// Line is the 1-based line number of the issue. Positions of tag errors
	// refer to the template after define expansion.
	Line int `json:"line"`
	// Column is the 1-based column number of the issue.
	Column int `json:"column"`
	// Variable is the expression or define name that caused the issue.
	Variable string `json:"variable,omitempty"`
	// Message is a human-readable description of the issue.
	Message string `json:"message"`
	// Severity indicates the severity of the issue ("error" or "warning").
	Severity string `json:"severity"`
}

// DefineEntry represents a define declaration found in a shared define file.
type DefineEntry struct {
	// Name is the define name without the "def." prefix.
	Name string `json:"name"`
	// TemplatePath is the slash-separated path of the declaring file.
	TemplatePath string `json:"templatePath"`
	// Line is the starting line number of the declaration.
	Line int `json:"line"`
	// Col is the starting column number of the declaration.
	Col int `json:"col"`
}

// DuplicateDefineError is reported when a define name is declared more than once across the shared define files.
// Only the first declaration is used.
type DuplicateDefineError struct {
	// Name is the duplicated define name.
	Name string `json:"name"`
	// Entries lists all declarations in load order.
	Entries []DefineEntry `json:"entries"`
	// Message is a human-readable error message describing the duplication.
	Message string `json:"message"`
}

// FileResult is the analysis of one template file.
type FileResult struct {
	// Template is the slash-separated path of the template.
	Template string `json:"template"`
	// Variables maps root variable names to their analyses. It is nil when
	// the template could not be analyzed.
	Variables map[string]*scope.VariableInfo `json:"variables,omitempty"`
	// Diagnostics lists the issues found in the template.
	Diagnostics []ValidationResult `json:"diagnostics,omitempty"`
}

// AnalysisResult is the top-level output of a directory or bundle analysis.
type AnalysisResult struct {
	// Files holds one result per template, in natural path order.
	Files []FileResult `json:"files"`
	// Duplicates lists define names declared more than once in define files.
	Duplicates []DuplicateDefineError `json:"duplicates,omitempty"`
	// Errors contains non-fatal errors encountered while loading files.
	Errors []string `json:"errors,omitempty"`
}

// HasErrors reports whether any template has an error diagnostic.
func (r AnalysisResult) HasErrors() bool {
	for _, f := range r.Files {
		for _, d := range f.Diagnostics {
			if d.Severity == SeverityError {
				return true
			}
		}
	}
	return len(r.Errors) > 0
}

// Config controls template analysis.
type Config struct {
	// Expander renders the compile-time layer. Its Evaluator is the sandbox.
	Expander *defs.Expander
	// Analyzer resolves tag expressions.
	Analyzer ExpressionAnalyzer
	// IgnoreText drops literal text tokens before tree building.
	IgnoreText bool
	// Logger receives debug traces and warnings.
	Logger zerolog.Logger

	// Pattern selects the files of a directory or bundle (doublestar syntax).
	Pattern string
	// DefExtensions marks shared define files, loaded before any template.
	DefExtensions []string
	// TemplateExtensions marks the templates to analyze.
	TemplateExtensions []string
	// Concurrency bounds the number of templates analyzed at once.
	Concurrency int
	// Context pre-declares root variables (see scope.Seed).
	Context map[string]any
}

// DefaultConfig returns the default configuration: the pure-Go literal
// sandbox, the cached JavaScript expression analyzer and doT's file
// conventions (.def for shared defines, .dot and .jst for templates).
func DefaultConfig() Config {
	return Config{
		Expander:           defs.NewExpander(sandbox.Literal{}),
		Analyzer:           expr.New(expr.DefaultCacheSize),
		IgnoreText:         true,
		Logger:             zerolog.Nop(),
		Pattern:            "**/*.{dot,jst,def}",
		DefExtensions:      []string{".def"},
		TemplateExtensions: []string{".dot", ".jst"},
		Concurrency:        runtime.NumCPU(),
	}
}
