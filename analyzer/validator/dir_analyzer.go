package validator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"slices"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/maruel/natural"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/txtar"

	"github.com/abiiranathan/dot-analyzer/analyzer/defs"
	"github.com/abiiranathan/dot-analyzer/analyzer/dot"
	"github.com/abiiranathan/dot-analyzer/analyzer/scope"
)

// AnalyzeDir analyzes every template of a directory tree.
// See AnalyzeFS.
func AnalyzeDir(dir string, cfg Config) (AnalysisResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return AnalysisResult{}, err
	}
	if !info.IsDir() {
		return AnalysisResult{}, fmt.Errorf("%s is not a directory", dir)
	}
	return AnalyzeFS(os.DirFS(dir), cfg)
}

// AnalyzeArchive analyzes the templates bundled in a txtar archive.
// See AnalyzeFS.
func AnalyzeArchive(data []byte, cfg Config) (AnalysisResult, error) {
	fsys, err := txtar.FS(txtar.Parse(data))
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("open archive: %w", err)
	}
	return AnalyzeFS(fsys, cfg)
}

// AnalyzeFS analyzes the templates of a file system.
//
// The analysis proceeds in phases:
//   - Collect files matching cfg.Pattern, in natural path order
//   - Load define files into one base scope: each file is bound as a
//     define named after its base name, and the defines it declares are
//     bound too (first declaration wins)
//   - Report define names declared more than once across define files
//   - Analyze templates concurrently, each on its own clone of the base
//     scope
//
// Template failures are reported as diagnostics of the template, not as
// errors. The returned error is reserved for an invalid pattern.
//
// Concurrency: At most cfg.Concurrency templates are analyzed at once.
// Thread-safety: Safe for concurrent calls if cfg.Expander and cfg.Analyzer are.
func AnalyzeFS(fsys fs.FS, cfg Config) (AnalysisResult, error) {
	result := AnalysisResult{}
	if cfg.Expander == nil || cfg.Analyzer == nil {
		defaults := DefaultConfig()
		if cfg.Expander == nil {
			cfg.Expander = defaults.Expander
			cfg.Expander.Logger = cfg.Logger
		}
		if cfg.Analyzer == nil {
			cfg.Analyzer = defaults.Analyzer
		}
	}

	// Phase 1: Collect files
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = DefaultConfig().Pattern
	}
	files, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return result, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	sort.Slice(files, func(i, j int) bool { return natural.Less(files[i], files[j]) })

	var defFiles, templates []string
	for _, f := range files {
		switch {
		case hasExtension(f, cfg.DefExtensions):
			defFiles = append(defFiles, f)
		case hasExtension(f, cfg.TemplateExtensions):
			templates = append(templates, f)
		}
	}

	// Phase 2: Load shared defines
	base := scope.New()
	if cfg.Context != nil {
		if err := scope.Seed(base, cfg.Context); err != nil {
			return result, err
		}
	}
	registry, loadErrors := loadDefineFiles(fsys, defFiles, base, cfg)
	result.Errors = append(result.Errors, loadErrors...)

	// Phase 3: Detect duplicates
	result.Duplicates = detectDuplicateDefines(registry)

	// Phase 4: Analyze templates concurrently
	result.Files = analyzeTemplatesConcurrently(fsys, templates, base, registry, cfg)

	return result, nil
}

// loadDefineFiles binds the shared define files into base and returns the
// registry of every declaration, keyed by define name, in load order.
func loadDefineFiles(fsys fs.FS, files []string, base *scope.Scope, cfg Config) (map[string][]DefineEntry, []string) {
	registry := make(map[string][]DefineEntry)
	var loadErrors []string

	defScope := defs.DefScope(base)
	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("read %s: %v", file, err))
			continue
		}
		text := string(content)

		name := defineName(file)
		registry[name] = append(registry[name], DefineEntry{Name: name, TemplatePath: file, Line: 1, Col: 1})
		if _, exists := defScope.Own(name); !exists {
			defScope.Add(name, &scope.VariableInfo{Type: scope.StringType, Value: text})
		}

		for _, token := range defs.Scan(text, defs.ScanOptions{IgnoreText: true}) {
			if token.Tag != defs.TagDefine {
				continue
			}
			line, col := position(text, token.I)
			registry[token.Name] = append(registry[token.Name], DefineEntry{
				Name:         token.Name,
				TemplatePath: file,
				Line:         line,
				Col:          col,
			})
		}

		// Only the declarations matter here; the rendered text of a define
		// file is used when a template includes it.
		cfg.Expander.Expand(text, base)
		cfg.Logger.Debug().Str("file", file).Msg("define file loaded")
	}
	return registry, loadErrors
}

// detectDuplicateDefines identifies define names declared multiple times.
// The first declaration is used and later ones are ignored, so each
// duplicate is worth a warning.
//
// Returns a slice of DuplicateDefineError sorted by name.
func detectDuplicateDefines(registry map[string][]DefineEntry) []DuplicateDefineError {
	var duplicates []DuplicateDefineError
	for name, entries := range registry {
		if len(entries) > 1 {
			msg := fmt.Sprintf(`Duplicate define "%s" found; the declaration in %s is used`, name, entries[0].TemplatePath)
			duplicates = append(duplicates, DuplicateDefineError{
				Name:    name,
				Entries: entries,
				Message: msg,
			})
		}
	}
	slices.SortFunc(duplicates, func(a, b DuplicateDefineError) int {
		if natural.Less(a.Name, b.Name) {
			return -1
		}
		if natural.Less(b.Name, a.Name) {
			return 1
		}
		return 0
	})
	return duplicates
}

// analyzeTemplatesConcurrently analyzes templates using a bounded group of
// goroutines.
//
// Concurrency model:
//   - At most cfg.Concurrency (default one per CPU core) analyses at once
//   - Each analysis works on a deep clone of base, so no scope is shared
//   - Results are written to distinct slots of a preallocated slice
func analyzeTemplatesConcurrently(fsys fs.FS, templates []string, base *scope.Scope, registry map[string][]DefineEntry, cfg Config) []FileResult {
	results := make([]FileResult, len(templates))
	if len(templates) == 0 {
		return results
	}

	limit := cfg.Concurrency
	if limit <= 0 {
		limit = max(runtime.NumCPU(), 1)
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, file := range templates {
		s := base.Clone()
		g.Go(func() error {
			results[i] = analyzeTemplateFile(fsys, file, s, registry, cfg)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// analyzeTemplateFile analyzes one template in scope s.
func analyzeTemplateFile(fsys fs.FS, file string, s *scope.Scope, registry map[string][]DefineEntry, cfg Config) FileResult {
	result := FileResult{Template: file}

	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, ValidationResult{
			Template: file,
			Message:  err.Error(),
			Severity: SeverityError,
		})
		return result
	}
	return analyzeTemplateText(file, string(content), s, registry, cfg)
}

// AnalyzeTemplate analyzes a single template and reports failures as
// positioned diagnostics instead of errors. name labels the result.
//
// A template that redeclares one of its own defines gets a warning; the
// shared define files of AnalyzeFS are not involved.
func AnalyzeTemplate(name, template string, s *scope.Scope, cfg Config) FileResult {
	return analyzeTemplateText(name, template, s, nil, cfg)
}

func analyzeTemplateText(file, text string, s *scope.Scope, registry map[string][]DefineEntry, cfg Config) FileResult {
	result := FileResult{Template: file}
	result.Diagnostics = append(result.Diagnostics, checkTemplateDefines(file, text, registry)...)

	expanded, vars, err := scanTemplate(text, s, cfg)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, errorDiagnostic(file, expanded, err))
		cfg.Logger.Debug().Str("template", file).Err(err).Msg("template analysis failed")
		return result
	}
	result.Variables = vars
	cfg.Logger.Debug().Str("template", file).Int("variables", len(vars)).Msg("template analyzed")
	return result
}

// checkTemplateDefines warns about defines a template declares more than
// once or that a shared define file already declares.
func checkTemplateDefines(file, text string, registry map[string][]DefineEntry) []ValidationResult {
	var diagnostics []ValidationResult
	seen := make(map[string]bool)

	for _, token := range defs.Scan(text, defs.ScanOptions{IgnoreText: true}) {
		if token.Tag != defs.TagDefine {
			continue
		}
		line, col := position(text, token.I)

		var msg string
		if shared, ok := registry[token.Name]; ok && len(shared) > 0 {
			msg = fmt.Sprintf(`Define "%s" is already declared in %s and is ignored`, token.Name, shared[0].TemplatePath)
		} else if seen[token.Name] {
			msg = fmt.Sprintf(`Duplicate define "%s" is ignored`, token.Name)
		}
		seen[token.Name] = true

		if msg != "" {
			diagnostics = append(diagnostics, ValidationResult{
				Template: file,
				Line:     line,
				Column:   col,
				Variable: token.Name,
				Message:  msg,
				Severity: SeverityWarning,
			})
		}
	}
	return diagnostics
}

// errorDiagnostic converts an analysis error into a diagnostic positioned
// in the expanded template.
func errorDiagnostic(file, expanded string, err error) ValidationResult {
	d := ValidationResult{Template: file, Message: err.Error(), Severity: SeverityError}

	var tagErr *dot.TagError
	var exprErr *ExpressionError
	switch {
	case errors.As(err, &tagErr):
		d.Line, d.Column = position(expanded, tagErr.Offset)
		d.Variable = tagErr.Tag.Name()
	case errors.As(err, &exprErr):
		d.Line, d.Column = position(expanded, exprErr.Offset)
		d.Variable = exprErr.Expr
	}
	return d
}
