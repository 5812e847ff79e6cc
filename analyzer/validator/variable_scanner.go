package validator

import (
	"fmt"

	"github.com/abiiranathan/dot-analyzer/analyzer/dot"
	"github.com/abiiranathan/dot-analyzer/analyzer/scope"
)

// ExpressionAnalyzer resolves the references of one tag expression.
//
// Analyze records every variable, member and element the expression
// references in s (declaring unresolved names in the root scope) and
// returns the record the whole expression refers to. Usage flags set on
// the returned record by the caller must persist in the scope. For
// expressions that are not references, a fresh record carrying only the
// inferred type is returned.
type ExpressionAnalyzer interface {
	Analyze(expr string, s *scope.Scope) (*scope.VariableInfo, error)
}

// ExpressionError reports a tag expression that could not be analyzed.
type ExpressionError struct {
	Expr   string
	Tag    dot.Tag
	Offset int
	Err    error
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("error analyzing expression '%s' in %s tag at %d: %v", e.Expr, e.Tag, e.Offset, e.Err)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// tagUsage returns the usage context a tag applies to its expression, and
// false for tags whose expressions are not analyzed.
func tagUsage(tag dot.Tag) (scope.Usage, bool) {
	switch tag {
	case dot.TagEncode:
		return scope.Usage{Interpolated: true, Escaped: true}, true
	case dot.TagInterpolate:
		return scope.Usage{Interpolated: true, Unescaped: true}, true
	case dot.TagIf, dot.TagElse:
		return scope.Usage{Conditional: true, Section: true}, true
	case dot.TagIterate:
		return scope.Usage{Iteration: true, Section: true}, true
	}
	return scope.Usage{}, false
}

// ScanVariables walks a token tree built by dot.Parse and records in s
// the variables used by tag expressions and the contexts they are used in.
//
// Algorithm:
//  1. Evaluation and text tokens are skipped
//  2. The expression is analyzed and the tag's usage flags are merged into
//     the returned record; iteration targets are forced to array type
//  3. Conditional bodies are scanned in the same scope. Iteration bodies
//     are scanned in a nested scope binding the value name (typed with the
//     known element type) and the optional index name (number)
//  4. After an iteration body, a type inferred for the value becomes the
//     array's element type unless one is known, and the value's usage
//     (flags, members, elements) is merged into the array's Elements
//
// Tags without expression are skipped along with their nested tokens, so
// the body of a bare {{??}} branch is not analyzed.
//
// Returns s.Members(), or an *ExpressionError for the first expression
// the analyzer rejects.
//
// Thread-safety: None; s is mutated.
func ScanVariables(tokens []*dot.Token, analyzer ExpressionAnalyzer, s *scope.Scope) (map[string]*scope.VariableInfo, error) {
	if err := scanTokens(tokens, analyzer, s); err != nil {
		return nil, err
	}
	return s.Members(), nil
}

func scanTokens(tokens []*dot.Token, analyzer ExpressionAnalyzer, s *scope.Scope) error {
	for _, token := range tokens {
		usage, ok := tagUsage(token.Tag)
		if !ok {
			continue
		}

		if token.Expr == "" {
			continue
		}

		info, err := analyzer.Analyze(token.Expr, s)
		if err != nil {
			return &ExpressionError{Expr: token.Expr, Tag: token.Tag, Offset: token.I, Err: err}
		}

		if usage.Iteration && !info.Type.IsArray() {
			info.Type = scope.ArrayOf(scope.UnknownType)
		}
		info.Usage.Merge(usage)

		if !token.IsOpener() {
			continue
		}

		if !usage.Iteration {
			if err := scanTokens(token.Nodes, analyzer, s); err != nil {
				return err
			}
			continue
		}

		if err := scanIteration(token, info, analyzer, s); err != nil {
			return err
		}
	}
	return nil
}

// scanIteration scans the body of {{~ expr :value[:index]}} where info is
// the record of expr.
func scanIteration(token *dot.Token, info *scope.VariableInfo, analyzer ExpressionAnalyzer, s *scope.Scope) error {
	value := &scope.VariableInfo{Type: info.Type.ElemType()}
	nested := s.Nested()
	nested.Add(token.Value, value)
	if token.Index != "" {
		nested.Add(token.Index, &scope.VariableInfo{Type: scope.NumberType})
	}

	if err := scanTokens(token.Nodes, analyzer, nested); err != nil {
		return err
	}

	if !value.Type.IsUnknown() && info.Type.ElemType().IsUnknown() {
		info.Type = scope.ArrayOf(value.Type)
	}
	info.ElementInfo().MergeUsage(value)
	return nil
}
