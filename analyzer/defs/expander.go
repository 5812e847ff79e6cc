package defs

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/abiiranathan/dot-analyzer/analyzer/scope"
)

// defName is the root variable holding compile-time defines.
const defName = "def"

// Defaults for Expander.
const (
	DefaultMaxDepth = 32
	DefaultTimeout  = time.Second
)

var (
	// ErrMaxDepth is passed to the error handler when macro output keeps
	// producing compile-time tags beyond Expander.MaxDepth.
	ErrMaxDepth = errors.New("maximum define expansion depth exceeded")

	// ErrNoEvaluator is passed to the error handler when code must be
	// evaluated and no Evaluator is configured.
	ErrNoEvaluator = errors.New("no evaluator configured")
)

// Evaluator evaluates a JavaScript expression with `def` bound to a value
// bag and returns the result coerced to a string.
//
// Implementations must honor the context deadline and must not let the
// code observe or modify anything outside def.
type Evaluator interface {
	Evaluate(ctx context.Context, code string, def map[string]any) (string, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, code string, def map[string]any) (string, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(ctx context.Context, code string, def map[string]any) (string, error) {
	return f(ctx, code, def)
}

// ErrorHandler returns the substitute text for an evaluation that failed.
type ErrorHandler func(code string, def map[string]any, err error) string

// ErrorMessage is the default ErrorHandler: it substitutes the error message.
func ErrorMessage(_ string, _ map[string]any, err error) string {
	return err.Error()
}

// Expander renders the compile-time layer of templates.
//
// An Expander holds configuration only and may be shared between
// goroutines as long as each Expand call gets its own scope.
type Expander struct {
	// Evaluator runs define code and macro code.
	Evaluator Evaluator
	// OnEvaluateError produces the text substituted for a failed
	// evaluation. Defaults to ErrorMessage.
	OnEvaluateError ErrorHandler
	// MaxDepth bounds recursive re-expansion of macro output.
	MaxDepth int
	// Timeout bounds each evaluation. Zero disables the deadline.
	Timeout time.Duration
	// Logger receives debug traces and evaluation warnings.
	Logger zerolog.Logger
}

// NewExpander returns an Expander with default limits.
func NewExpander(evaluator Evaluator) *Expander {
	return &Expander{
		Evaluator:       evaluator,
		OnEvaluateError: ErrorMessage,
		MaxDepth:        DefaultMaxDepth,
		Timeout:         DefaultTimeout,
		Logger:          zerolog.Nop(),
	}
}

// Expand processes the defines and macro evaluations of template and
// returns a template containing runtime tags only.
//
// Defines are bound as members of the root variable `def` of root (created
// as an object when missing), so they stay visible to the runtime analysis
// and to later Expand calls sharing the scope. The first definition of a
// name wins. Define tags render as nothing; macro tags render as the string
// result of their code, itself expanded again.
//
// Evaluation failures never abort the expansion: the error handler's
// result is substituted instead.
func (e *Expander) Expand(template string, root *scope.Scope) string {
	return e.expand(template, DefScope(root), 0)
}

// DefScope returns a scope backed by the members of the `def` variable of
// the root of s, creating the variable when needed.
func DefScope(s *scope.Scope) *scope.Scope {
	root := s.Root()
	def, ok := root.Own(defName)
	if !ok {
		def = root.Add(defName, nil)
	}
	if def.Members == nil {
		def.Type = scope.ObjectType
		def.Members = make(map[string]*scope.VariableInfo)
	}
	return scope.WithMembers(def.Members)
}

func (e *Expander) expand(template string, defs *scope.Scope, depth int) string {
	tokens := Scan(template, ScanOptions{})

	e.bindDefines(tokens, defs)

	var out strings.Builder
	for _, token := range tokens {
		switch token.Tag {
		case TagMacro:
			out.WriteString(e.renderMacro(token.Nodes, defs, depth))
		case TagText:
			out.WriteString(token.Text)
		}
	}
	return out.String()
}

func (e *Expander) bindDefines(tokens []*Token, defs *scope.Scope) {
	for _, token := range tokens {
		if token.Tag != TagDefine {
			continue
		}

		if _, ok := defs.Own(token.Name); ok {
			e.Logger.Debug().Str("define", token.Name).Int("offset", token.I).Msg("duplicate define ignored")
			continue
		}

		info := defs.Add(token.Name, &scope.VariableInfo{Name: token.Name})
		switch {
		case token.Value != "":
			info.Type = scope.StringType
			info.Value = token.Value
			info.Param = token.Param
		case token.Code != "":
			info.Type = scope.StringType
			info.Value = e.evaluate(token.Code, defs)
		}
		e.Logger.Debug().Str("define", token.Name).Str("param", token.Param).Msg("define bound")
	}
}

func (e *Expander) renderMacro(nodes []*Token, defs *scope.Scope, depth int) string {
	var code strings.Builder
	for _, token := range nodes {
		switch token.Tag {
		case TagCode:
			code.WriteString(token.Code)
		case TagParam:
			code.WriteString(e.reference(token, defs))
		}
	}

	output := e.evaluate(code.String(), defs)
	if output == "" {
		return output
	}

	if depth+1 > e.maxDepth() && len(Scan(output, ScanOptions{IgnoreText: true})) > 0 {
		e.Logger.Warn().Str("code", code.String()).Int("depth", depth).Msg("define expansion too deep")
		return e.onError(code.String(), defs.Values(), ErrMaxDepth)
	}
	return e.expand(output, defs, depth+1)
}

// reference renders a def.name:arg reference as a JavaScript string
// literal of the define value with its parameter replaced by arg, or as
// `undefined` when the define has no value.
func (e *Expander) reference(token *Token, defs *scope.Scope) string {
	info, ok := defs.Own(token.Def)
	if !ok || info.Value == "" {
		return "undefined"
	}

	value := info.Value
	if info.Param != "" {
		value = substituteParam(value, info.Param, token.Arg)
	}
	return quote(value)
}

// substituteParam replaces whole-word occurrences of param in value. An
// occurrence must be followed by a non-word character.
func substituteParam(value, param, arg string) string {
	re := regexp.MustCompile(`(^|[^\w$])` + regexp.QuoteMeta(param) + `([^\w$])`)
	return re.ReplaceAllString(value, "${1}"+strings.ReplaceAll(arg, "$", "$$")+"${2}")
}

// quote renders s as a JSON string without HTML escaping, which is also a
// valid JavaScript string literal.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "undefined"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func (e *Expander) evaluate(code string, defs *scope.Scope) string {
	values := defs.Values()
	if e.Evaluator == nil {
		return e.onError(code, values, ErrNoEvaluator)
	}

	ctx := context.Background()
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	result, err := e.Evaluator.Evaluate(ctx, code, values)
	if err != nil {
		e.Logger.Warn().Err(err).Str("code", code).Msg("evaluation failed")
		return e.onError(code, values, err)
	}
	e.Logger.Debug().Str("code", code).Str("result", result).Msg("evaluated")
	return result
}

func (e *Expander) onError(code string, values map[string]any, err error) string {
	if e.OnEvaluateError == nil {
		return ErrorMessage(code, values, err)
	}
	return e.OnEvaluateError(code, values, err)
}

func (e *Expander) maxDepth() int {
	if e.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return e.MaxDepth
}
