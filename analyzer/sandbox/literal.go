// Package sandbox provides Evaluator implementations for compile-time
// define and macro code.
//
// Literal evaluates the constant subset of JavaScript produced by define
// expansion in pure Go. The v8sandbox subpackage runs arbitrary code in a
// V8 isolate.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tdewolff/parse/v2/js"

	"github.com/abiiranathan/dot-analyzer/analyzer/expr"
)

// ErrUnsupported is returned by Literal for code outside the constant
// expression subset it evaluates.
var ErrUnsupported = errors.New("unsupported expression")

// ErrTimeout is returned when the evaluation context expires.
var ErrTimeout = errors.New("script execution timed out")

// Literal evaluates constant JavaScript expressions: string, number,
// boolean and null literals, template literals, grouping, the + operator,
// logical and conditional operators, strict equality, and member or index
// lookups rooted at `def`.
//
// Such expressions cover what macro calls produce: quoted define values
// joined with string concatenation. Anything else fails with
// ErrUnsupported, which the expander reports through its error handler.
//
// The zero value is ready to use and safe for concurrent calls.
type Literal struct{}

// Evaluate implements defs.Evaluator.
func (Literal) Evaluate(ctx context.Context, code string, def map[string]any) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "undefined", nil
	}
	node, err := expr.ParseExpression(code)
	if err != nil {
		return "", fmt.Errorf("SyntaxError: %w", err)
	}
	e := evaluator{ctx: ctx, def: def}
	v, err := e.eval(node)
	if err != nil {
		return "", err
	}
	return ToString(v), nil
}

type evaluator struct {
	ctx context.Context
	def map[string]any
}

func (e evaluator) eval(node js.IExpr) (any, error) {
	if err := e.ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	switch n := node.(type) {
	case *js.LiteralExpr:
		return literal(n)
	case *js.Var:
		return e.variable(string(n.Name()))
	case *js.GroupExpr:
		return e.eval(n.X)
	case *js.DotExpr:
		obj, err := e.eval(n.X)
		if err != nil {
			return nil, err
		}
		switch y := n.Y.(type) {
		case js.LiteralExpr:
			return get(obj, string(y.Data), n.Optional)
		case *js.LiteralExpr:
			return get(obj, string(y.Data), n.Optional)
		}
	case *js.IndexExpr:
		obj, err := e.eval(n.X)
		if err != nil {
			return nil, err
		}
		key, err := e.eval(n.Y)
		if err != nil {
			return nil, err
		}
		return get(obj, ToString(key), n.Optional)
	case *js.UnaryExpr:
		if n.Op == js.NotToken {
			x, err := e.eval(n.X)
			if err != nil {
				return nil, err
			}
			return !truthy(x), nil
		}
	case *js.BinaryExpr:
		return e.binary(n)
	case *js.CondExpr:
		cond, err := e.eval(n.Cond)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return e.eval(n.X)
		}
		return e.eval(n.Y)
	case *js.TemplateExpr:
		if n.Tag == nil {
			return e.template(n)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, node.String())
}

func (e evaluator) variable(name string) (any, error) {
	switch name {
	case "def":
		return e.def, nil
	case "undefined":
		return undefined, nil
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	}
	return nil, fmt.Errorf("ReferenceError: %s is not defined", name)
}

func (e evaluator) binary(n *js.BinaryExpr) (any, error) {
	x, err := e.eval(n.X)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case js.OrToken:
		if truthy(x) {
			return x, nil
		}
		return e.eval(n.Y)
	case js.AndToken:
		if !truthy(x) {
			return x, nil
		}
		return e.eval(n.Y)
	case js.NullishToken:
		if x != nil && x != undefined {
			return x, nil
		}
		return e.eval(n.Y)
	}

	y, err := e.eval(n.Y)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case js.AddToken:
		if isPrimitiveString(x) || isPrimitiveString(y) {
			return ToString(x) + ToString(y), nil
		}
		return toNumber(x) + toNumber(y), nil
	case js.EqEqEqToken:
		return strictEqual(x, y), nil
	case js.NotEqEqToken:
		return !strictEqual(x, y), nil
	}
	return nil, fmt.Errorf("%w: operator %s", ErrUnsupported, n.Op)
}

func (e evaluator) template(n *js.TemplateExpr) (any, error) {
	var b strings.Builder
	for _, part := range n.List {
		s, err := templateChunk(part.Value)
		if err != nil {
			return nil, err
		}
		b.WriteString(s)

		v, err := e.eval(part.Expr)
		if err != nil {
			return nil, err
		}
		b.WriteString(ToString(v))
	}
	s, err := templateChunk(n.Tail)
	if err != nil {
		return nil, err
	}
	b.WriteString(s)
	return b.String(), nil
}

// templateChunk returns the cooked text of a raw template chunk, which
// starts with ` or } and ends with ${ or `.
func templateChunk(raw []byte) (string, error) {
	s := string(raw)
	if strings.HasPrefix(s, "`") {
		s = s[1:]
	} else {
		s = strings.TrimPrefix(s, "}")
	}
	if strings.HasSuffix(s, "${") {
		s = s[:len(s)-2]
	} else {
		s = strings.TrimSuffix(s, "`")
	}
	return expr.Unescape(s)
}

func get(obj any, key string, optional bool) (any, error) {
	v, ok := property(obj, key)
	if ok {
		return v, nil
	}
	if optional {
		return undefined, nil
	}
	return nil, fmt.Errorf("TypeError: Cannot read properties of %s (reading '%s')", ToString(obj), key)
}

func literal(n *js.LiteralExpr) (any, error) {
	switch n.TokenType {
	case js.StringToken:
		return expr.Unquote(n.Data)
	case js.TrueToken:
		return true, nil
	case js.FalseToken:
		return false, nil
	case js.NullToken:
		return nil, nil
	}
	if js.IsNumeric(n.TokenType) {
		return parseNumber(string(n.Data))
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, n.Data)
}

// parseNumber parses a JavaScript numeric literal.
func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(s, "_", "")
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			return float64(n), err
		}
	}
	if strings.HasSuffix(s, "n") {
		return 0, fmt.Errorf("%w: bigint %s", ErrUnsupported, s)
	}
	return strconv.ParseFloat(s, 64)
}
