// Package expr implements the expression analysis used by the variable
// scanner: it parses JavaScript tag expressions with tdewolff/parse and
// records the variables, members and element accesses they reference in a
// scope, inferring types from the operators applied to them.
package expr

import (
	"github.com/tdewolff/parse/v2/js"

	"github.com/abiiranathan/dot-analyzer/analyzer/scope"
)

// Analyzer resolves the references of tag expressions against a scope.
//
// Thread-safety: An Analyzer may be shared between goroutines; the scopes
// passed to Analyze may not.
type Analyzer struct {
	cache *exprCache
}

// New creates an Analyzer caching up to cacheSize parsed expressions.
// A non-positive size selects DefaultCacheSize.
func New(cacheSize int) *Analyzer {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Analyzer{cache: newExprCache(cacheSize)}
}

// Analyze parses src and records every reference it makes in s.
//
// Returns:
//   - the record of the variable, member or element the whole expression
//     refers to, which stays attached to the scope so that callers can
//     add usage flags to it
//   - a fresh record holding only the inferred type when the expression
//     is not a reference (literals, operators, calls)
//   - an error when src is not a valid expression
//
// Names that resolve nowhere in the scope chain are declared in the root
// scope, which is how template globals such as `it` are discovered.
func (a *Analyzer) Analyze(src string, s *scope.Scope) (*scope.VariableInfo, error) {
	node, err := a.cache.parse(src)
	if err != nil {
		return nil, err
	}
	w := walker{scope: s}
	return w.expr(node), nil
}

// literalGlobals are identifiers evaluated as values, never declared.
var literalGlobals = map[string]scope.Type{
	"undefined": scope.UnknownType,
	"NaN":       scope.NumberType,
	"Infinity":  scope.NumberType,
}

type walker struct {
	scope *scope.Scope
}

func synthetic(t scope.Type) *scope.VariableInfo {
	return &scope.VariableInfo{Type: t}
}

func (w walker) expr(node js.IExpr) *scope.VariableInfo {
	switch n := node.(type) {
	case *js.Var:
		return w.identifier(string(n.Name()))
	case *js.LiteralExpr:
		return synthetic(literalType(n.TokenType))
	case *js.GroupExpr:
		return w.expr(n.X)
	case *js.DotExpr:
		return w.dot(n)
	case *js.IndexExpr:
		return w.index(n)
	case *js.CallExpr:
		w.expr(n.X)
		w.args(n.Args.List)
		return synthetic(scope.UnknownType)
	case *js.NewExpr:
		w.expr(n.X)
		if n.Args != nil {
			w.args(n.Args.List)
		}
		return synthetic(scope.ObjectType)
	case *js.UnaryExpr:
		return w.unary(n)
	case *js.BinaryExpr:
		return w.binary(n)
	case *js.CondExpr:
		w.expr(n.Cond)
		x, y := w.expr(n.X), w.expr(n.Y)
		return synthetic(x.Type.Join(y.Type))
	case *js.CommaExpr:
		var last *scope.VariableInfo
		for _, item := range n.List {
			last = w.expr(item)
		}
		if last == nil {
			return synthetic(scope.UnknownType)
		}
		return last
	case *js.ArrayExpr:
		elem := scope.UnknownType
		for _, item := range n.List {
			if item.Value == nil {
				continue
			}
			v := w.expr(item.Value)
			if !item.Spread {
				elem = elem.Join(v.Type)
			}
		}
		return synthetic(scope.ArrayOf(elem))
	case *js.ObjectExpr:
		for _, prop := range n.List {
			if prop.Name != nil && prop.Name.IsComputed() {
				w.expr(prop.Name.Computed)
			}
			if prop.Value != nil {
				w.expr(prop.Value)
			}
			if prop.Init != nil {
				w.expr(prop.Init)
			}
		}
		return synthetic(scope.ObjectType)
	case *js.TemplateExpr:
		if n.Tag != nil {
			w.expr(n.Tag)
		}
		for _, part := range n.List {
			w.expr(part.Expr)
		}
		return synthetic(scope.StringType)
	}
	// Functions, classes and other forms introduce their own bindings and
	// are not entered.
	return synthetic(scope.UnknownType)
}

func (w walker) args(list []js.Arg) {
	for _, arg := range list {
		w.expr(arg.Value)
	}
}

func (w walker) identifier(name string) *scope.VariableInfo {
	if t, ok := literalGlobals[name]; ok {
		return synthetic(t)
	}
	if info, ok := w.scope.Find(name); ok {
		return info
	}
	return w.scope.Root().Add(name, nil)
}

// member returns the named member of obj. Accessing a member of a value of
// unknown type shows that it is an object.
func member(obj *scope.VariableInfo, name string) *scope.VariableInfo {
	if obj.Type.IsUnknown() {
		obj.Type = scope.ObjectType
	}
	return obj.Member(name)
}

func (w walker) dot(n *js.DotExpr) *scope.VariableInfo {
	obj := w.expr(n.X)
	switch y := n.Y.(type) {
	case js.LiteralExpr:
		return member(obj, string(y.Data))
	case *js.LiteralExpr:
		return member(obj, string(y.Data))
	case *js.Var:
		return member(obj, string(y.Data))
	}
	return synthetic(scope.UnknownType)
}

// index handles obj[key]. A string literal key is a member access; any
// other key indexes an array and yields its element record.
func (w walker) index(n *js.IndexExpr) *scope.VariableInfo {
	obj := w.expr(n.X)
	if lit, ok := n.Y.(*js.LiteralExpr); ok && lit.TokenType == js.StringToken {
		if name, err := Unquote(lit.Data); err == nil {
			return member(obj, name)
		}
	}

	key := w.expr(n.Y)
	if key.Type.IsUnknown() {
		key.Type = scope.NumberType
	}
	if obj.Type.IsUnknown() {
		obj.Type = scope.ArrayOf(scope.UnknownType)
	}
	if !obj.Type.IsArray() {
		return synthetic(scope.UnknownType)
	}
	return obj.ElementInfo()
}

func (w walker) unary(n *js.UnaryExpr) *scope.VariableInfo {
	x := w.expr(n.X)
	switch n.Op {
	case js.NotToken, js.DeleteToken:
		return synthetic(scope.BooleanType)
	case js.TypeofToken:
		return synthetic(scope.StringType)
	case js.PosToken, js.NegToken, js.BitNotToken,
		js.PreIncrToken, js.PreDecrToken, js.PostIncrToken, js.PostDecrToken:
		numeric(x)
		return synthetic(scope.NumberType)
	}
	return synthetic(scope.UnknownType)
}

func (w walker) binary(n *js.BinaryExpr) *scope.VariableInfo {
	x, y := w.expr(n.X), w.expr(n.Y)
	switch n.Op {
	case js.OrToken, js.AndToken, js.NullishToken:
		return synthetic(x.Type.Join(y.Type))
	case js.AddToken:
		switch {
		case x.Type.Kind == scope.String || y.Type.Kind == scope.String:
			return synthetic(scope.StringType)
		case x.Type.Kind == scope.Number && y.Type.Kind == scope.Number:
			return synthetic(scope.NumberType)
		}
		return synthetic(scope.UnknownType)
	case js.SubToken, js.MulToken, js.DivToken, js.ModToken, js.ExpToken,
		js.BitAndToken, js.BitOrToken, js.BitXorToken,
		js.LtLtToken, js.GtGtToken, js.GtGtGtToken:
		numeric(x)
		numeric(y)
		return synthetic(scope.NumberType)
	case js.EqEqToken, js.EqEqEqToken, js.NotEqToken, js.NotEqEqToken,
		js.LtToken, js.LtEqToken, js.GtToken, js.GtEqToken,
		js.InToken, js.InstanceofToken:
		return synthetic(scope.BooleanType)
	case js.EqToken:
		return synthetic(y.Type)
	}
	return synthetic(scope.UnknownType)
}

// numeric types an operand of an arithmetic operator.
func numeric(v *scope.VariableInfo) {
	if v.Type.IsUnknown() {
		v.Type = scope.NumberType
	}
}

func literalType(tt js.TokenType) scope.Type {
	switch {
	case tt == js.StringToken:
		return scope.StringType
	case js.IsNumeric(tt):
		return scope.NumberType
	case tt == js.TrueToken || tt == js.FalseToken:
		return scope.BooleanType
	case tt == js.ThisToken || tt == js.RegExpToken:
		return scope.ObjectType
	}
	return scope.UnknownType
}
