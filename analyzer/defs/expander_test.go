package defs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abiiranathan/dot-analyzer/analyzer/sandbox"
	"github.com/abiiranathan/dot-analyzer/analyzer/scope"
)

func TestExpandParameterizedDefine(t *testing.T) {
	root := scope.New()
	out := NewExpander(sandbox.Literal{}).Expand(`{{##def.img:filename:<img src="filename">#}}- {{#def.img:user.jpg}}`, root)
	assert.Equal(t, `- <img src="user.jpg">`, out)

	def, ok := root.Find("def")
	require.True(t, ok)
	assert.Equal(t, scope.Object, def.Type.Kind)
	img := def.Members["img"]
	require.NotNil(t, img)
	assert.Equal(t, &scope.VariableInfo{Name: "img", Type: scope.StringType, Value: `<img src="filename">`, Param: "filename"}, img)
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"first define wins", "{{##def.x:1#}}{{##def.x:2#}}{{#def.x}}", "1"},
		{"code define", "{{##def.sum='a' + 'b'#}}[{{#def.sum}}]", "[ab]"},
		{"unknown reference", "{{#def.nope:1}}", "undefined"},
		{"recursive output", "{{##def.inner:X#}}{{##def.outer:<{{#def.inner}}>#}}{{#def.outer}}", "<X>"},
		{"defines bound before macros", "{{#def.late}}{{##def.late:L#}}", "L"},
		{"dotted names", "{{##def.a.b:V#}}{{#def['a.b']}}", "V"},
		{"runtime tags untouched", "{{##def.x:1#}}{{=it.a}}{{#def.x}}", "{{=it.a}}1"},
		{"param substitution is whole word", `{{##def.link:url:<a href="url">url</a> urls#}}{{#def.link:x}}`, `<a href="x">x</a> urls`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewExpander(sandbox.Literal{}).Expand(tt.template, scope.New())
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestExpandSharesDefinesThroughScope(t *testing.T) {
	e := NewExpander(sandbox.Literal{})
	root := scope.New()

	assert.Empty(t, e.Expand("{{##def.greeting:hello#}}", root))
	assert.Equal(t, "hello world", e.Expand("{{#def.greeting}} world", root))
}

func TestExpandErrorHandler(t *testing.T) {
	failing := EvaluatorFunc(func(_ context.Context, code string, _ map[string]any) (string, error) {
		return "", errors.New("boom")
	})

	e := NewExpander(failing)
	assert.Equal(t, "[boom]", e.Expand("[{{#def.x}}]", scope.New()), "default handler substitutes the message")

	var seen map[string]any
	e.OnEvaluateError = func(code string, def map[string]any, err error) string {
		seen = def
		return "<!-- evaluation error: " + code + " -->"
	}
	out := e.Expand("{{##def.v:1#}}{{#def.v}}", scope.New())
	assert.Equal(t, "<!-- evaluation error: def.v -->", out)
	assert.Equal(t, map[string]any{"v": "1"}, seen)
}

func TestExpandCodeDefineError(t *testing.T) {
	e := NewExpander(sandbox.Literal{})
	root := scope.New()
	e.Expand("{{##def.bad=nope#}}", root)

	def, _ := root.Find("def")
	assert.Equal(t, "ReferenceError: nope is not defined", def.Members["bad"].Value)
}

func TestExpandMaxDepth(t *testing.T) {
	e := NewExpander(sandbox.Literal{})
	e.MaxDepth = 3

	out := e.Expand("{{##def.loop:{{#def.loop}}#}}{{#def.loop}}", scope.New())
	assert.Equal(t, ErrMaxDepth.Error(), out)
}

func TestExpandPassesDeadline(t *testing.T) {
	var hasDeadline bool
	e := NewExpander(EvaluatorFunc(func(ctx context.Context, _ string, _ map[string]any) (string, error) {
		_, hasDeadline = ctx.Deadline()
		return "ok", nil
	}))

	assert.Equal(t, "ok", e.Expand("{{#1}}", scope.New()))
	assert.True(t, hasDeadline)
}

func TestExpandWithoutEvaluator(t *testing.T) {
	e := &Expander{}
	assert.Equal(t, ErrNoEvaluator.Error(), e.Expand("{{#1}}", scope.New()))
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"<img src=\"a&b\">"`, quote(`<img src="a&b">`))
	assert.Equal(t, `"line\nbreak"`, quote("line\nbreak"))
}
