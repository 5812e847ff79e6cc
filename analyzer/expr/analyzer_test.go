package expr

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abiiranathan/dot-analyzer/analyzer/scope"
)

func TestAnalyzeMemberAccess(t *testing.T) {
	a := New(0)
	s := scope.New()

	info, err := a.Analyze("it.names.length", s)
	require.NoError(t, err)
	assert.Equal(t, "length", info.Name)

	it, ok := s.Find("it")
	require.True(t, ok, "undeclared names are added to the root scope")
	assert.Equal(t, scope.Object, it.Type.Kind)
	names := it.Members["names"]
	require.NotNil(t, names)
	assert.Equal(t, scope.Object, names.Type.Kind)
	assert.Same(t, info, names.Members["length"])

	again, err := a.Analyze("it['names']", s)
	require.NoError(t, err)
	assert.Same(t, names, again, "quoted keys are member accesses")
}

func TestAnalyzeResolvesThroughParents(t *testing.T) {
	a := New(0)
	root := scope.New()
	nested := root.Nested()
	item := nested.Add("item", nil)

	info, err := a.Analyze("item.title", nested)
	require.NoError(t, err)
	assert.Same(t, item.Members["title"], info)
	_, declared := root.Find("item")
	assert.False(t, declared)

	_, err = a.Analyze("other", nested)
	require.NoError(t, err)
	_, declared = root.Own("other")
	assert.True(t, declared, "unresolved names go to the root, not the nested scope")
}

func TestAnalyzeIndexAccess(t *testing.T) {
	a := New(0)
	s := scope.New()

	elem, err := a.Analyze("it.rows[i]", s)
	require.NoError(t, err)

	it, _ := s.Find("it")
	rows := it.Members["rows"]
	assert.True(t, rows.Type.IsArray())
	assert.Same(t, rows.Elements, elem)

	i, _ := s.Find("i")
	assert.Equal(t, scope.Number, i.Type.Kind)
}

func TestAnalyzeTypes(t *testing.T) {
	tests := []struct {
		expr     string
		expected scope.Type
	}{
		{"'here'", scope.StringType},
		{"42", scope.NumberType},
		{"0x1f", scope.NumberType},
		{"true", scope.BooleanType},
		{"null", scope.UnknownType},
		{"undefined", scope.UnknownType},
		{"it.a || 'here'", scope.StringType},
		{"it.a && it.b", scope.UnknownType},
		{"'a' + it.b", scope.StringType},
		{"1 + 2", scope.NumberType},
		{"it.a + it.b", scope.UnknownType},
		{"it.a * 2", scope.NumberType},
		{"-it.a", scope.NumberType},
		{"!it.a", scope.BooleanType},
		{"it.a === 1", scope.BooleanType},
		{"typeof it.a", scope.StringType},
		{"it.a ? 'x' : 'y'", scope.StringType},
		{"[1, 2]", scope.ArrayOf(scope.NumberType)},
		{"{a: it.a}", scope.ObjectType},
		{"`x${it.a}`", scope.StringType},
		{"it.fn(it.a)", scope.UnknownType},
		{"(it.a, 'x')", scope.StringType},
	}

	a := New(0)
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			info, err := a.Analyze(tt.expr, scope.New())
			require.NoError(t, err)
			assert.True(t, info.Type.Equal(tt.expected), "got %s, want %s", info.Type, tt.expected)
		})
	}
}

func TestAnalyzeOperandTyping(t *testing.T) {
	a := New(0)
	s := scope.New()

	_, err := a.Analyze("it.count - 1", s)
	require.NoError(t, err)
	it, _ := s.Find("it")
	assert.Equal(t, scope.Number, it.Members["count"].Type.Kind)

	_, err = a.Analyze("it.label || 'none'", s)
	require.NoError(t, err)
	assert.True(t, it.Members["label"].Type.IsUnknown(), "logical operators do not type their operands")
}

func TestAnalyzeVisitsNestedExpressions(t *testing.T) {
	a := New(0)
	s := scope.New()

	_, err := a.Analyze("fmt(it.a, [it.b], {k: it.c, [it.d]: 1}, `${it.e}`)", s)
	require.NoError(t, err)

	it, ok := s.Find("it")
	require.True(t, ok)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		assert.Contains(t, it.Members, name)
	}
	_, ok = s.Find("fmt")
	assert.True(t, ok)
}

func TestAnalyzeSkipsFunctions(t *testing.T) {
	a := New(0)
	s := scope.New()

	_, err := a.Analyze("it.items.map(x => x.name)", s)
	require.NoError(t, err)
	_, ok := s.Find("x")
	assert.False(t, ok, "arrow function parameters are not template variables")
}

func TestAnalyzeErrors(t *testing.T) {
	a := New(0)
	for _, src := range []string{"it.", "a b", "(", "var x = 1", "a; b("} {
		_, err := a.Analyze(src, scope.New())
		assert.Error(t, err, src)
	}
}

func TestAnalyzeLeadingExpression(t *testing.T) {
	tests := []struct {
		src      string
		expected string
	}{
		{"it.name;", "name"},
		{"it.ok; ", "ok"},
		{"it.first; it.second", "first"},
	}

	a := New(0)
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			s := scope.New()
			info, err := a.Analyze(tt.src, s)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, info.Name)

			it, ok := s.Find("it")
			require.True(t, ok)
			assert.Len(t, it.Members, 1, "only the leading expression is analyzed")
		})
	}
}

func TestAnalyzeConcurrentCache(t *testing.T) {
	a := New(4)
	exprs := []string{"it.a", "it.b.c", "it.d[0]", "it.e || 1", "it.f + 'x'", "it.g"}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := scope.New()
			for _, src := range exprs {
				_, err := a.Analyze(src, s)
				assert.NoError(t, err)
			}
			it, ok := s.Find("it")
			assert.True(t, ok)
			assert.Len(t, it.Members, len(exprs))
		}()
	}
	wg.Wait()
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		lit      string
		expected string
	}{
		{`'plain'`, "plain"},
		{`"say \"hi\""`, `say "hi"`},
		{`'it\'s'`, "it's"},
		{`'a\nb\tc'`, "a\nb\tc"},
		{`'\x41B\u{43}'`, "ABC"},
		{`'\uD83D\uDE00'`, "\U0001F600"},
		{`'back\\slash'`, `back\slash`},
	}
	for _, tt := range tests {
		got, err := Unquote([]byte(tt.lit))
		require.NoError(t, err, tt.lit)
		assert.Equal(t, tt.expected, got)
	}

	_, err := Unquote([]byte(`'unterminated`))
	assert.Error(t, err)
}
