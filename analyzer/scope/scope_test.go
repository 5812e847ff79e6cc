package scope

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeJoin(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Type
		expected Type
	}{
		{"unknown joins to other", UnknownType, StringType, StringType},
		{"other unknown keeps receiver", NumberType, UnknownType, NumberType},
		{"conflicting kinds keep first", StringType, NumberType, StringType},
		{"arrays join elements", ArrayOf(UnknownType), ArrayOf(StringType), ArrayOf(StringType)},
		{"nested arrays", ArrayOf(ArrayOf(UnknownType)), ArrayOf(ArrayOf(NumberType)), ArrayOf(ArrayOf(NumberType))},
		{"array over object", ObjectType, ArrayOf(StringType), ObjectType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Join(tt.b)
			assert.True(t, got.Equal(tt.expected), "got %s, want %s", got, tt.expected)
		})
	}
}

func TestParseType(t *testing.T) {
	assert.Equal(t, String, ParseType("string").Kind)
	assert.Equal(t, Object, ParseType(" object ").Kind)
	assert.True(t, ParseType("number[]").Equal(ArrayOf(NumberType)))
	assert.True(t, ParseType("string[][]").Equal(ArrayOf(ArrayOf(StringType))))
	assert.True(t, ParseType("whatever").IsUnknown())
	assert.Equal(t, "string[]", ArrayOf(StringType).String())
}

func TestScopeLookup(t *testing.T) {
	root := New()
	it := root.Add("it", nil)
	assert.Equal(t, "it", it.Name)

	nested := root.Nested()
	nested.Add("item", &VariableInfo{Type: StringType})

	found, ok := nested.Find("it")
	require.True(t, ok)
	assert.Same(t, it, found)

	_, ok = root.Find("item")
	assert.False(t, ok, "nested bindings must not leak into the parent")

	_, ok = nested.Own("it")
	assert.False(t, ok)
	assert.Same(t, root, nested.Root())
	assert.Same(t, root, nested.Parent())
}

func TestWithMembersSharesMap(t *testing.T) {
	def := &VariableInfo{Name: "def", Type: ObjectType, Members: map[string]*VariableInfo{}}
	defs := WithMembers(def.Members)
	defs.Add("img", &VariableInfo{Type: StringType, Value: "<img>"})

	require.Contains(t, def.Members, "img")
	assert.Equal(t, "<img>", def.Members["img"].Value)
}

func TestMergeIsMonotonic(t *testing.T) {
	v := &VariableInfo{Name: "names", Type: ArrayOf(UnknownType)}
	v.Merge(&VariableInfo{Usage: Usage{Iteration: true, Section: true}})
	v.Merge(&VariableInfo{Type: ArrayOf(StringType), Usage: Usage{Conditional: true}})
	v.Merge(&VariableInfo{Type: ObjectType})

	assert.True(t, v.Type.Equal(ArrayOf(StringType)))
	assert.True(t, v.Iteration)
	assert.True(t, v.Section)
	assert.True(t, v.Conditional)
	assert.False(t, v.Interpolated)
}

func TestMergeUsageExcludesType(t *testing.T) {
	value := &VariableInfo{Type: StringType, Usage: Usage{Interpolated: true, Escaped: true}}
	value.Member("title").Unescaped = true

	elements := &VariableInfo{}
	elements.MergeUsage(value)

	assert.True(t, elements.Type.IsUnknown())
	assert.True(t, elements.Interpolated)
	assert.True(t, elements.Escaped)
	require.Contains(t, elements.Members, "title")
	assert.True(t, elements.Members["title"].Unescaped)
}

func TestCloneIsDeep(t *testing.T) {
	root := New()
	it := root.Add("it", &VariableInfo{Type: ObjectType})
	it.Member("names").Type = ArrayOf(StringType)

	clone := root.Clone()
	cloned, ok := clone.Find("it")
	require.True(t, ok)
	cloned.Member("names").Iteration = true
	cloned.Member("extra")

	assert.False(t, it.Members["names"].Iteration)
	assert.NotContains(t, it.Members, "extra")
	assert.True(t, cloned.Members["names"].Type.Equal(ArrayOf(StringType)))
}

func TestValues(t *testing.T) {
	defs := New()
	defs.Add("img", &VariableInfo{Type: StringType, Value: "<img>"})
	defs.Add("empty", nil)
	group := defs.Add("group", &VariableInfo{Type: ObjectType})
	group.Member("inner").Value = "x"

	assert.Equal(t, map[string]any{
		"img":   "<img>",
		"group": map[string]any{"inner": "x"},
	}, defs.Values())
}

func TestVariableInfoJSON(t *testing.T) {
	names := &VariableInfo{Name: "names", Type: ArrayOf(UnknownType), Usage: Usage{Iteration: true, Section: true}}
	names.Member("length").Usage = Usage{Conditional: true, Section: true}
	names.ElementInfo().Usage = Usage{Interpolated: true, Escaped: true}

	data, err := json.Marshal(names)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "names",
		"type": "array",
		"iteration": true,
		"section": true,
		"members": {"length": {"name": "length", "conditional": true, "section": true}},
		"elements": {"interpolated": true, "escaped": true}
	}`, string(data))

	typed, err := json.Marshal(&VariableInfo{Name: "tags", Type: ArrayOf(StringType)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"tags","type":{"kind":"array","elements":"string"}}`, string(typed))
}

func TestSeed(t *testing.T) {
	root := New()
	err := Seed(root, map[string]any{
		"it": map[string]any{
			"title": "string",
			"names": "string[]",
			"users": []any{map[string]any{"email": "string"}},
		},
		"count": "number",
	})
	require.NoError(t, err)

	it, ok := root.Find("it")
	require.True(t, ok)
	assert.Equal(t, Object, it.Type.Kind)
	assert.Equal(t, String, it.Members["title"].Type.Kind)
	assert.True(t, it.Members["names"].Type.Equal(ArrayOf(StringType)))

	users := it.Members["users"]
	assert.True(t, users.Type.Equal(ArrayOf(ObjectType)))
	require.NotNil(t, users.Elements)
	assert.Contains(t, users.Elements.Members, "email")

	count, _ := root.Find("count")
	assert.Equal(t, Number, count.Type.Kind)

	assert.Error(t, Seed(root, map[string]any{"bad": []any{"a", "b"}}))
	assert.Error(t, Seed(root, map[string]any{"bad": 42}))
}
