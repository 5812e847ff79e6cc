package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abiiranathan/dot-analyzer/analyzer/scope"
)

// execute runs the CLI with args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(envConfig, "")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTemplate(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func decode(t *testing.T, data string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &v), data)
	return v
}

// field follows keys through nested JSON objects.
func field(t *testing.T, v any, keys ...string) any {
	t.Helper()
	for _, key := range keys {
		obj, ok := v.(map[string]any)
		require.True(t, ok, "%q: not an object: %v", key, v)
		v, ok = obj[key]
		require.True(t, ok, "missing key %q in %v", key, obj)
	}
	return v
}

func TestAnalyzeSampleViews(t *testing.T) {
	out, err := execute(t, "analyze", filepath.Join("..", "sample", "views"),
		"--context-file", filepath.Join("..", "sample", "context.yaml"))
	require.NoError(t, err)

	result := decode(t, out)
	files, ok := result["files"].([]any)
	require.True(t, ok)
	require.Len(t, files, 2)
	assert.Equal(t, "dashboard.dot", field(t, files[0], "template"))
	assert.Equal(t, "inpatient/treatment-chart.dot", field(t, files[1], "template"))
	assert.NotContains(t, files[1], "diagnostics")

	chart := field(t, files[1], "variables", "it", "members")
	assert.Equal(t, map[string]any{"kind": "array", "elements": "object"}, field(t, chart, "billedDrugs", "type"))
	assert.Equal(t, true, field(t, chart, "billedDrugs", "elements", "members", "price", "interpolated"))
	assert.Equal(t, true, field(t, chart, "prescriptions", "elements", "members", "drugName", "escaped"))
	assert.Equal(t, true, field(t, chart, "management", "members", "length", "conditional"))
	assert.Equal(t, true, field(t, chart, "breadcrumbs", "elements", "members", "isLast", "conditional"))
	assert.Equal(t, true, field(t, chart, "currentUser", "members", "name", "escaped"))
	assert.Equal(t, "number", field(t, chart, "visit", "members", "id", "type"))

	dashboard := field(t, files[0], "variables", "it", "members")
	assert.Equal(t, map[string]any{"kind": "array", "elements": "string"}, field(t, dashboard, "roles", "type"))
}

func TestAnalyzeSingleTemplate(t *testing.T) {
	path := writeTemplate(t, "page.dot", "{{##def.x:1#}}{{##def.x:2#}}{{? it.user }}{{! it.user.name }}{{?}}")

	out, err := execute(t, "analyze", path)
	require.NoError(t, err)

	vars := decode(t, out)
	assert.Equal(t, true, field(t, vars, "it", "members", "user", "conditional"))
	assert.Equal(t, true, field(t, vars, "it", "members", "user", "members", "name", "escaped"))
	assert.Equal(t, "1", field(t, vars, "def", "members", "x", "value"))
}

func TestAnalyzeSingleTemplateError(t *testing.T) {
	path := writeTemplate(t, "broken.dot", "<p>\n{{? it.ok }}</p>")

	_, err := execute(t, "analyze", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.dot:2:1: missing closing tag")
}

func TestAnalyzeBundle(t *testing.T) {
	out, err := execute(t, "analyze", filepath.Join("validator", "testdata", "bundle.txtar"))
	require.NoError(t, err)

	files, ok := decode(t, out)["files"].([]any)
	require.True(t, ok)
	require.Len(t, files, 2)
	assert.Equal(t, "pages/bad.jst", field(t, files[0], "template"))
}

func TestAnalyzeCompressed(t *testing.T) {
	path := writeTemplate(t, "page.dot", "{{= it.title }}")

	out, err := execute(t, "analyze", path, "--compress")
	require.NoError(t, err)

	zr, err := gzip.NewReader(bytes.NewReader([]byte(out)))
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, true, field(t, decode(t, string(data)), "it", "members", "title", "unescaped"))
}

func TestAnalyzeFlagErrors(t *testing.T) {
	path := writeTemplate(t, "page.dot", "{{= it.title }}")

	_, err := execute(t, "analyze", path, "--watch")
	assert.ErrorContains(t, err, "--watch requires a directory")

	_, err = execute(t, "analyze", path, "--sandbox", "rhino")
	assert.ErrorContains(t, err, "unknown sandbox")

	_, err = execute(t, "analyze", path, "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")

	_, err = execute(t, "analyze", filepath.Join(t.TempDir(), "missing.dot"))
	assert.Error(t, err)

	_, err = execute(t, "analyze", path, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestEncodeJSONKeepsMarkup(t *testing.T) {
	vars := map[string]*scope.VariableInfo{
		"img": {Name: "img", Type: scope.StringType, Value: `<img src="a">`},
	}

	var buf bytes.Buffer
	require.NoError(t, encodeJSON(&buf, vars, false))
	assert.Contains(t, buf.String(), `"value":"<img src=\"a\">"`)
	assert.NotContains(t, buf.String(), `\u003c`)
}

func TestExpandCommand(t *testing.T) {
	path := writeTemplate(t, "page.dot", `{{##def.greet:who:<b>Hello who</b>#}}{{#def.greet:'Ann'}} {{= it.x }}`)

	out, err := execute(t, "expand", path)
	require.NoError(t, err)
	assert.Equal(t, "<b>Hello 'Ann'</b> {{= it.x }}", out)
}

func TestTokensCommand(t *testing.T) {
	path := writeTemplate(t, "page.dot", "{{##def.t:x#}}<p>{{? it.a }}{{= it.b }}{{?}}</p>")

	out, err := execute(t, "tokens", path, "--tree")
	require.NoError(t, err)
	var tree []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	require.Len(t, tree, 1)
	assert.Equal(t, "?", tree[0]["tag"])
	assert.Len(t, tree[0]["nodes"], 1)

	out, err = execute(t, "tokens", path, "--text")
	require.NoError(t, err)
	var flat []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &flat))
	assert.Len(t, flat, 5)

	out, err = execute(t, "tokens", path, "--defs")
	require.NoError(t, err)
	var defTokens []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &defTokens))
	require.Len(t, defTokens, 1)
	assert.Equal(t, "##", defTokens[0]["tag"])
	assert.Equal(t, "t", defTokens[0]["name"])

	_, err = execute(t, "tokens", path, "--defs", "--tree")
	assert.Error(t, err)

	broken := writeTemplate(t, "broken.dot", "{{~}}")
	_, err = execute(t, "tokens", broken, "--tree")
	assert.ErrorContains(t, err, "without opening tag")
}
