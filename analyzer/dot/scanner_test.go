package dot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		opts     ScanOptions
		expected []*Token
	}{
		{
			name:  "interpolation with surrounding text",
			input: "Hello {{=it.name}}!",
			expected: []*Token{
				{Tag: TagText, Text: "Hello ", I: 0},
				{Tag: TagInterpolate, Expr: "it.name", I: 6},
				{Tag: TagText, Text: "!", I: 18},
			},
		},
		{
			name:  "ignore text",
			input: "Hello {{! it.name}}!",
			opts:  ScanOptions{IgnoreText: true},
			expected: []*Token{
				{Tag: TagEncode, Expr: "it.name", I: 6},
			},
		},
		{
			name:  "conditional chain",
			input: "{{? a}}{{?? b}}{{??}}{{?}}",
			expected: []*Token{
				{Tag: TagIf, Expr: "a", I: 0},
				{Tag: TagElse, Expr: "b", I: 7},
				{Tag: TagElse, I: 15},
				{Tag: TagIf, I: 21},
			},
		},
		{
			name:  "iteration with index",
			input: "{{~ it.names :name:i}}{{~}}",
			expected: []*Token{
				{Tag: TagIterate, Expr: "it.names", Value: "name", Index: "i", I: 0},
				{Tag: TagIterate, I: 22},
			},
		},
		{
			name:  "iteration without index",
			input: "{{~it.rows : row }}",
			expected: []*Token{
				{Tag: TagIterate, Expr: "it.rows", Value: "row", I: 0},
			},
		},
		{
			name:  "evaluation keeps trailing braces",
			input: "{{ var o={a:1}}}",
			expected: []*Token{
				{Tag: TagEvaluate, Expr: " var o={a:1}", I: 0},
			},
		},
		{
			name:  "invalid iteration becomes text",
			input: "a{{~ x}}b{{=y}}",
			expected: []*Token{
				{Tag: TagText, Text: "a{{~ x}}b", I: 0},
				{Tag: TagInterpolate, Expr: "y", I: 9},
			},
		},
		{
			name:  "compile-time tags are not runtime tags",
			input: "{{#def.x}}",
			expected: []*Token{
				{Tag: TagText, Text: "{{#def.x}}", I: 0},
			},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Scan(tt.input, tt.opts))
		})
	}
}

func TestScanCoversInput(t *testing.T) {
	input := "<ul>{{~ it.items :item}}<li>{{! item.title }}</li>{{~}}</ul>{{? it.more}}more{{?}}"
	tokens := Scan(input, ScanOptions{})
	require.Len(t, tokens, 10)

	// Tokens are contiguous and literal tokens carry their exact source.
	assert.Equal(t, 0, tokens[0].I)
	for i, tok := range tokens {
		end := len(input)
		if i+1 < len(tokens) {
			end = tokens[i+1].I
		}
		require.Less(t, tok.I, end)
		if tok.Tag == TagText {
			assert.Equal(t, input[tok.I:end], tok.Text)
		}
	}
}

func TestTagNames(t *testing.T) {
	assert.Equal(t, "iteration", TagIterate.Name())
	assert.Equal(t, "conditional else", TagElse.Name())
	assert.True(t, TagElse.Matching())
	assert.False(t, TagInterpolate.Matching())
	assert.True(t, (&Token{Tag: TagElse}).IsOpener())
	assert.False(t, (&Token{Tag: TagIf}).IsOpener())
}
