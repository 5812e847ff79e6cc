package defs

import (
	"regexp"
	"strings"
)

var (
	// scanRegex matches a define or a macro evaluation.
	scanRegex = regexp.MustCompile(`\{\{##\s*([\w.$]+)\s*(:|=)([\s\S]+?)#\}\}|\{\{#([\s\S]+?)\}\}`)

	// defineParamRegex splits `param:value` string define bodies.
	defineParamRegex = regexp.MustCompile(`^\s*([\w$]+):([\s\S]+)`)

	// useParamRegex matches `def.name:arg` references inside macro code.
	useParamRegex = regexp.MustCompile(`(^|[^\w$])def(?:\.|\[['"])([\w$.]+)(?:['"]\])?\s*:\s*([\w$.]+|"[^"]+"|'[^']+'|\{[^}]+\})`)
)

// macroBodyOffset is the length of the "{{#" prefix of a macro tag.
const macroBodyOffset = 3

// ScanOptions controls Scan.
type ScanOptions struct {
	// IgnoreText omits literal text tokens from the output.
	IgnoreText bool
}

// Scan converts a template into a flat sequence of compile-time tokens.
// Runtime tags are left inside literal text tokens.
//
// Macro tokens carry their body split into code fragments and define
// references in Nodes, with offsets relative to text.
func Scan(text string, opts ScanOptions) []*Token {
	var tokens []*Token
	prev := 0

	for _, m := range scanRegex.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]

		if !opts.IgnoreText && prev < start {
			tokens = append(tokens, &Token{Tag: TagText, Text: text[prev:start], I: prev})
		}
		prev = end

		var token *Token
		if m[2] >= 0 {
			token = defineToken(text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]])
		} else {
			token = &Token{Tag: TagMacro, Nodes: scanParams(text[m[8]:m[9]], start+macroBodyOffset)}
		}
		token.I = start
		tokens = append(tokens, token)
	}

	if !opts.IgnoreText && prev < len(text) {
		tokens = append(tokens, &Token{Tag: TagText, Text: text[prev:], I: prev})
	}
	return tokens
}

func defineToken(name, assign, body string) *Token {
	token := &Token{
		Tag:    TagDefine,
		Name:   strings.TrimPrefix(name, "def."),
		Assign: assign,
	}
	if assign == "=" {
		token.Code = body
		return token
	}
	if pm := defineParamRegex.FindStringSubmatch(body); pm != nil {
		token.Param = pm[1]
		token.Value = pm[2]
	} else {
		token.Value = body
	}
	return token
}

// scanParams splits macro code into code fragments and define references.
// base is the input offset of code.
func scanParams(code string, base int) []*Token {
	var tokens []*Token
	prev := 0

	for _, m := range useParamRegex.FindAllStringSubmatchIndex(code, -1) {
		// The reference starts after the one-character prefix group.
		exprStart := m[3]
		if prev < exprStart {
			tokens = append(tokens, &Token{Tag: TagCode, Code: code[prev:exprStart], I: base + prev})
		}
		prev = m[1]

		tokens = append(tokens, &Token{
			Tag: TagParam,
			Def: code[m[4]:m[5]],
			Arg: code[m[6]:m[7]],
			I:   base + exprStart,
		})
	}

	if prev < len(code) {
		tokens = append(tokens, &Token{Tag: TagCode, Code: code[prev:], I: base + prev})
	}
	return tokens
}
