package dot

import "regexp"

// scanRegex matches runtime tags. Evaluation is a separate alternative
// because its body may end with extra closing braces ({{ o={a:1}}}).
var scanRegex = regexp.MustCompile(`\{\{([^=!#?~][\s\S]*?\}*)\}\}|\{\{(=|!|\?\??|~)\s*([\s\S]*?)\}\}`)

// iterateRegex splits an iteration body into expression, value and index.
var iterateRegex = regexp.MustCompile(`^([\s\S]+?)\s*:\s*([\w$]+)\s*(?::\s*([\w$]+))?\s*$`)

// ScanOptions controls Scan.
type ScanOptions struct {
	// IgnoreText omits literal text tokens from the output.
	IgnoreText bool
}

// Scan converts a runtime template into a flat token sequence.
//
// Unless IgnoreText is set, the tokens cover the whole input: text between
// and around tags is emitted as TagText tokens in order. An iteration tag
// whose body does not match `expr : value [: index]` is not a tag; its
// source becomes part of the following literal text.
//
// Scan never fails. Structural problems are reported by Parse.
//
// Thread-safety: Pure function, safe for concurrent calls.
func Scan(text string, opts ScanOptions) []*Token {
	var tokens []*Token
	prev := 0

	for _, m := range scanRegex.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]

		var tag Tag
		var body string
		if m[2] >= 0 {
			tag = TagEvaluate
			body = text[m[2]:m[3]]
		} else {
			tag = Tag(text[m[4]:m[5]])
			body = text[m[6]:m[7]]
		}

		token := newToken(tag, body)
		if token == nil {
			// Not a valid tag: it stays in the pending literal text.
			continue
		}

		if !opts.IgnoreText && prev < start {
			tokens = append(tokens, &Token{Tag: TagText, Text: text[prev:start], I: prev})
		}
		prev = end

		token.I = start
		tokens = append(tokens, token)
	}

	if !opts.IgnoreText && prev < len(text) {
		tokens = append(tokens, &Token{Tag: TagText, Text: text[prev:], I: prev})
	}
	return tokens
}

// newToken builds the token for a recognized tag body, or returns nil when
// the body is not valid for the tag.
func newToken(tag Tag, body string) *Token {
	if tag != TagIterate {
		return &Token{Tag: tag, Expr: body}
	}

	if body == "" {
		return &Token{Tag: tag}
	}
	m := iterateRegex.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	return &Token{Tag: tag, Expr: m[1], Value: m[2], Index: m[3]}
}
