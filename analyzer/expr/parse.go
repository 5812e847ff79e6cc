package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

// ParseExpression parses a single JavaScript expression.
//
// The source is wrapped in parentheses so that object literals and other
// statement-ambiguous forms parse as expressions. A trailing newline before
// the closing parenthesis keeps a line comment at the end of src from
// swallowing it.
//
// When the wrapped form does not parse, src is parsed as a program and its
// leading expression statement is used, so a body such as `it.name;`
// yields `it.name` and whatever follows it is ignored.
func ParseExpression(src string) (js.IExpr, error) {
	ast, err := js.Parse(parse.NewInputString("("+src+"\n)"), js.Options{})
	if err != nil {
		if node, ok := leadingExpression(src); ok {
			return node, nil
		}
		return nil, fmt.Errorf("parse expression %q: %w", src, err)
	}
	if len(ast.List) != 1 {
		return nil, fmt.Errorf("parse expression %q: expected a single expression", src)
	}
	stmt, ok := ast.List[0].(*js.ExprStmt)
	if !ok {
		return nil, fmt.Errorf("parse expression %q: not an expression", src)
	}
	if group, ok := stmt.Value.(*js.GroupExpr); ok {
		return group.X, nil
	}
	return stmt.Value, nil
}

// leadingExpression parses src as a program and returns the value of its
// first statement when that is an expression statement.
func leadingExpression(src string) (js.IExpr, bool) {
	ast, err := js.Parse(parse.NewInputString(src), js.Options{})
	if err != nil || len(ast.List) == 0 {
		return nil, false
	}
	stmt, ok := ast.List[0].(*js.ExprStmt)
	if !ok {
		return nil, false
	}
	return stmt.Value, true
}

var errBadEscape = errors.New("invalid escape sequence")

// Unquote returns the value of a JavaScript string literal, including its
// surrounding quotes.
func Unquote(lit []byte) (string, error) {
	if len(lit) < 2 || (lit[0] != '"' && lit[0] != '\'') || lit[len(lit)-1] != lit[0] {
		return "", fmt.Errorf("invalid string literal %s", lit)
	}
	return Unescape(string(lit[1 : len(lit)-1]))
}

// Unescape resolves JavaScript escape sequences in the body of a string or
// template literal.
func Unescape(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", errBadEscape
		}
		switch c = s[i]; c {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\r':
			// Line continuation, optionally CRLF.
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\n':
		case 'x':
			if i+2 >= len(s) {
				return "", errBadEscape
			}
			n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", errBadEscape
			}
			b.WriteRune(rune(n))
			i += 2
		case 'u':
			r, width, err := unicodeEscape(s[i+1:])
			if err != nil {
				return "", err
			}
			i += width
			if utf16.IsSurrogate(r) && strings.HasPrefix(s[i+1:], `\u`) {
				if low, lowWidth, err := unicodeEscape(s[i+3:]); err == nil {
					if pair := utf16.DecodeRune(r, low); pair != utf8.RuneError {
						r = pair
						i += 2 + lowWidth
					}
				}
			}
			b.WriteRune(r)
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			b.WriteRune(r)
			i += size - 1
		}
	}
	return b.String(), nil
}

// unicodeEscape decodes the part of a \u escape following the 'u' and
// returns the rune and the number of bytes consumed.
func unicodeEscape(s string) (rune, int, error) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return 0, 0, errBadEscape
		}
		n, err := strconv.ParseUint(s[1:end], 16, 32)
		if err != nil || n > utf8.MaxRune {
			return 0, 0, errBadEscape
		}
		return rune(n), end + 1, nil
	}
	if len(s) < 4 {
		return 0, 0, errBadEscape
	}
	n, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, 0, errBadEscape
	}
	return rune(n), 4, nil
}
