package dot

import "fmt"

// ErrorKind classifies structural tag errors.
type ErrorKind int

// Enumerates structural tag error kinds.
const (
	// UnmatchedCloser is a closing tag with no open section.
	UnmatchedCloser ErrorKind = iota
	// MismatchedTag is a closing tag of a different family than the open section.
	MismatchedTag
	// MissingCloser is a section still open at the end of the input.
	MissingCloser
)

// TagError is a structural error found by Parse. Structural errors are
// fatal for the analysis of the template.
type TagError struct {
	Kind ErrorKind
	// Tag and Offset identify the token that triggered the error (the
	// unclosed opener for MissingCloser).
	Tag    Tag
	Offset int
	// OpenerTag and OpenerOffset identify the open section a mismatched
	// closer was compared with.
	OpenerTag    Tag
	OpenerOffset int
}

func (e *TagError) Error() string {
	switch e.Kind {
	case UnmatchedCloser:
		return fmt.Sprintf("closing %s tag without opening tag at %d", e.Tag, e.Offset)
	case MismatchedTag:
		return fmt.Sprintf("closing %s tag at %d does not match opening tag %s at %d", e.Tag, e.Offset, e.OpenerTag, e.OpenerOffset)
	default:
		return fmt.Sprintf("missing closing tag for opening tag %s at %d", e.Tag, e.Offset)
	}
}

// treeBuilder walks an immutable token slice with a read cursor.
type treeBuilder struct {
	tokens []*Token
	pos    int
	stack  []*Token
	// reopened is the {{?? expr}} token that just closed a branch and must
	// be processed again as the opener of the next one.
	reopened *Token
}

// Parse converts the flat token sequence produced by Scan into a tree.
//
// Openers ({{? x}}, {{??}}, {{?? x}}, {{~ x:v}}) receive the tokens up to
// their matching closer in Nodes, and End is set to the closer's offset.
// Closers are dropped from the result. An else tag closes the current
// branch and is then reinterpreted as the opener of the next branch.
//
// Algorithm:
//  1. A matching-family token without expression (or any else tag) that
//     was not just reopened is a closer: pop and compare families
//  2. A matching-family token with an expression (or a reopened else) is
//     an opener: push it and collect nested tokens recursively
//  3. Any other token is appended unchanged
//
// The input slice is not modified; tokens themselves receive Nodes and End.
//
// Returns a *TagError for an unmatched closer, a family mismatch, or a
// section left open at the end of input.
func Parse(tokens []*Token) ([]*Token, error) {
	b := &treeBuilder{tokens: tokens}
	return b.parse()
}

func (b *treeBuilder) parse() ([]*Token, error) {
	var result []*Token

	for b.pos < len(b.tokens) {
		token := b.tokens[b.pos]
		b.pos++

		if token.Tag.Matching() {
			reopened := b.reopened == token
			b.reopened = nil

			if (token.Expr == "" || token.Tag == TagElse) && !reopened {
				if err := b.close(token); err != nil {
					return nil, err
				}
				return result, nil
			}

			b.stack = append(b.stack, token)
			nodes, err := b.parse()
			if err != nil {
				return nil, err
			}
			token.Nodes = nodes
		}

		result = append(result, token)
	}

	if len(b.stack) > 0 {
		opener := b.stack[len(b.stack)-1]
		return nil, &TagError{Kind: MissingCloser, Tag: opener.Tag, Offset: opener.I}
	}
	return result, nil
}

// close pops the innermost opener for closer and marks it closed.
func (b *treeBuilder) close(closer *Token) error {
	if len(b.stack) == 0 {
		return &TagError{Kind: UnmatchedCloser, Tag: closer.Tag, Offset: closer.I}
	}

	opener := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]

	if closer.Tag.family() != opener.Tag.family() {
		return &TagError{
			Kind:         MismatchedTag,
			Tag:          closer.Tag,
			Offset:       closer.I,
			OpenerTag:    opener.Tag,
			OpenerOffset: opener.I,
		}
	}

	opener.End = closer.I
	opener.Closed = true

	if closer.Tag == TagElse {
		// Process the else tag again as the opener of the next branch.
		b.reopened = closer
		b.pos--
	}
	return nil
}
