// Package dot tokenizes runtime doT templates and builds the nested tag
// tree used by the variable analysis.
//
// The template must already have its compile-time tags ({{##...#}} and
// {{#...}}) expanded; see package defs.
package dot

// Tag identifies the family of a runtime token.
type Tag string

// Enumerates the runtime token families.
const (
	TagEvaluate    Tag = ""   // {{ code }}
	TagInterpolate Tag = "="  // {{= expr }}
	TagEncode      Tag = "!"  // {{! expr }}
	TagIf          Tag = "?"  // {{? expr }} opener, {{?}} closer
	TagElse        Tag = "??" // {{??}} or {{?? expr }}
	TagIterate     Tag = "~"  // {{~ expr :value[:index] }} opener, {{~}} closer
	TagText        Tag = "_t" // literal text
)

// Matching reports whether tokens of the family open and close sections.
func (t Tag) Matching() bool {
	return t == TagIf || t == TagElse || t == TagIterate
}

// family returns the leading character that must agree between an opener
// and its closer ("?" for both conditional tags).
func (t Tag) family() byte {
	if t == "" {
		return 0
	}
	return t[0]
}

// Name returns a readable name for diagnostics.
func (t Tag) Name() string {
	switch t {
	case TagEvaluate:
		return "evaluation"
	case TagInterpolate:
		return "interpolation"
	case TagEncode:
		return "encoded interpolation"
	case TagIf:
		return "conditional"
	case TagElse:
		return "conditional else"
	case TagIterate:
		return "iteration"
	case TagText:
		return "text"
	}
	return string(t)
}

// Token is one runtime template token.
type Token struct {
	// Tag is the token family.
	Tag Tag `json:"tag"`
	// Expr is the tag expression. Matching tags without one are closers
	// (except {{??}}, which both closes and opens).
	Expr string `json:"expr,omitempty"`
	// Value is the name bound to the current element (iteration only).
	Value string `json:"value,omitempty"`
	// Index is the optional name bound to the current index (iteration only).
	Index string `json:"index,omitempty"`
	// Text is the literal text (text tokens only).
	Text string `json:"text,omitempty"`
	// I is the input offset of the first character of the token.
	I int `json:"i"`

	// Nodes holds the tokens nested in an opener. Set by Parse.
	Nodes []*Token `json:"nodes,omitempty"`
	// End is the input offset of the closing tag. Only meaningful once Closed.
	End int `json:"end,omitempty"`
	// Closed reports whether Parse matched the opener with a closer.
	Closed bool `json:"-"`
}

// IsOpener reports whether the token starts a section.
func (t *Token) IsOpener() bool {
	return t.Tag.Matching() && (t.Expr != "" || t.Tag == TagElse)
}
