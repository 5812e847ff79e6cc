// Package defs expands the compile-time layer of doT templates: defines
// ({{##def.name:value#}}, {{##def.name=code#}}) and macro evaluations
// ({{#code}}), producing a template that contains runtime tags only.
package defs

// Tag identifies the kind of a compile-time token.
type Tag string

// Enumerates the compile-time token kinds.
const (
	TagDefine Tag = "##" // {{##name:value#}} or {{##name=code#}}
	TagMacro  Tag = "#"  // {{#code}}
	TagCode   Tag = "#c" // code fragment inside a macro
	TagParam  Tag = "#p" // def.name:arg reference inside a macro
	TagText   Tag = "_t" // literal text
)

// Token is one compile-time template token. Only the fields relevant to
// Tag are set.
type Token struct {
	Tag Tag `json:"tag"`

	// Name is the define name without a leading "def." (defines).
	Name string `json:"name,omitempty"`
	// Assign is ":" for template-string defines and "=" for code defines.
	Assign string `json:"assign,omitempty"`
	// Param is the optional substitution parameter of a string define.
	Param string `json:"param,omitempty"`
	// Value is the body of a string define.
	Value string `json:"value,omitempty"`
	// Code is the body of a code define or a macro code fragment.
	Code string `json:"code,omitempty"`

	// Def and Arg are the referenced define and its argument (references).
	Def string `json:"def,omitempty"`
	Arg string `json:"arg,omitempty"`

	// Text is the literal text (text tokens).
	Text string `json:"text,omitempty"`

	// I is the input offset of the first character of the token.
	I int `json:"i"`

	// Nodes holds the code fragments and references of a macro.
	Nodes []*Token `json:"nodes,omitempty"`
}
