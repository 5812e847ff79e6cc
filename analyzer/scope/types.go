package scope

import (
	"strings"

	"github.com/goccy/go-json"
)

// Kind is the lattice position of an inferred type.
type Kind uint8

// Enumerates the inferred type kinds. Unknown is the bottom of the lattice.
const (
	Unknown Kind = iota
	String
	Number
	Boolean
	Array
	Object
)

var kindNames = [...]string{
	Unknown: "unknown",
	String:  "string",
	Number:  "number",
	Boolean: "boolean",
	Array:   "array",
	Object:  "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Type is an inferred type. Elem is only meaningful for arrays and is nil
// while the element type is still unknown.
type Type struct {
	Kind Kind
	Elem *Type
}

// Convenience values for the scalar kinds.
var (
	UnknownType = Type{}
	StringType  = Type{Kind: String}
	NumberType  = Type{Kind: Number}
	BooleanType = Type{Kind: Boolean}
	ObjectType  = Type{Kind: Object}
)

// ArrayOf returns the array type with the given element type.
func ArrayOf(elem Type) Type {
	if elem.IsUnknown() {
		return Type{Kind: Array}
	}
	e := elem
	return Type{Kind: Array, Elem: &e}
}

// IsUnknown reports whether nothing is known about the type.
func (t Type) IsUnknown() bool { return t.Kind == Unknown }

// IsArray reports whether t is array-kind, regardless of its element type.
func (t Type) IsArray() bool { return t.Kind == Array }

// ElemType returns the element type of an array, or UnknownType.
func (t Type) ElemType() Type {
	if t.Kind != Array || t.Elem == nil {
		return UnknownType
	}
	return *t.Elem
}

// Join merges two observations of the same value's type.
//
// Merge rules:
//   - Unknown joined with T is T
//   - Arrays join element-wise
//   - Two distinct known kinds keep the receiver (first observed) kind
//
// The result is never less specific than either argument's known part,
// which keeps member merges monotonic.
func (t Type) Join(other Type) Type {
	switch {
	case other.IsUnknown():
		return t
	case t.IsUnknown():
		return other
	case t.Kind == Array && other.Kind == Array:
		return ArrayOf(t.ElemType().Join(other.ElemType()))
	default:
		return t
	}
}

// Equal reports structural equality.
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	if t.Kind != Array {
		return true
	}
	return t.ElemType().Equal(other.ElemType())
}

func (t Type) String() string {
	if t.Kind == Array && t.Elem != nil {
		return t.Elem.String() + "[]"
	}
	return t.Kind.String()
}

// ParseType parses the textual form produced by String ("string",
// "number[]", "object[][]", ...). Unrecognized names yield UnknownType.
func ParseType(s string) Type {
	s = strings.TrimSpace(s)
	if base, ok := strings.CutSuffix(s, "[]"); ok {
		return ArrayOf(ParseType(base))
	}
	for k, name := range kindNames {
		if name == s {
			return Type{Kind: Kind(k)}
		}
	}
	return UnknownType
}

// MarshalJSON renders plain kinds as strings and arrays with a known
// element type as {"kind":"array","elements":<elem>}.
func (t Type) MarshalJSON() ([]byte, error) {
	if t.Kind == Array && t.Elem != nil {
		return json.MarshalNoEscape(struct {
			Kind     string `json:"kind"`
			Elements Type   `json:"elements"`
		}{Kind: t.Kind.String(), Elements: *t.Elem})
	}
	return json.MarshalNoEscape(t.Kind.String())
}
