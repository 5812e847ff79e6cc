package scope

import "github.com/goccy/go-json"

// Usage records the contexts in which a variable was referenced.
// Flags only ever accumulate.
type Usage struct {
	// Interpolated is set by {{= v}} and {{! v}}.
	Interpolated bool
	// Escaped is set by {{! v}}.
	Escaped bool
	// Unescaped is set by {{= v}}.
	Unescaped bool
	// Conditional is set by {{? v}} and {{?? v}}.
	Conditional bool
	// Iteration is set by {{~ v :x}}.
	Iteration bool
	// Section is set by any conditional or iteration tag.
	Section bool
}

// Merge ORs the flags of other into u.
func (u *Usage) Merge(other Usage) {
	u.Interpolated = u.Interpolated || other.Interpolated
	u.Escaped = u.Escaped || other.Escaped
	u.Unescaped = u.Unescaped || other.Unescaped
	u.Conditional = u.Conditional || other.Conditional
	u.Iteration = u.Iteration || other.Iteration
	u.Section = u.Section || other.Section
}

// IsZero reports whether no flag is set.
func (u Usage) IsZero() bool { return u == Usage{} }

// VariableInfo is the analysis of one variable, member or array element.
type VariableInfo struct {
	// Name is the variable or member name. Element records have no name.
	Name string
	// Type is the inferred type.
	Type Type
	// Value holds the expanded value of a compile-time define.
	Value string
	// Param is the substitution parameter of a parameterized define.
	Param string

	Usage

	// Members maps accessed member names to their analyses.
	Members map[string]*VariableInfo
	// Elements is the merged usage of array elements (its Type stays unknown;
	// the element type lives in Type.Elem).
	Elements *VariableInfo
}

// Member returns the named member, creating it when absent.
func (v *VariableInfo) Member(name string) *VariableInfo {
	if v.Members == nil {
		v.Members = make(map[string]*VariableInfo)
	}
	m, ok := v.Members[name]
	if !ok {
		m = &VariableInfo{Name: name}
		v.Members[name] = m
	}
	return m
}

// ElementInfo returns the element usage record, creating it when absent.
func (v *VariableInfo) ElementInfo() *VariableInfo {
	if v.Elements == nil {
		v.Elements = &VariableInfo{}
	}
	return v.Elements
}

// MergeUsage merges everything except the type from other into v:
// usage flags, members and element usage, recursively.
func (v *VariableInfo) MergeUsage(other *VariableInfo) {
	if other == nil {
		return
	}
	v.Usage.Merge(other.Usage)
	for name, m := range other.Members {
		v.Member(name).Merge(m)
	}
	if other.Elements != nil {
		v.ElementInfo().MergeUsage(other.Elements)
	}
}

// Merge merges other into v including its type, value and parameter.
// Existing values are kept.
func (v *VariableInfo) Merge(other *VariableInfo) {
	if other == nil {
		return
	}
	v.Type = v.Type.Join(other.Type)
	if v.Value == "" {
		v.Value = other.Value
	}
	if v.Param == "" {
		v.Param = other.Param
	}
	v.MergeUsage(other)
}

// Clone returns a deep copy of v.
func (v *VariableInfo) Clone() *VariableInfo {
	if v == nil {
		return nil
	}
	c := *v
	if v.Type.Elem != nil {
		elem := *v.Type.Elem
		c.Type.Elem = &elem
	}
	if v.Members != nil {
		c.Members = make(map[string]*VariableInfo, len(v.Members))
		for name, m := range v.Members {
			c.Members[name] = m.Clone()
		}
	}
	c.Elements = v.Elements.Clone()
	return &c
}

// variableJSON is the wire shape of a VariableInfo. False flags, empty
// strings and the unknown type are omitted.
type variableJSON struct {
	Name         string                   `json:"name,omitempty"`
	Type         *Type                    `json:"type,omitempty"`
	Value        string                   `json:"value,omitempty"`
	Param        string                   `json:"param,omitempty"`
	Interpolated bool                     `json:"interpolated,omitempty"`
	Escaped      bool                     `json:"escaped,omitempty"`
	Unescaped    bool                     `json:"unescaped,omitempty"`
	Conditional  bool                     `json:"conditional,omitempty"`
	Iteration    bool                     `json:"iteration,omitempty"`
	Section      bool                     `json:"section,omitempty"`
	Members      map[string]*VariableInfo `json:"members,omitempty"`
	Elements     *VariableInfo            `json:"elements,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v *VariableInfo) MarshalJSON() ([]byte, error) {
	out := variableJSON{
		Name:         v.Name,
		Value:        v.Value,
		Param:        v.Param,
		Interpolated: v.Interpolated,
		Escaped:      v.Escaped,
		Unescaped:    v.Unescaped,
		Conditional:  v.Conditional,
		Iteration:    v.Iteration,
		Section:      v.Section,
		Members:      v.Members,
		Elements:     v.Elements,
	}
	if !v.Type.IsUnknown() {
		t := v.Type
		out.Type = &t
	}
	return json.MarshalNoEscape(out)
}
