// Package scope models the symbol tables shared by the compile-time and
// runtime stages of template analysis: a tree of scopes mapping names to
// merged VariableInfo analyses, and the closed type lattice used to merge
// type evidence.
package scope

// Scope is one node of a symbol table tree.
//
// The parent reference is used only for name resolution. A nested scope
// never owns entries of its parent, and results are copied upward
// explicitly by the code that created the nested scope.
//
// Thread-safety: none. A Scope is owned by a single analysis at a time;
// clone it before handing it to another goroutine.
type Scope struct {
	parent  *Scope
	members map[string]*VariableInfo
}

// New creates an empty root scope.
func New() *Scope {
	return &Scope{members: make(map[string]*VariableInfo)}
}

// WithMembers creates a root scope backed by an existing member map.
// Entries added to the scope are visible through the map and vice versa,
// which is how the define table is exposed as the members of `def`.
func WithMembers(members map[string]*VariableInfo) *Scope {
	if members == nil {
		members = make(map[string]*VariableInfo)
	}
	return &Scope{members: members}
}

// Nested creates a child scope whose lookups fall back to s.
func (s *Scope) Nested() *Scope {
	return &Scope{parent: s, members: make(map[string]*VariableInfo)}
}

// Parent returns the enclosing scope, or nil for a root.
func (s *Scope) Parent() *Scope { return s.parent }

// Root returns the outermost ancestor of s.
func (s *Scope) Root() *Scope {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

// Members returns the scope's own entries.
func (s *Scope) Members() map[string]*VariableInfo { return s.members }

// Own returns the entry declared directly in s.
func (s *Scope) Own(name string) (*VariableInfo, bool) {
	v, ok := s.members[name]
	return v, ok
}

// Add declares name in s, replacing any previous own entry, and returns info.
// A nil info declares an empty VariableInfo.
func (s *Scope) Add(name string, info *VariableInfo) *VariableInfo {
	if info == nil {
		info = &VariableInfo{}
	}
	if info.Name == "" {
		info.Name = name
	}
	s.members[name] = info
	return info
}

// Find resolves name in s and then in its ancestors.
func (s *Scope) Find(name string) (*VariableInfo, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.members[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Clone deep-copies s and its ancestors. The clone shares no VariableInfo
// with the original, so it can be analyzed on another goroutine.
func (s *Scope) Clone() *Scope {
	if s == nil {
		return nil
	}
	c := &Scope{
		parent:  s.parent.Clone(),
		members: make(map[string]*VariableInfo, len(s.members)),
	}
	for name, v := range s.members {
		c.members[name] = v.Clone()
	}
	return c
}

// Values builds the value bag handed to compile-time evaluation: entries
// with a value map to it, entries with members map to a nested bag.
// Entries with neither are omitted.
func (s *Scope) Values() map[string]any {
	return valuesOf(s.members)
}

func valuesOf(members map[string]*VariableInfo) map[string]any {
	result := make(map[string]any, len(members))
	for name, info := range members {
		switch {
		case info.Value != "":
			result[name] = info.Value
		case info.Members != nil:
			result[name] = valuesOf(info.Members)
		}
	}
	return result
}
