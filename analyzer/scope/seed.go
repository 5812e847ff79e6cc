package scope

import (
	"fmt"
	"sort"
)

// Seed declares root variables described by a context specification, as
// decoded from a YAML or JSON context file.
//
// Specification values:
//   - string: a type name understood by ParseType ("string", "item[]", ...)
//   - map: an object whose keys are member specifications
//   - list with one element: an array whose element is that specification
//
// Seeded entries carry types only; usage flags are left for the analysis.
func Seed(s *Scope, spec map[string]any) error {
	names := make([]string, 0, len(spec))
	for name := range spec {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info, err := seedInfo(name, spec[name])
		if err != nil {
			return err
		}
		if existing, ok := s.Own(name); ok {
			existing.Merge(info)
			continue
		}
		s.Add(name, info)
	}
	return nil
}

func seedInfo(name string, spec any) (*VariableInfo, error) {
	info := &VariableInfo{Name: name}
	switch v := spec.(type) {
	case nil:
	case string:
		info.Type = ParseType(v)
	case map[string]any:
		info.Type = ObjectType
		for member, memberSpec := range v {
			m, err := seedInfo(member, memberSpec)
			if err != nil {
				return nil, err
			}
			info.Member(member).Merge(m)
		}
	case []any:
		if len(v) != 1 {
			return nil, fmt.Errorf("context %q: array specification needs exactly one element, got %d", name, len(v))
		}
		elem, err := seedInfo("", v[0])
		if err != nil {
			return nil, err
		}
		info.Type = ArrayOf(elem.Type)
		if elem.Members != nil {
			info.ElementInfo().MergeUsage(elem)
		}
	default:
		return nil, fmt.Errorf("context %q: unsupported specification of type %T", name, spec)
	}
	return info, nil
}
