package tag

import "strings"

// Spec is the parsed form of a query string. Zero value matches every entity.
type Spec struct {
	ID            string
	State         string
	Flags         []string
	ExcludedID    string
	ExcludedState string
	ExcludedFlags []string
}

// Parse tokenizes one or more query strings into a single Spec.
// Token grammar: `#name` id, `@name` state, bare token flag; a leading `-`
// negates the token and routes it to the excluded side. Repeated id/state
// tokens keep the last one. Malformed or empty tokens are inert.
func Parse(parts ...string) Spec {
	var s Spec
	for _, part := range parts {
		for _, tok := range strings.Fields(part) {
			negated := false
			if tok[0] == '-' {
				negated = true
				tok = tok[1:]
			}
			if tok == "" {
				continue
			}
			switch tok[0] {
			case '#':
				if name := tok[1:]; name != "" {
					if negated {
						s.ExcludedID = name
					} else {
						s.ID = name
					}
				}
			case '@':
				if name := tok[1:]; name != "" {
					if negated {
						s.ExcludedState = name
					} else {
						s.State = name
					}
				}
			default:
				if negated {
					s.ExcludedFlags = append(s.ExcludedFlags, tok)
				} else {
					s.Flags = append(s.Flags, tok)
				}
			}
		}
	}
	return s
}

// Empty reports whether the spec carries no constraints at all.
func (s Spec) Empty() bool {
	return s.ID == "" && s.State == "" && len(s.Flags) == 0 &&
		s.ExcludedID == "" && s.ExcludedState == "" && len(s.ExcludedFlags) == 0
}

// Match reports whether an entity with the given id, state, and flag set
// satisfies the spec. Pure function, no side effects.
func (s Spec) Match(id, state string, flags map[string]struct{}) bool {
	if s.ID != "" && id != s.ID {
		return false
	}
	if s.ExcludedID != "" && id == s.ExcludedID {
		return false
	}
	if s.State != "" && state != s.State {
		return false
	}
	if s.ExcludedState != "" && state == s.ExcludedState {
		return false
	}
	for _, f := range s.Flags {
		if _, ok := flags[f]; !ok {
			return false
		}
	}
	for _, f := range s.ExcludedFlags {
		if _, ok := flags[f]; ok {
			return false
		}
	}
	return true
}
