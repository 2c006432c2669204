package registry

import (
	"fmt"
	"strings"

	"github.com/tobert/halfremembered-launcher/internal/session"
)

// Selector chooses target sessions: every session, a hostname glob, or an
// explicit list of session ids or hostnames.
type Selector struct {
	Pattern string
	Names   []string
}

// All selects every session.
func All() Selector { return Selector{} }

// ParseSelector reads the command-line form: empty or "*" for all, a
// comma-separated list of names, a single value with glob metacharacters
// as a pattern, or a single plain name.
func ParseSelector(s string) Selector {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "*":
		return All()
	case strings.Contains(s, ","):
		var names []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
		return Selector{Names: names}
	case strings.ContainsAny(s, `*?[\`):
		return Selector{Pattern: s}
	default:
		return Selector{Names: []string{s}}
	}
}

// IsAll reports whether the selector matches every session.
func (s Selector) IsAll() bool {
	return s.Pattern == "" && len(s.Names) == 0
}

func (s Selector) String() string {
	switch {
	case s.IsAll():
		return "*"
	case s.Pattern != "":
		return s.Pattern
	default:
		return strings.Join(s.Names, ",")
	}
}

// Select resolves sel against the registry. Names that match no session by
// id or hostname are returned in missing, in the order given. A selector
// that resolves to nothing at all returns ErrNoTargets.
func (r *Registry) Select(sel Selector) (targets []*session.Session, missing []string, err error) {
	switch {
	case sel.IsAll():
		targets = r.All()
	case sel.Pattern != "":
		targets, err = r.FindByHostnamePattern(sel.Pattern)
		if err != nil {
			return nil, nil, err
		}
	default:
		targets, missing = r.byNames(sel.Names)
	}

	if len(targets) == 0 && len(missing) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoTargets, sel)
	}
	return targets, missing, nil
}

func (r *Registry) byNames(names []string) ([]*session.Session, []string) {
	all := r.All()

	var (
		targets []*session.Session
		missing []string
		seen    = make(map[string]struct{})
	)

	for _, name := range names {
		found := false
		for _, s := range all {
			if s.ID() != name && s.Hostname() != name {
				continue
			}
			found = true
			if _, dup := seen[s.ID()]; !dup {
				seen[s.ID()] = struct{}{}
				targets = append(targets, s)
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}

	return targets, missing
}
