// Package watch describes filesystem change events and the stored watch
// configurations that produce them. Watching the filesystem itself is left
// to an external watcher, which reports changed paths with NotifyChangeCommand
// ("launcher notify"); the dispatcher resolves them here into Events the
// orchestrator can sync.
package watch

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/tobert/halfremembered-launcher/models"
)

// Event reports a changed file. RelativePath is slash-separated and becomes
// the sync destination on every daemon.
type Event struct {
	AbsolutePath string
	RelativePath string
}

// Filter applies include and exclude globs in path.Match syntax. A pattern
// without a slash is matched against the base name, otherwise against the
// whole relative path. Excludes win over includes; an empty include list
// admits everything.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter validates every pattern before building the Filter.
func NewFilter(include, exclude []string) (Filter, error) {
	if err := ValidatePatterns(include); err != nil {
		return Filter{}, err
	}
	if err := ValidatePatterns(exclude); err != nil {
		return Filter{}, err
	}
	return Filter{include: include, exclude: exclude}, nil
}

// ValidatePatterns reports the first malformed glob.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if p == "" {
			return fmt.Errorf("%w: empty pattern", ErrBadPattern)
		}
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("%w: %q", ErrBadPattern, p)
		}
	}
	return nil
}

// Match reports whether the slash-separated relative path passes the filter.
func (f Filter) Match(rel string) bool {
	for _, p := range f.exclude {
		if matches(p, rel) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, p := range f.include {
		if matches(p, rel) {
			return true
		}
	}
	return false
}

func matches(pattern, rel string) bool {
	target := rel
	if !strings.Contains(pattern, "/") {
		target = path.Base(rel)
	}
	ok, _ := path.Match(pattern, target)
	return ok
}

// Resolve maps a changed file to an Event under the watch w. It reports
// false when the file is filtered out, or sits in a subdirectory of a
// non-recursive watch. The watch destination, if any, prefixes the
// relative path.
func Resolve(w models.Watch, absPath string) (Event, bool, error) {
	if w.Path == "" {
		return Event{}, false, ErrEmptyPath
	}

	rel, err := filepath.Rel(w.Path, absPath)
	if err != nil || !filepath.IsLocal(rel) {
		return Event{}, false, fmt.Errorf("%w: %s not under %s", ErrOutsideRoot, absPath, w.Path)
	}
	rel = filepath.ToSlash(rel)

	if !w.Recursive && strings.Contains(rel, "/") {
		return Event{}, false, nil
	}

	filter, err := NewFilter(w.Include, w.Exclude)
	if err != nil {
		return Event{}, false, err
	}
	if !filter.Match(rel) {
		return Event{}, false, nil
	}

	if w.Destination != "" {
		rel = path.Join(filepath.ToSlash(w.Destination), rel)
	}
	return Event{AbsolutePath: absPath, RelativePath: rel}, true, nil
}
