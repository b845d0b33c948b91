// Package filter decides which keys or paths take part in a transfer, using
// shell-style globs. Patterns are compiled without separators, so `*` also
// matches across `/`: "*.tmp" matches "images/cache/b.tmp".
package filter

import (
	"github.com/gobwas/glob"

	"remoteops/internal/models"
	"remoteops/internal/opserr"
)

type Matcher struct {
	exclude []glob.Glob
	include []glob.Glob
}

// New compiles the exclude and include patterns. An invalid pattern is a
// configuration error.
func New(exclude, include []string) (*Matcher, error) {
	m := &Matcher{}
	var err error
	if m.exclude, err = compile(exclude); err != nil {
		return nil, err
	}
	if m.include, err = compile(include); err != nil {
		return nil, err
	}
	return m, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, opserr.Newf(opserr.ErrConfiguration, "compile pattern", "%q: %v", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Skip returns the skip reason for name, or "" when name should be
// transferred. Excludes are checked first; when include patterns exist a
// name must match at least one of them.
func (m *Matcher) Skip(name string) string {
	if m == nil {
		return ""
	}
	if matchAny(m.exclude, name) {
		return models.SkipReasonExcluded
	}
	if len(m.include) > 0 && !matchAny(m.include, name) {
		return models.SkipReasonNotIncluded
	}
	return ""
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
