// Package skip provides concrete skip-predicate implementations for the
// `(candidate, root) -> bool` contract the orchestrator consumes when it
// builds scan candidates: None, DotGit, and a gitignore-style pattern
// matcher.
package skip

import (
	"path/filepath"
	"strings"

	"github.com/pixelgardenlabs/pgsync/internal/plog"
)

// Predicate decides whether a candidate absolute path, relative to root,
// should be left out of the orchestrator's scan candidates.
type Predicate func(candidate, root string) bool

// None never skips anything.
func None(candidate, root string) bool { return false }

// DotGit skips any path whose first relative path segment is ".git".
func DotGit(candidate, root string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	return first == ".git"
}

type matchType int

const (
	literalMatch matchType = iota
	prefixMatch
	suffixMatch
	globMatch
)

type pattern struct {
	original      string
	clean         string
	matchType     matchType
	matchBasename bool
}

// Patterns matches relative paths against a fixed set of gitignore-style
// patterns (literal, basename-literal, prefix, suffix, glob). Patterns
// without a slash match basenames anywhere in the tree; matching is
// case-insensitive.
type Patterns struct {
	literals         map[string]struct{}
	basenameLiterals map[string]struct{}
	rest             []pattern
}

// NewPatterns compiles patterns into a Patterns predicate.
func NewPatterns(patterns []string) *Patterns {
	p := &Patterns{
		literals:         make(map[string]struct{}),
		basenameLiterals: make(map[string]struct{}),
	}
	shouldMatchBasename := func(s string) bool { return !strings.Contains(s, "/") }

	for _, raw := range patterns {
		s := normalize(raw)
		switch {
		case strings.ContainsAny(s, "*?["):
			switch {
			case strings.HasSuffix(s, "/*"):
				p.rest = append(p.rest, pattern{original: s, clean: strings.TrimSuffix(s, "/*"), matchType: prefixMatch})
			case strings.HasSuffix(s, "*") && !strings.ContainsAny(s[:len(s)-1], "*?["):
				p.rest = append(p.rest, pattern{original: s, clean: strings.TrimSuffix(s, "*"), matchType: prefixMatch, matchBasename: shouldMatchBasename(s)})
			case strings.HasPrefix(s, "*") && !strings.ContainsAny(s[1:], "*?["):
				p.rest = append(p.rest, pattern{original: s, clean: s[1:], matchType: suffixMatch, matchBasename: shouldMatchBasename(s)})
			default:
				p.rest = append(p.rest, pattern{original: s, clean: s, matchType: globMatch, matchBasename: shouldMatchBasename(s)})
			}
		case strings.HasSuffix(s, "/"):
			p.rest = append(p.rest, pattern{original: s, clean: strings.TrimSuffix(s, "/"), matchType: prefixMatch})
		case shouldMatchBasename(s):
			p.basenameLiterals[s] = struct{}{}
		default:
			p.literals[s] = struct{}{}
		}
	}
	return p
}

// Skip reports whether candidate (relative to root) matches any pattern.
func (p *Patterns) Skip(candidate, root string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	path := normalize(rel)
	base := normalize(filepath.Base(candidate))

	if _, ok := p.literals[path]; ok {
		return true
	}
	if _, ok := p.basenameLiterals[base]; ok {
		return true
	}
	for _, pat := range p.rest {
		target := path
		if pat.matchBasename {
			target = base
		}
		switch pat.matchType {
		case prefixMatch:
			if strings.HasPrefix(target, pat.clean) {
				if !pat.matchBasename && strings.HasSuffix(pat.original, "/") {
					if target != pat.clean && !strings.HasPrefix(target, pat.clean+"/") {
						continue
					}
				}
				return true
			}
		case suffixMatch:
			if strings.HasSuffix(target, pat.clean) {
				return true
			}
		case globMatch:
			ok, err := filepath.Match(pat.clean, target)
			if err != nil {
				plog.Warn("skip: invalid pattern", "pattern", pat.clean, "err", err)
				continue
			}
			if ok {
				return true
			}
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(filepath.ToSlash(s))
}
