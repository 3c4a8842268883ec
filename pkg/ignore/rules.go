// Package ignore implements a gitignore-compatible pattern matcher.
package ignore

import (
	"strings"

	"github.com/gobwas/glob"
)

// Rules is a compiled set of gitignore-style patterns. The zero value matches
// nothing, the same as an empty rule set.
type Rules struct {
	lines []string
	rules []rule
}

type rule struct {
	raw      string
	negate   bool
	dirOnly  bool
	anchored bool
	compiled glob.Glob
}

// New compiles ruleText, a newline-separated set of gitignore patterns, into
// a Rules. Blank lines and comment lines (starting with "#") are skipped.
// Lines that fail to compile as globs are dropped rather than causing New to
// fail, since a single malformed line in a checked-in .gitignore shouldn't
// take down the whole ignore engine.
func New(ruleText string) *Rules {
	r := &Rules{}
	r.SetRules(ruleText)
	return r
}

// SetRules replaces the compiled pattern set with the ones parsed from
// ruleText.
func (r *Rules) SetRules(ruleText string) {
	lines := strings.Split(ruleText, "\n")
	r.lines = lines
	r.rules = r.rules[:0]
	for _, line := range lines {
		if compiled, ok := compileLine(line); ok {
			r.rules = append(r.rules, compiled)
		}
	}
}

// Lines returns the raw (uncompiled) lines this Rules was built from.
func (r *Rules) Lines() []string {
	return r.lines
}

// HasAnyRules reports whether any pattern successfully compiled.
func (r *Rules) HasAnyRules() bool {
	return r != nil && len(r.rules) > 0
}

func compileLine(line string) (rule, bool) {
	line = strings.TrimRight(line, "\r")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return rule{}, false
	}

	pattern := trimmed
	negate := false
	if strings.HasPrefix(pattern, "!") {
		negate = true
		pattern = pattern[1:]
	}
	// A leading backslash escapes a leading "!" or "#".
	pattern = strings.TrimPrefix(pattern, "\\")

	dirOnly := false
	if strings.HasSuffix(pattern, "/") && !strings.HasSuffix(pattern, "\\/") {
		dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	anchored := false
	if strings.HasPrefix(pattern, "/") {
		anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}
	if strings.Contains(pattern, "/") {
		// A slash anywhere but the trailing position anchors the pattern to
		// the rule-set root, same as a leading slash.
		anchored = true
	}

	if pattern == "" {
		return rule{}, false
	}

	globPattern := pattern
	if !anchored {
		globPattern = "**/" + pattern
	}

	compiled, err := glob.Compile(globPattern, '/')
	if err != nil {
		return rule{}, false
	}

	return rule{
		raw:      trimmed,
		negate:   negate,
		dirOnly:  dirOnly,
		anchored: anchored,
		compiled: compiled,
	}, true
}

// Matches returns whether relativePath (forward-slash separated, no leading
// or trailing slash) is ignored by this rule set. Rule precedence follows
// git: the last matching rule wins, so a later negation ("!pattern")
// overrides an earlier exclusion. An empty rule set matches nothing.
func (r *Rules) Matches(relativePath string, isDirectory bool) bool {
	if r == nil {
		return false
	}
	ignored := false
	for _, rl := range r.rules {
		if rl.matchesPath(relativePath, isDirectory) {
			ignored = !rl.negate
		}
	}
	return ignored
}

// matchesPath checks the rule against relPath itself and against every
// ancestor directory of relPath, since gitignore semantics apply a directory
// match to everything the directory contains. An unanchored rule is also
// tried against "/"+prefix, so its leading "**/" can match zero directories.
func (rl rule) matchesPath(relPath string, isDir bool) bool {
	segments := strings.Split(relPath, "/")
	for i := len(segments); i >= 1; i-- {
		prefix := strings.Join(segments[:i], "/")
		prefixIsDir := isDir || i < len(segments)
		if rl.dirOnly && !prefixIsDir {
			continue
		}
		if rl.compiled.Match(prefix) || (!rl.anchored && rl.compiled.Match("/"+prefix)) {
			return true
		}
	}
	return false
}
