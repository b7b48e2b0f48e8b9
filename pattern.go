package globtail

import (
	"regexp"
	"strings"
)

// ExcludeRule drops paths matching a wildcard expression from discovery.
// The dialect is narrower than a shell glob: `*` stands for one or more
// characters, `?` for exactly one, and every other character is literal.
// A rule matches if the pattern occurs anywhere in the path, case
// sensitively; it does not have to cover the whole path.
type ExcludeRule struct {
	wildcard string
	re       *regexp.Regexp
}

// CompileExclude builds an ExcludeRule from a wildcard expression. Every
// string compiles.
func CompileExclude(wildcard string) *ExcludeRule {
	expr := regexp.QuoteMeta(wildcard)
	expr = strings.ReplaceAll(expr, `\*`, `.+`)
	expr = strings.ReplaceAll(expr, `\?`, `.`)
	return &ExcludeRule{wildcard: wildcard, re: regexp.MustCompile(expr)}
}

// Matches reports whether the rule excludes path.
func (r *ExcludeRule) Matches(path string) bool {
	return r.re.MatchString(path)
}

func (r *ExcludeRule) String() string { return r.wildcard }

// excluded returns the first rule matching path, or nil if none do.
func excluded(path string, rules []*ExcludeRule) *ExcludeRule {
	for _, r := range rules {
		if r.Matches(path) {
			return r
		}
	}
	return nil
}
