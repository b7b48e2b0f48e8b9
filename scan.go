package globtail

import (
	"sort"

	"github.com/spf13/afero"
)

// ScanHooks receives the outcome of one scan tick. FileFound is invoked for
// every path matching this tick but not the previous one, in sorted order,
// and only then FileDeleted for every path that matched previously but no
// longer does, also sorted.
type ScanHooks interface {
	FileFound(path string)
	FileDeleted(path string)
}

// scanner expands one glob pattern on demand and diffs the result against
// the set of paths it reported last time. The known set belongs to the
// scanner alone and is only touched inside tick.
type scanner struct {
	fs      afero.Fs
	pattern string
	known   map[string]bool
}

func newScanner(fs afero.Fs, pattern string) *scanner {
	return &scanner{fs: fs, pattern: pattern, known: make(map[string]bool)}
}

// tick runs one scan. Matching zero files is a valid empty result, not an
// error; an expansion error leaves the known set untouched.
func (s *scanner) tick(hooks ScanHooks) error {
	matches, err := afero.Glob(s.fs, s.pattern)
	if err != nil {
		return err
	}
	current := make(map[string]bool, len(matches))
	for _, m := range matches {
		current[m] = true
	}
	var added, removed []string
	for path := range current {
		if !s.known[path] {
			added = append(added, path)
		}
	}
	for path := range s.known {
		if !current[path] {
			removed = append(removed, path)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	s.known = current
	for _, path := range added {
		hooks.FileFound(path)
	}
	for _, path := range removed {
		hooks.FileDeleted(path)
	}
	return nil
}
