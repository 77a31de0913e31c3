package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// IgnoreFileName is the per-directory file listing extra upload ignore
// patterns.
const IgnoreFileName = ".garageignore"

// rule is one parsed ignore line.
type rule struct {
	pattern string
	negate  bool // "!pattern" re-includes a previously ignored path
	dirOnly bool // "pattern/" matches any directory segment of the path
	anchor  bool // contains '/', matched against the whole relative path
}

// IgnoreMatcher decides which files of an upload directory are skipped.
//
// Patterns without '/' match the basename. Patterns with '/' match the slash
// separated path relative to the upload root. A trailing '/' matches a
// directory at any depth. A leading '!' re-includes. The last matching rule
// wins.
type IgnoreMatcher struct {
	rules []rule
}

// NewIgnoreMatcher parses raw pattern lines. Blank lines and lines starting
// with '#' are skipped, and the ignore file itself is always ignored.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	m.add(IgnoreFileName)
	for _, raw := range rawPatterns {
		m.add(raw)
	}
	return m
}

func (m *IgnoreMatcher) add(raw string) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return
	}
	var r rule
	if strings.HasPrefix(raw, "!") {
		r.negate = true
		raw = raw[1:]
	}
	if strings.HasSuffix(raw, "/") {
		r.dirOnly = true
		raw = strings.TrimSuffix(raw, "/")
	}
	rooted := strings.HasPrefix(raw, "/")
	raw = strings.TrimPrefix(raw, "/")
	if raw == "" {
		return
	}
	r.pattern = raw
	r.anchor = rooted || strings.Contains(raw, "/")
	m.rules = append(m.rules, r)
}

// With returns a matcher holding m's rules followed by extra.
func (m *IgnoreMatcher) With(extra []string) *IgnoreMatcher {
	out := &IgnoreMatcher{rules: append([]rule(nil), m.rules...)}
	for _, raw := range extra {
		out.add(raw)
	}
	return out
}

// Match reports whether relativePath (slash or OS separated, relative to the
// upload root) is ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	rel := strings.Trim(strings.ReplaceAll(relativePath, "\\", "/"), "/")
	if rel == "" {
		return false
	}
	segments := strings.Split(rel, "/")

	ignored := false
	for _, r := range m.rules {
		if r.matches(rel, segments) {
			ignored = !r.negate
		}
	}
	return ignored
}

func (r rule) matches(rel string, segments []string) bool {
	switch {
	case r.dirOnly:
		// Only parent segments are directories.
		for _, seg := range segments[:len(segments)-1] {
			if ok, _ := path.Match(r.pattern, seg); ok {
				return true
			}
		}
		return false
	case r.anchor:
		ok, _ := path.Match(r.pattern, rel)
		return ok
	default:
		ok, _ := path.Match(r.pattern, segments[len(segments)-1])
		return ok
	}
}

// ParseIgnoreFile reads an ignore file and returns its raw lines. A missing
// file yields nil and no error.
func ParseIgnoreFile(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}
