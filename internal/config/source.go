// Package config implements the hierarchical configuration resolver:
// reading INI sources, expanding includes, merging with last-writer-wins
// semantics and interpolating ${section:option} references against two
// path-variable scopes (build and deploy).
package config

import (
	"strings"
	"unicode"
)

// DefaultSection is the reserved fallback section. Its options are visible
// from every other section during interpolation.
const DefaultSection = "DEFAULT"

// Section holds the raw (pre-interpolation) options of one section within
// one source file. Order preserves first-assignment option order so that
// generated artifacts stay deterministic.
type Section struct {
	Name    string
	Options map[string]string
	Order   []string
}

func newSection(name string) *Section {
	return &Section{Name: name, Options: map[string]string{}}
}

// Keys returns the option names in first-assignment order.
func (s *Section) Keys() []string { return s.Order }

// Value returns the value for an option ("" when absent).
func (s *Section) Value(option string) string { return s.Options[option] }

func (s *Section) set(option, value string) {
	if _, ok := s.Options[option]; !ok {
		s.Order = append(s.Order, option)
	}
	s.Options[option] = value
}

// Source is the parsed content of one configuration file, in declaration
// order.
type Source struct {
	Path     string
	Sections []*Section
}

// Section returns the named section or nil.
func (s *Source) Section(name string) *Section {
	for _, sec := range s.Sections {
		if sec.Name == name {
			return sec
		}
	}
	return nil
}

// ParseSource parses INI-style text into raw sections.
//
// Supported syntax follows the conventions of the configuration files this
// tool consumes: "[section]" headers, "key = value" (or "key: value")
// assignments, "#" and ";" comment lines, and indented continuation lines
// that extend the previous value with a newline. Option names are
// lower-cased; section names keep their case.
func ParseSource(path string, data []byte) (*Source, error) {
	src := &Source{Path: path}

	var current *Section
	var lastOption string

	lines := strings.Split(string(data), "\n")
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		// Blank lines terminate a continuation block.
		if trimmed == "" {
			lastOption = ""
			continue
		}
		if trimmed[0] == '#' || trimmed[0] == ';' {
			continue
		}

		// Continuation: indented non-blank line extends the previous value.
		if unicode.IsSpace(rune(line[0])) {
			if current == nil || lastOption == "" {
				return nil, &SyntaxError{Path: path, Line: i + 1, Text: trimmed}
			}
			current.set(lastOption, current.Options[lastOption]+"\n"+trimmed)
			continue
		}

		if strings.HasPrefix(trimmed, "[") {
			end := strings.Index(trimmed, "]")
			if end < 1 {
				return nil, &SyntaxError{Path: path, Line: i + 1, Text: trimmed}
			}
			name := strings.TrimSpace(trimmed[1:end])
			if name == "" {
				return nil, &SyntaxError{Path: path, Line: i + 1, Text: trimmed}
			}
			current = src.Section(name)
			if current == nil {
				current = newSection(name)
				src.Sections = append(src.Sections, current)
			}
			lastOption = ""
			continue
		}

		key, value, ok := splitAssignment(trimmed)
		if !ok {
			return nil, &SyntaxError{Path: path, Line: i + 1, Text: trimmed}
		}
		if current == nil {
			return nil, &SyntaxError{Path: path, Line: i + 1, Text: trimmed}
		}
		current.set(strings.ToLower(key), value)
		lastOption = strings.ToLower(key)
	}

	return src, nil
}

// splitAssignment splits "key = value" or "key: value" on the first
// delimiter. The key must be non-empty; the value may be empty.
func splitAssignment(line string) (key, value string, ok bool) {
	idx := -1
	for i, r := range line {
		if r == '=' || r == ':' {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if key == "" {
		return "", "", false
	}
	return key, value, true
}

// SplitList splits a multi-line and/or comma-separated value into trimmed,
// non-empty tokens. This is the list convention used throughout the INI
// format (include files, requirements, addons_path).
func SplitList(value string) []string {
	var parts []string
	for _, ln := range strings.Split(value, "\n") {
		for _, chunk := range strings.Split(ln, ",") {
			chunk = strings.TrimSpace(chunk)
			if chunk != "" {
				parts = append(parts, chunk)
			}
		}
	}
	return parts
}
