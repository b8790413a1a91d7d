package config

import (
	"fmt"
	"strings"
)

// SyntaxError is returned when a configuration file contains a line that is
// neither a section header, an option assignment, a continuation nor a
// comment.
type SyntaxError struct {
	Path string
	Line int
	Text string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: invalid configuration syntax: %q", e.Path, e.Line, e.Text)
}

// IncludeNotFoundError is returned when a non-optional included file does
// not exist or cannot be read.
type IncludeNotFoundError struct {
	Path         string
	IncludedFrom string
	Cause        error
}

func (e *IncludeNotFoundError) Error() string {
	if e.IncludedFrom == "" {
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	}
	return fmt.Sprintf("included configuration file not found: %s (included from %s)", e.Path, e.IncludedFrom)
}

func (e *IncludeNotFoundError) Unwrap() error { return e.Cause }

// IncludeCycleError is returned when a file directly or transitively
// includes itself.
type IncludeCycleError struct {
	Chain []string
}

func (e *IncludeCycleError) Error() string {
	return fmt.Sprintf("configuration include cycle: %s", strings.Join(e.Chain, " -> "))
}

// InterpolationCycleError is returned when resolving a value revisits an
// option that is currently being resolved.
type InterpolationCycleError struct {
	Chain []string
}

func (e *InterpolationCycleError) Error() string {
	return fmt.Sprintf("interpolation cycle: %s", strings.Join(e.Chain, " -> "))
}

// UnknownReferenceError is returned when a ${...} token names a section or
// option that does not exist.
type UnknownReferenceError struct {
	Section string
	Option  string
	Ref     string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown reference %q in [%s] %s", e.Ref, e.Section, e.Option)
}

// MissingSectionError is returned when a required section is absent from
// the merged configuration.
type MissingSectionError struct {
	Section string
}

func (e *MissingSectionError) Error() string {
	return fmt.Sprintf("missing configuration section: [%s]", e.Section)
}

// MissingOptionError is returned when a required option is absent from a
// section.
type MissingOptionError struct {
	Section string
	Option  string
}

func (e *MissingOptionError) Error() string {
	return fmt.Sprintf("missing option %q in section [%s]", e.Option, e.Section)
}
