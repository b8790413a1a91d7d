package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Section names with fixed meaning in a project configuration.
const (
	SectionVirtualenv = "virtualenv"
	SectionOdoo       = "odoo"
	SectionConfig     = "config"

	addonSectionPrefix = "addons."
)

// RepoSpec declares one repository to converge: remote URL, target branch
// and whether the checkout should stay a shallow, single-branch clone.
type RepoSpec struct {
	Repo         string `mapstructure:"repo"`
	Branch       string `mapstructure:"branch"`
	ShallowClone bool   `mapstructure:"shallow_clone"`
}

// Addon is a named additional repository declared via an [addons.<name>]
// section. The name doubles as the checkout directory under the addons
// root.
type Addon struct {
	Name string
	RepoSpec
}

// VirtualenvConfig declares the isolated Python environment.
type VirtualenvConfig struct {
	PythonVersion      string   `mapstructure:"python_version"`
	BuildConstraints   []string `mapstructure:"build_constraints"`
	Requirements       []string `mapstructure:"requirements"`
	RequirementsIgnore []string `mapstructure:"requirements_ignore"`
	ManagedPython      bool     `mapstructure:"managed_python"`
}

// Project is the typed view of a resolved configuration.
type Project struct {
	Virtualenv VirtualenvConfig
	Odoo       RepoSpec
	Addons     []Addon
	// Options is the resolved [config] section, in declaration order. Its
	// values describe deploy-side paths.
	Options *Section
}

// DecodeProject converts a resolved configuration into its typed form.
// [virtualenv], [odoo] and [config] are required; [addons.<name>] sections
// are collected in first-appearance order.
func DecodeProject(res *Resolved) (*Project, error) {
	for _, required := range []string{SectionVirtualenv, SectionOdoo, SectionConfig} {
		if !res.HasSection(required) {
			return nil, &MissingSectionError{Section: required}
		}
	}

	p := &Project{
		// managed_python defaults to true when not declared.
		Virtualenv: VirtualenvConfig{ManagedPython: true},
	}

	if err := decodeSection(res.Section(SectionVirtualenv), &p.Virtualenv); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Virtualenv.PythonVersion) == "" {
		return nil, &MissingOptionError{Section: SectionVirtualenv, Option: "python_version"}
	}

	if err := decodeRepoSpec(res.Section(SectionOdoo), &p.Odoo); err != nil {
		return nil, err
	}

	for _, name := range res.Sections() {
		if !strings.HasPrefix(name, addonSectionPrefix) {
			continue
		}
		addon := Addon{Name: strings.TrimPrefix(name, addonSectionPrefix)}
		if addon.Name == "" {
			return nil, fmt.Errorf("addon section [%s] has an empty name", name)
		}
		if err := decodeRepoSpec(res.Section(name), &addon.RepoSpec); err != nil {
			return nil, err
		}
		p.Addons = append(p.Addons, addon)
	}

	p.Options = res.Section(SectionConfig)
	return p, nil
}

func decodeRepoSpec(sec *Section, spec *RepoSpec) error {
	if err := decodeSection(sec, spec); err != nil {
		return err
	}
	if strings.TrimSpace(spec.Repo) == "" {
		return &MissingOptionError{Section: sec.Name, Option: "repo"}
	}
	if strings.TrimSpace(spec.Branch) == "" {
		return &MissingOptionError{Section: sec.Name, Option: "branch"}
	}
	return nil
}

// decodeSection maps a resolved section's string options onto a typed
// struct. Multi-line values decode into string slices and boolean options
// accept the usual INI spellings.
func decodeSection(sec *Section, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(linesToSliceHook, iniBoolHook),
		Result:     out,
	})
	if err != nil {
		return err
	}
	values := make(map[string]any, len(sec.Options))
	for k, v := range sec.Options {
		values[k] = v
	}
	if err := decoder.Decode(values); err != nil {
		return fmt.Errorf("invalid section [%s]: %w", sec.Name, err)
	}
	return nil
}

// linesToSliceHook splits a newline-separated string value into a slice of
// trimmed, non-empty lines when the target is []string.
func linesToSliceHook(f, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t.Kind() != reflect.Slice || t.Elem().Kind() != reflect.String {
		return data, nil
	}
	var lines []string
	for _, ln := range strings.Split(data.(string), "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines, nil
}

// iniBoolHook parses INI boolean spellings (true/false, yes/no, on/off,
// 1/0) when the target is a bool.
func iniBoolHook(f, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t.Kind() != reflect.Bool {
		return data, nil
	}
	switch strings.ToLower(strings.TrimSpace(data.(string))) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return nil, fmt.Errorf("invalid boolean value %q", data.(string))
}
