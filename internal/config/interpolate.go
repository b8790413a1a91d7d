package config

import (
	"strings"
)

// Resolved is the fully interpolated configuration: every value is a
// concrete string with no remaining ${...} tokens.
type Resolved struct {
	sections map[string]*Section
	order    []string
	defaults *Section
}

// Sections returns the section names in first-appearance order.
func (c *Resolved) Sections() []string { return c.order }

// HasSection reports whether the named section exists.
func (c *Resolved) HasSection(name string) bool {
	_, ok := c.sections[name]
	return ok
}

// Section returns the named resolved section or nil.
func (c *Resolved) Section(name string) *Section {
	if name == DefaultSection {
		return c.defaults
	}
	return c.sections[name]
}

// Get returns the resolved value for (section, option) without DEFAULT
// fallback.
func (c *Resolved) Get(section, option string) (string, bool) {
	sec := c.Section(section)
	if sec == nil {
		return "", false
	}
	v, ok := sec.Options[option]
	return v, ok
}

// Resolver interpolates ${section:option} and ${option} tokens in a merged
// configuration.
//
// Every section resolves against one of two variable scopes: sections named
// in deploySections use the deploy scope, all others the build scope. The
// scope variables back the user-declared DEFAULT options, so the lookup
// order within a section is: own options, DEFAULT, scope variables.
//
// Resolution is recursive with per-(section, option) memoization. An
// option revisited while it is being resolved is a reference cycle and a
// fatal error.
type Resolver struct {
	merged         *Merged
	buildVars      map[string]string
	deployVars     map[string]string
	deploySections map[string]bool

	memo       map[string]string
	inProgress map[string]bool
	chain      []string
}

// NewResolver creates a Resolver. buildVars and deployVars are the two
// path-variable scopes; deploySections lists the sections resolved against
// the deploy scope (every other section uses the build scope).
func NewResolver(m *Merged, buildVars, deployVars map[string]string, deploySections ...string) *Resolver {
	ds := make(map[string]bool, len(deploySections))
	for _, s := range deploySections {
		ds[s] = true
	}
	return &Resolver{
		merged:         m,
		buildVars:      buildVars,
		deployVars:     deployVars,
		deploySections: ds,
		memo:           map[string]string{},
		inProgress:     map[string]bool{},
	}
}

// Resolve interpolates every option of every section (DEFAULT included)
// and returns the fully concrete configuration.
func (r *Resolver) Resolve() (*Resolved, error) {
	out := &Resolved{sections: map[string]*Section{}, defaults: newSection(DefaultSection)}

	for _, opt := range r.merged.defaults.Order {
		v, err := r.resolveOption(DefaultSection, opt)
		if err != nil {
			return nil, err
		}
		out.defaults.set(opt, v)
	}

	for _, name := range r.merged.Sections() {
		sec := r.merged.Section(name)
		dst := newSection(name)
		for _, opt := range sec.Order {
			v, err := r.resolveOption(name, opt)
			if err != nil {
				return nil, err
			}
			dst.set(opt, v)
		}
		out.sections[name] = dst
		out.order = append(out.order, name)
	}

	return out, nil
}

func (r *Resolver) scopeVars(section string) map[string]string {
	if r.deploySections[section] {
		return r.deployVars
	}
	return r.buildVars
}

// resolveOption resolves one (section, option) node of the reference
// graph. Nodes currently being resolved are marked in progress; revisiting
// one is a cycle.
func (r *Resolver) resolveOption(section, option string) (string, error) {
	key := section + "\x00" + option
	if v, ok := r.memo[key]; ok {
		return v, nil
	}
	label := section + ":" + option
	if r.inProgress[key] {
		return "", &InterpolationCycleError{Chain: append(append([]string{}, r.chain...), label)}
	}

	raw, ok := r.lookupRaw(section, option)
	if !ok {
		return "", &UnknownReferenceError{Section: section, Option: option, Ref: label}
	}
	r.inProgress[key] = true
	r.chain = append(r.chain, label)
	resolved, err := r.expand(section, option, raw)
	r.chain = r.chain[:len(r.chain)-1]
	delete(r.inProgress, key)
	if err != nil {
		return "", err
	}

	r.memo[key] = resolved
	return resolved, nil
}

// lookupRaw finds the raw value for an option in a section's lookup chain:
// own options, then user-declared DEFAULT, then the scope variables. The
// path variables carry the lowest precedence so a declared default can
// override them.
func (r *Resolver) lookupRaw(section, option string) (string, bool) {
	if sec := r.merged.Section(section); sec != nil && sec.Name != DefaultSection {
		if v, ok := sec.Options[option]; ok {
			return v, true
		}
	}
	if v, ok := r.merged.defaults.Options[option]; ok {
		return v, true
	}
	if section == DefaultSection {
		v, ok := r.buildVars[option]
		return v, ok
	}
	v, ok := r.scopeVars(section)[option]
	return v, ok
}

// expand substitutes every ${...} token inside raw. "$$" escapes a literal
// dollar sign.
func (r *Resolver) expand(section, option, raw string) (string, error) {
	if !strings.Contains(raw, "$") {
		return raw, nil
	}

	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '$' {
			b.WriteByte(raw[i])
			continue
		}
		if i+1 < len(raw) && raw[i+1] == '$' {
			b.WriteByte('$')
			i++
			continue
		}
		if i+1 >= len(raw) || raw[i+1] != '{' {
			b.WriteByte('$')
			continue
		}
		end := strings.IndexByte(raw[i+2:], '}')
		if end < 0 {
			b.WriteString(raw[i:])
			break
		}
		ref := raw[i+2 : i+2+end]
		i += 2 + end

		refSection, refOption := section, strings.ToLower(ref)
		if colon := strings.IndexByte(ref, ':'); colon >= 0 {
			refSection = strings.TrimSpace(ref[:colon])
			refOption = strings.ToLower(strings.TrimSpace(ref[colon+1:]))
			if refSection != DefaultSection && !r.merged.HasSection(refSection) {
				return "", &UnknownReferenceError{Section: section, Option: option, Ref: "${" + ref + "}"}
			}
		}

		v, err := r.resolveOption(refSection, refOption)
		if err != nil {
			if unknown, ok := err.(*UnknownReferenceError); ok && unknown.Ref == refSection+":"+refOption {
				// Attribute the failure to the referencing value.
				return "", &UnknownReferenceError{Section: section, Option: option, Ref: "${" + ref + "}"}
			}
			return "", err
		}
		b.WriteString(v)
	}
	return b.String(), nil
}
