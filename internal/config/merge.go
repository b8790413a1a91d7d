package config

// Merged is the result of folding an ordered source list into one
// section -> option -> raw value map. Later sources override earlier ones
// per key; nothing is ever removed. The DEFAULT section is kept separately
// and acts as a fallback visible from every section.
type Merged struct {
	sections map[string]*Section
	order    []string
	defaults *Section
}

// Merge folds sources in load order. The include resolver guarantees the
// order: every file's includes come first, the entry file is last.
func Merge(sources []*Source) *Merged {
	m := &Merged{
		sections: map[string]*Section{},
		defaults: newSection(DefaultSection),
	}
	for _, src := range sources {
		for _, sec := range src.Sections {
			if sec.Name == includeSection {
				continue
			}
			if sec.Name == DefaultSection {
				for _, opt := range sec.Order {
					m.defaults.set(opt, sec.Options[opt])
				}
				continue
			}
			dst, ok := m.sections[sec.Name]
			if !ok {
				dst = newSection(sec.Name)
				m.sections[sec.Name] = dst
				m.order = append(m.order, sec.Name)
			}
			for _, opt := range sec.Order {
				dst.set(opt, sec.Options[opt])
			}
		}
	}
	return m
}

// Sections returns the section names in first-appearance order, excluding
// DEFAULT.
func (m *Merged) Sections() []string {
	return m.order
}

// HasSection reports whether the named section exists.
func (m *Merged) HasSection(name string) bool {
	_, ok := m.sections[name]
	return ok
}

// Section returns the named section or nil. DEFAULT is addressable by its
// reserved name.
func (m *Merged) Section(name string) *Section {
	if name == DefaultSection {
		return m.defaults
	}
	return m.sections[name]
}

// Lookup returns the raw value for (section, option), falling back to the
// DEFAULT section when the section does not define the option.
func (m *Merged) Lookup(section, option string) (string, bool) {
	if sec, ok := m.sections[section]; ok {
		if v, ok := sec.Options[option]; ok {
			return v, true
		}
	}
	v, ok := m.defaults.Options[option]
	return v, ok
}
