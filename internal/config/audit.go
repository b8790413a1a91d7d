package config

import "strings"

var sensitiveKeys = []string{"password", "passwd", "secret", "token", "api_key", "apikey", "private_key"}

// AuditString renders the resolved configuration as INI text suitable for
// audit logging. Values whose option name looks credential-like are
// masked.
func (c *Resolved) AuditString() string {
	var b strings.Builder
	writeSection := func(sec *Section) {
		if sec == nil || len(sec.Order) == 0 {
			return
		}
		b.WriteString("[" + sec.Name + "]\n")
		for _, opt := range sec.Order {
			value := sec.Options[opt]
			if sensitiveOption(opt) {
				value = "******"
			}
			b.WriteString(opt + " = " + strings.ReplaceAll(value, "\n", "\n\t") + "\n")
		}
		b.WriteString("\n")
	}

	writeSection(c.defaults)
	for _, name := range c.order {
		writeSection(c.sections[name])
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func sensitiveOption(option string) bool {
	lower := strings.ToLower(option)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
