package venv

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	canonicalRe     = regexp.MustCompile(`[-_.]+`)
	inlineCommentRe = regexp.MustCompile(`\s+#`)
	eggRe           = regexp.MustCompile(`[#&]egg=([^&]+)`)
	reqNameRe       = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)
)

// CanonicalName canonicalizes a Python distribution name: runs of
// "-", "_" and "." collapse to a single dash, lower-cased.
func CanonicalName(name string) string {
	return canonicalRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// stripInlineComment removes a trailing comment (a '#' preceded by
// whitespace).
func stripInlineComment(line string) string {
	if loc := inlineCommentRe.FindStringIndex(line); loc != nil {
		return strings.TrimRight(line[:loc[0]], " \t")
	}
	return strings.TrimRight(line, " \t")
}

// RequirementName extracts the distribution name from a requirement spec
// line, best effort. Returns "" when no name can be determined.
func RequirementName(spec string) string {
	s := strings.TrimSpace(spec)
	if s == "" {
		return ""
	}

	// VCS/URL requirement: git+...#egg=foo
	if strings.Contains(s, "egg=") {
		if m := eggRe.FindStringSubmatch(s); m != nil {
			return CanonicalName(m[1])
		}
	}

	// Direct reference: name @ https://...
	if idx := strings.Index(s, "@"); idx >= 0 {
		left, right := strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+1:])
		if left != "" && right != "" {
			return CanonicalName(left)
		}
	}

	// Standard requirement: name[extra] >= 1.0 ; markers
	if m := reqNameRe.FindString(s); m != "" {
		return CanonicalName(m)
	}
	return ""
}

// FilterRequirementsFile returns the requirements file content with
// ignored packages commented out. Nested "-r other.txt" includes are
// inlined so the ignore list applies recursively; recursive includes are
// skipped.
func FilterRequirementsFile(path string, ignore map[string]bool, visited map[string]bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read requirements file %s: %w", path, err)
	}

	var out []string
	for _, raw := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		raw = strings.TrimRight(raw, "\r")
		stripped := strings.TrimSpace(raw)
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			out = append(out, raw)
			continue
		}

		noComment := stripInlineComment(raw)

		// Inline nested requirement files.
		if strings.HasPrefix(noComment, "-r ") || strings.HasPrefix(noComment, "--requirement ") {
			fields := strings.SplitN(noComment, " ", 2)
			if len(fields) == 2 {
				rel := strings.TrimSpace(fields[1])
				includePath := filepath.Clean(filepath.Join(filepath.Dir(path), rel))

				out = append(out, "# odt-env: begin include "+rel)
				if visited[includePath] {
					out = append(out, "# odt-env: skipped recursive include "+rel)
				} else {
					visited[includePath] = true
					nested, err := FilterRequirementsFile(includePath, ignore, visited)
					if err != nil {
						return nil, err
					}
					out = append(out, nested...)
				}
				out = append(out, "# odt-env: end include "+rel)
				continue
			}
		}

		spec := strings.TrimSpace(noComment)
		if strings.HasPrefix(spec, "-e ") || strings.HasPrefix(spec, "--editable ") {
			fields := strings.SplitN(spec, " ", 2)
			spec = ""
			if len(fields) == 2 {
				spec = fields[1]
			}
		}

		if name := RequirementName(spec); name != "" && ignore[name] {
			out = append(out, fmt.Sprintf("# odt-env: skipped (ignored package %q): %s", name, raw))
			continue
		}

		out = append(out, raw)
	}

	return out, nil
}

// BuildLockInput assembles the single requirements input file from base
// requirements and the collected per-repository requirement files.
// Missing files are skipped silently (optional addon requirements).
func BuildLockInput(workspaceRoot string, requirementFiles []string, baseRequirements []string, ignoreNames []string) (string, error) {
	ignore := make(map[string]bool, len(ignoreNames))
	for _, n := range ignoreNames {
		if strings.TrimSpace(n) != "" {
			ignore[CanonicalName(n)] = true
		}
	}

	lines := []string{
		"# This file is generated by odt-env (DO NOT EDIT).",
		"# Source: repository requirements plus [virtualenv].requirements and odt-env defaults.",
		"",
	}

	if len(baseRequirements) > 0 {
		lines = append(lines, "# --- base requirements ---")
		lines = append(lines, baseRequirements...)
		lines = append(lines, "")
	}

	for _, reqPath := range requirementFiles {
		if _, err := os.Stat(reqPath); err != nil {
			continue
		}

		label := reqPath
		if rel, err := filepath.Rel(workspaceRoot, reqPath); err == nil && !strings.HasPrefix(rel, "..") {
			label = filepath.ToSlash(rel)
		}

		lines = append(lines, "# --- from "+label+" ---")
		visited := map[string]bool{filepath.Clean(reqPath): true}
		filtered, err := FilterRequirementsFile(reqPath, ignore, visited)
		if err != nil {
			return "", err
		}
		lines = append(lines, filtered...)
		lines = append(lines, "")
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n", nil
}
