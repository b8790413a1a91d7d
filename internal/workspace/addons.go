package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// DirChecker reports whether a directory exists. The addons-path resolver
// uses it to probe for the core checkout's addon directories; tests inject
// a fake.
type DirChecker func(path string) bool

// OSDirChecker probes the real filesystem.
func OSDirChecker(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// AddonsPath computes the ordered, deduplicated addons search path for the
// rendered configuration.
//
// The base list is fixed: the core checkout's addon directories that exist
// on disk (probed on the build layout), then each declared addon's
// checkout directory in declaration order. User-supplied entries are split
// on commas and newlines, resolved against the deploy root when relative,
// and appended after the base list. The first occurrence of a path wins;
// later repeats are dropped.
func AddonsPath(build, deploy Layout, addonNames []string, userValue string, exists DirChecker) []string {
	if exists == nil {
		exists = OSDirChecker
	}

	var paths []string
	for i, candidate := range build.CoreAddonsCandidates() {
		if exists(candidate) {
			// The rendered entry must describe the deploy-side location.
			paths = append(paths, deploy.CoreAddonsCandidates()[i])
		}
	}
	for _, name := range addonNames {
		paths = append(paths, filepath.Join(deploy.AddonsDir, name))
	}

	for _, token := range splitListValue(userValue) {
		p := token
		if !filepath.IsAbs(p) {
			p = filepath.Join(deploy.Root, p)
		}
		paths = append(paths, filepath.Clean(p))
	}

	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// JoinAddonsPath serializes the addons path list for the Odoo conf format.
func JoinAddonsPath(paths []string) string {
	return strings.Join(paths, ",")
}

func splitListValue(value string) []string {
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
