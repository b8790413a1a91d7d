package workspace

import (
	"fmt"
	"strings"

	"github.com/google/renameio/v2"
)

// ConfValues is an ordered key/value view of the resolved [config]
// section. Order is preserved so regenerating the file is byte-stable.
type ConfValues interface {
	Keys() []string
	Value(key string) string
}

// RenderConf renders the Odoo server configuration text. Every resolved
// [config] key is written except addons_path and data_dir, which are
// always computed: addons_path from the merged search path and data_dir
// from the deploy layout.
func RenderConf(values ConfValues, deploy Layout, addonsPath []string) string {
	var b strings.Builder
	b.WriteString("[options]\n")
	for _, key := range values.Keys() {
		if key == "addons_path" || key == "data_dir" {
			continue
		}
		fmt.Fprintf(&b, "%s = %s\n", key, values.Value(key))
	}
	fmt.Fprintf(&b, "addons_path = %s\n", JoinAddonsPath(addonsPath))
	fmt.Fprintf(&b, "data_dir = %s\n", deploy.DataDir)
	return b.String()
}

// WriteConf atomically writes the rendered configuration to the build-side
// conf path.
func WriteConf(path, content string) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending conf file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.WriteString(content); err != nil {
		return fmt.Errorf("write conf data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace conf file: %w", err)
	}
	return nil
}
