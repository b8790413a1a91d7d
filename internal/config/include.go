package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/odt-devops/odt-env/internal/logx"
)

const (
	includeSection = "include"
	includeOption  = "files"

	// optionalMarker prefixes an include entry that may be missing.
	optionalMarker = "?"
)

// FileSystem abstracts file reading for the resolver so tests can run
// against an in-memory map.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// OSFileSystem implements FileSystem using the real OS.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// IncludeResolver expands an entry file and its transitive includes into a
// flattened, ordered source list: every file's includes come before its own
// content, so the entry file is always last and wins merge ties.
type IncludeResolver struct {
	fs   FileSystem
	vars map[string]string
	log  zerolog.Logger

	order  []*Source
	loaded map[string]bool
	stack  []string
}

// NewIncludeResolver creates a resolver. vars holds the runtime path
// variables (ini_dir, root_dir, ...) usable as ${name} inside include
// paths; ${section:option} references are not evaluated at this stage.
func NewIncludeResolver(fsys FileSystem, vars map[string]string) *IncludeResolver {
	return &IncludeResolver{
		fs:   fsys,
		vars: vars,
		log:  logx.WithComponent("config"),
	}
}

// Expand loads the entry file and its includes depth-first. The entry file
// is required; optional includes (prefixed with "?") are skipped when
// missing.
func (r *IncludeResolver) Expand(entryPath string) ([]*Source, error) {
	r.order = nil
	r.loaded = map[string]bool{}
	r.stack = nil

	abs, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, err
	}
	if err := r.load(abs, false, ""); err != nil {
		return nil, err
	}
	return r.order, nil
}

func (r *IncludeResolver) load(path string, optional bool, includedFrom string) error {
	if r.loaded[path] {
		return nil
	}
	for _, p := range r.stack {
		if p == path {
			return &IncludeCycleError{Chain: append(append([]string{}, r.stack...), path)}
		}
	}

	data, err := r.fs.ReadFile(path)
	if err != nil {
		if optional && (errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)) {
			r.log.Info().Str("path", path).Msg("optional included file not found, skipping")
			return nil
		}
		return &IncludeNotFoundError{Path: path, IncludedFrom: includedFrom, Cause: err}
	}

	src, err := ParseSource(path, data)
	if err != nil {
		return err
	}

	r.stack = append(r.stack, path)
	if inc := src.Section(includeSection); inc != nil {
		for _, token := range SplitList(inc.Options[includeOption]) {
			childPath, childOptional := r.resolveToken(token, filepath.Dir(path))
			if err := r.load(childPath, childOptional, path); err != nil {
				r.stack = r.stack[:len(r.stack)-1]
				return err
			}
		}
	}
	r.stack = r.stack[:len(r.stack)-1]

	r.loaded[path] = true
	r.order = append(r.order, src)
	r.log.Debug().Str("path", path).Msg("loaded configuration source")
	return nil
}

// resolveToken strips the optional marker, expands runtime and environment
// variables and resolves the path relative to the declaring file's
// directory.
func (r *IncludeResolver) resolveToken(token, baseDir string) (string, bool) {
	raw := strings.TrimSpace(token)
	optional := strings.HasPrefix(raw, optionalMarker)
	if optional {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, optionalMarker))
	}

	for k, v := range r.vars {
		raw = strings.ReplaceAll(raw, "${"+k+"}", v)
	}
	// Environment variables may appear in include paths too; unknown ones
	// are left untouched.
	raw = os.Expand(raw, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "${" + name + "}"
	})

	if !filepath.IsAbs(raw) {
		raw = filepath.Join(baseDir, raw)
	}
	return filepath.Clean(raw), optional
}
