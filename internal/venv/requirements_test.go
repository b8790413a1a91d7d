package venv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalName(t *testing.T) {
	cases := map[string]string{
		"Requests":          "requests",
		"zope.interface":    "zope-interface",
		"ruamel.yaml.clib":  "ruamel-yaml-clib",
		"Some__Weird--Name": "some-weird-name",
		"  psycopg2  ":      "psycopg2",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalName(in), in)
	}
}

func TestRequirementName(t *testing.T) {
	cases := map[string]string{
		"requests":                          "requests",
		"requests==2.31.0":                  "requests",
		"Requests >= 2.0, <3.0":             "requests",
		"lxml[html5] ; python_version<'4'":  "lxml",
		"zope.interface":                    "zope-interface",
		"git+https://x.test/r.git#egg=Foo":  "foo",
		"pkg @ https://x.test/pkg-1.0.whl":  "pkg",
		"":                                  "",
		"--no-binary :all:":                 "",
	}
	for in, want := range cases {
		assert.Equal(t, want, RequirementName(in), in)
	}
}

func writeReq(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFilterRequirementsFile(t *testing.T) {
	t.Run("IgnoredPackageCommented", func(t *testing.T) {
		dir := t.TempDir()
		path := writeReq(t, dir, "requirements.txt", "requests==2.31.0\npsycopg2>=2.9  # db driver\nlxml\n")

		lines, err := FilterRequirementsFile(path, map[string]bool{"psycopg2": true}, map[string]bool{})
		require.NoError(t, err)
		joined := strings.Join(lines, "\n")
		assert.Contains(t, joined, "requests==2.31.0")
		assert.Contains(t, joined, "lxml")
		assert.Contains(t, joined, `skipped (ignored package "psycopg2")`)
		assert.NotContains(t, joined, "\npsycopg2>=2.9  # db driver\n")
	})

	t.Run("NestedIncludeInlined", func(t *testing.T) {
		dir := t.TempDir()
		writeReq(t, dir, "base.txt", "lxml\npsycopg2\n")
		path := writeReq(t, dir, "requirements.txt", "-r base.txt\nrequests\n")

		lines, err := FilterRequirementsFile(path, map[string]bool{"psycopg2": true}, map[string]bool{})
		require.NoError(t, err)
		joined := strings.Join(lines, "\n")
		assert.Contains(t, joined, "begin include base.txt")
		assert.Contains(t, joined, "lxml")
		assert.Contains(t, joined, "skipped (ignored package")
		assert.Contains(t, joined, "requests")
	})

	t.Run("RecursiveIncludeSkipped", func(t *testing.T) {
		dir := t.TempDir()
		writeReq(t, dir, "a.txt", "-r b.txt\nrequests\n")
		writeReq(t, dir, "b.txt", "-r a.txt\nlxml\n")
		path := filepath.Join(dir, "a.txt")

		lines, err := FilterRequirementsFile(path, nil, map[string]bool{filepath.Clean(path): true})
		require.NoError(t, err)
		joined := strings.Join(lines, "\n")
		assert.Contains(t, joined, "skipped recursive include a.txt")
		assert.Contains(t, joined, "lxml")
	})

	t.Run("EditableEntryNameStillMatched", func(t *testing.T) {
		dir := t.TempDir()
		path := writeReq(t, dir, "requirements.txt", "-e git+https://x.test/r.git#egg=mytool\n")

		lines, err := FilterRequirementsFile(path, map[string]bool{"mytool": true}, map[string]bool{})
		require.NoError(t, err)
		assert.Contains(t, strings.Join(lines, "\n"), "skipped (ignored package")
	})

	t.Run("MissingFileFails", func(t *testing.T) {
		_, err := FilterRequirementsFile(filepath.Join(t.TempDir(), "nope.txt"), nil, map[string]bool{})
		require.Error(t, err)
	})
}

func TestBuildLockInput(t *testing.T) {
	root := t.TempDir()
	odooReq := writeReq(t, root, "odoo-requirements.txt", "lxml\npsycopg2\n")
	addonReq := writeReq(t, root, "addon-requirements.txt", "requests\n")
	missing := filepath.Join(root, "no-such-requirements.txt")

	input, err := BuildLockInput(root,
		[]string{odooReq, addonReq, missing},
		[]string{"pip", "click-odoo-contrib"},
		[]string{"Psycopg2"})
	require.NoError(t, err)

	assert.Contains(t, input, "pip\nclick-odoo-contrib")
	assert.Contains(t, input, "from odoo-requirements.txt")
	assert.Contains(t, input, "lxml")
	assert.Contains(t, input, "requests")
	// Ignore names are canonicalized before matching.
	assert.Contains(t, input, `skipped (ignored package "psycopg2")`)
	assert.NotContains(t, input, "no-such-requirements")
	assert.True(t, strings.HasSuffix(input, "\n"))
}
