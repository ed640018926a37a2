package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Detector:
// - Extension lookup identifies every supported format
// - Extension matching is case-insensitive
// - Shebang sniffing classifies extensionless scripts
// - Unknown content falls back to generic detection, never an error
// - Missing files return an error
// - DefaultIgnoreDirs and ExtensionTable return defensive copies
// - IsText flags NUL bytes as binary

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetector_ExtensionLookup(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		mime string
	}{
		{"script.py", MimePython},
		{"script.pyi", MimePython},
		{"app.js", MimeJavaScript},
		{"app.mjs", MimeJavaScript},
		{"component.jsx", MimeJavaScript},
		{"config.yaml", MimeYAML},
		{"config.yml", MimeYAML},
		{"readme.md", MimeMarkdown},
		{"page.mdx", MimeMarkdown},
		{"analysis.ipynb", MimeJupyter},
	}

	detector := New()
	for _, tc := range cases {
		path := writeTemp(t, tc.name, "content irrelevant for extension lookup")
		mime, err := detector.Detect(path)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.mime, mime, tc.name)
	}
}

func TestDetector_CaseInsensitiveExtension(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "SCRIPT.PY", "x = 1\n")
	mime, err := New().Detect(path)
	require.NoError(t, err)
	assert.Equal(t, MimePython, mime)
}

func TestDetector_ShebangSniffing(t *testing.T) {
	t.Parallel()

	detector := New()

	pyScript := writeTemp(t, "run", "#!/usr/bin/env python3\nprint('hi')\n")
	mime, err := detector.Detect(pyScript)
	require.NoError(t, err)
	assert.Equal(t, MimePython, mime)

	jsScript := writeTemp(t, "serve", "#!/usr/bin/env node\nconsole.log('hi')\n")
	mime, err = detector.Detect(jsScript)
	require.NoError(t, err)
	assert.Equal(t, MimeJavaScript, mime)
}

func TestDetector_UnknownContent(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "mystery", "just some prose with no structure\n")
	mime, err := New().Detect(path)
	require.NoError(t, err)
	// Generic detection still answers; the point is no error and no false
	// claim of a supported format.
	assert.NotEqual(t, MimePython, mime)
	assert.NotEmpty(t, mime)
}

func TestDetector_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := New().Detect(filepath.Join(t.TempDir(), "absent.py"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot detect file type")
}

func TestDefaultIgnoreDirs_Copy(t *testing.T) {
	t.Parallel()

	first := DefaultIgnoreDirs()
	first[0] = "mutated"
	assert.NotEqual(t, "mutated", DefaultIgnoreDirs()[0])
	assert.Contains(t, DefaultIgnoreDirs(), "venv")
	assert.Contains(t, DefaultIgnoreDirs(), "__pycache__")
	assert.Contains(t, DefaultIgnoreDirs(), "node_modules")
}

func TestExtensionTable_Copy(t *testing.T) {
	t.Parallel()

	detector := New()
	table := detector.ExtensionTable()
	table[".py"] = "text/x-mutated"
	assert.Equal(t, MimePython, detector.ExtensionTable()[".py"])
}

func TestIsText(t *testing.T) {
	t.Parallel()

	assert.True(t, IsText([]byte("hello world")))
	assert.True(t, IsText(nil))
	assert.False(t, IsText([]byte{'h', 'i', 0x00, 'x'}))
}
