package detect

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MIME types structscan dispatches on. These are the keys shared between the
// detector's extension table and each processor's supported-type set.
const (
	MimePython     = "text/x-python"
	MimeJavaScript = "application/javascript"
	MimeYAML       = "text/x-yaml"
	MimeMarkdown   = "text/markdown"
	MimeJupyter    = "application/x-ipynb+json"

	// MimeUnknown is the generic classification for files the detector
	// cannot identify. It is a valid answer, not an error.
	MimeUnknown = "application/octet-stream"
)

// extensionTable maps lowercase file extensions to MIME types. Extension
// lookup is the primary, deterministic detection method; sniffing is only a
// fallback for files this table does not cover.
var extensionTable = map[string]string{
	".py":       MimePython,
	".pyw":      MimePython,
	".pyi":      MimePython,
	".js":       MimeJavaScript,
	".mjs":      MimeJavaScript,
	".cjs":      MimeJavaScript,
	".jsx":      MimeJavaScript,
	".yaml":     MimeYAML,
	".yml":      MimeYAML,
	".md":       MimeMarkdown,
	".markdown": MimeMarkdown,
	".mdx":      MimeMarkdown,
	".ipynb":    MimeJupyter,
}

// defaultIgnoreDirs are directory names pruned from every directory walk:
// version-control metadata, virtualenvs, dependency caches, and build
// output. Callers may extend this set but never shrink it.
var defaultIgnoreDirs = []string{
	".git",
	".hg",
	".svn",
	"venv",
	".venv",
	"ds_venv",
	"dw_env",
	"__pycache__",
	"node_modules",
	".ipynb_checkpoints",
	"dist",
	"build",
	".cache",
}

// DefaultIgnoreDirs returns a copy of the default ignore set. Returning a
// copy keeps the default set fixed no matter what callers do with the slice.
func DefaultIgnoreDirs() []string {
	out := make([]string, len(defaultIgnoreDirs))
	copy(out, defaultIgnoreDirs)
	return out
}

// Detector classifies files into MIME types using an extension table with a
// content-sniffing fallback.
type Detector struct{}

// New creates a file type detector.
func New() *Detector {
	return &Detector{}
}

// Detect returns the MIME type for the file at path. Extension lookup wins;
// otherwise the file's leading bytes are sniffed (shebang line, then generic
// content detection). Files that defeat both methods are classified as
// MimeUnknown rather than causing an error.
func (d *Detector) Detect(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("cannot detect file type: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := extensionTable[ext]; ok {
		return mime, nil
	}

	return d.sniff(path)
}

// sniff inspects file content when the extension is missing or unrecognized.
func (d *Detector) sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot sniff file type: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	head = head[:n]

	if mime := sniffShebang(head); mime != "" {
		return mime, nil
	}

	mtype := mimetype.Detect(head)
	if mtype == nil {
		return MimeUnknown, nil
	}
	return mtype.String(), nil
}

// sniffShebang maps interpreter lines to MIME types for extensionless
// scripts. Returns "" when the content has no recognizable shebang.
func sniffShebang(head []byte) string {
	if !bytes.HasPrefix(head, []byte("#!")) {
		return ""
	}
	line := head
	if idx := bytes.IndexByte(head, '\n'); idx >= 0 {
		line = head[:idx]
	}
	switch {
	case bytes.Contains(line, []byte("python")):
		return MimePython
	case bytes.Contains(line, []byte("node")):
		return MimeJavaScript
	default:
		return ""
	}
}

// ExtensionTable returns a copy of the extension-to-MIME mapping. The
// registry validates processor supported-type sets against it.
func (d *Detector) ExtensionTable() map[string]string {
	out := make(map[string]string, len(extensionTable))
	for ext, mime := range extensionTable {
		out[ext] = mime
	}
	return out
}

// IsText reports whether data looks like text. A NUL byte in the first 512
// bytes marks the content as binary.
func IsText(data []byte) bool {
	checkSize := 512
	if len(data) < checkSize {
		checkSize = len(data)
	}
	for i := 0; i < checkSize; i++ {
		if data[i] == 0 {
			return false
		}
	}
	return true
}
