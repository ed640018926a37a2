package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Columns is the stable column order of the element table. Every processor
// emits rows in exactly this shape, across every file it has seen.
var Columns = []string{"filepath", "parent_path", "order", "name", "content", "props", "element_type"}

// ElementRecord is one flattened row describing a structural construct
// discovered in a source file. NestingLevel is carried for invariant checks
// but is not part of the serialized table.
type ElementRecord struct {
	Filepath     string
	ParentPath   string
	Order        int
	Name         string
	Content      string
	Props        string
	ElementType  string
	NestingLevel int
}

// EncodeProps serializes format-specific properties to a JSON string.
// json.Marshal sorts map keys, so the encoding is deterministic for a given
// property set.
func EncodeProps(props map[string]any) string {
	if len(props) == 0 {
		return "{}"
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Table is the append-only, order-preserving collection of element records a
// processor accumulates across repeated ProcessFile calls. Existing rows are
// never altered or dropped; new rows are only appended.
type Table struct {
	records []ElementRecord
}

// Append adds records to the end of the table.
func (t *Table) Append(records ...ElementRecord) {
	t.records = append(t.records, records...)
}

// Records returns the accumulated rows in insertion order. Callers must not
// mutate the returned slice.
func (t *Table) Records() []ElementRecord {
	return t.records
}

// Len returns the number of accumulated rows.
func (t *Table) Len() int {
	return len(t.records)
}

// FileInfo captures metadata about a processed file.
type FileInfo struct {
	Name         string
	Path         string
	Size         int64
	LastModified time.Time
}

// StatFile collects FileInfo for path.
func StatFile(path string) (FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Name:         st.Name(),
		Path:         path,
		Size:         st.Size(),
		LastModified: st.ModTime(),
	}, nil
}

// ProcessingResult is what a processor returns for a single file: the
// records discovered in that file, file metadata, optional format-level
// metadata, and any errors. Parse and validation failures are recorded here
// as strings; they are never propagated as errors that would abort a
// directory walk.
type ProcessingResult struct {
	Errors   []string
	FileInfo FileInfo
	Metadata map[string]any
	Records  []ElementRecord
}

// NewProcessingResult creates an empty result for path, populating FileInfo
// when the file can be statted.
func NewProcessingResult(path string) *ProcessingResult {
	result := &ProcessingResult{}
	if info, err := StatFile(path); err == nil {
		result.FileInfo = info
	}
	return result
}

// AddError records a processing failure against this file.
func (r *ProcessingResult) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// IsValid reports whether processing completed without errors.
func (r *ProcessingResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Processor is the shared contract every format implementation satisfies.
// A processor instance is stateful: it owns a cumulative table that grows
// across ProcessFile calls. It is not safe for concurrent use; traversal
// state itself is local to each call, so one instance per worker is safe.
type Processor interface {
	// Name identifies the processor in registry output and table merging.
	Name() string

	// SupportedTypes returns the MIME types this processor answers to. The
	// set must stay consistent with the detector's extension table.
	SupportedTypes() []string

	// ProcessFile extracts element records from one file, appends them to
	// the processor's cumulative table, and returns the per-file result.
	// Parse failures are reported through the result's Errors, not the
	// returned error; the error return covers unreadable files only.
	ProcessFile(path string) (*ProcessingResult, error)

	// Table exposes the processor's cumulative element table. The same
	// table object grows across files; it is never reconstructed.
	Table() *Table
}
