package extract

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/structscan/structscan/internal/detect"
)

// FileResult is the registry's per-file outcome: either a processor ran and
// produced a ProcessingResult, or the file was skipped with a reason.
type FileResult struct {
	Path       string
	MimeType   string
	Processor  string
	Skipped    bool
	SkipReason string
	Result     *ProcessingResult
}

// WalkOptions configures a directory walk.
type WalkOptions struct {
	// IgnoreDirs extends the default ignore set with additional directory
	// names to prune. The default set is always applied.
	IgnoreDirs []string

	// IgnorePatterns holds glob patterns matched against slash-separated
	// paths relative to the walk root, e.g. "**/generated" or "*.min.js".
	IgnorePatterns []string

	// OnFileProcessed, when set, is invoked after every file the walk
	// visits, skipped or not.
	OnFileProcessed func(path string)
}

// Registry maps MIME types to processors and orchestrates file and
// directory dispatch. Per-file failures are contained here: a batch run
// always completes and reports errors as data.
type Registry struct {
	detector   *detect.Detector
	processors []Processor
	byType     map[string]Processor
}

// NewRegistry creates a registry using the given detector for dispatch.
func NewRegistry(detector *detect.Detector) *Registry {
	return &Registry{
		detector: detector,
		byType:   make(map[string]Processor),
	}
}

// Register adds a processor. For each MIME type the first-registered
// processor wins; re-registering a claimed type is ignored, not an error.
func (r *Registry) Register(p Processor) {
	r.processors = append(r.processors, p)
	for _, mime := range p.SupportedTypes() {
		if _, claimed := r.byType[mime]; !claimed {
			r.byType[mime] = p
		}
	}
}

// ProcessorFor returns the processor claiming the given MIME type, or nil.
func (r *Registry) ProcessorFor(mimeType string) Processor {
	return r.byType[mimeType]
}

// Processors returns the registered processors in registration order.
func (r *Registry) Processors() []Processor {
	return r.processors
}

// Validate checks the registry's configuration against the detector: every
// MIME type in the detector's extension table must be claimed by a
// registered processor, and every claimed type must appear in the table.
// A mismatch is a configuration defect, caught at startup or in tests, not
// a runtime condition to recover from.
func (r *Registry) Validate() error {
	tableTypes := make(map[string]bool)
	for _, mime := range r.detector.ExtensionTable() {
		tableTypes[mime] = true
	}

	var problems []string
	for mime := range tableTypes {
		if r.byType[mime] == nil {
			problems = append(problems, fmt.Sprintf("no processor registered for %s", mime))
		}
	}
	for mime := range r.byType {
		if !tableTypes[mime] {
			problems = append(problems, fmt.Sprintf("processor claims %s but no extension maps to it", mime))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("registry configuration defect: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ProcessFile detects the file's type and dispatches it to the matching
// processor. Files with no matching processor are reported as skipped, not
// treated as fatal. Processor panics are recovered here and surfaced as
// result errors so one bad file cannot abort a walk.
func (r *Registry) ProcessFile(path string) (*FileResult, error) {
	mimeType, err := r.detector.Detect(path)
	if err != nil {
		return nil, err
	}

	fr := &FileResult{Path: path, MimeType: mimeType}

	p := r.byType[mimeType]
	if p == nil {
		fr.Skipped = true
		fr.SkipReason = fmt.Sprintf("no processor registered for %s", mimeType)
		return fr, nil
	}

	// A supported extension on binary content means a mislabeled file, not a
	// parseable one.
	if binary, err := isBinaryFile(path); err == nil && binary {
		fr.Skipped = true
		fr.SkipReason = "binary content"
		return fr, nil
	}
	fr.Processor = p.Name()

	result, err := r.runProcessor(p, path)
	if err != nil {
		result = NewProcessingResult(path)
		result.AddError("processing failed: %v", err)
	}
	fr.Result = result
	return fr, nil
}

// isBinaryFile checks the leading bytes of a file for binary content.
func isBinaryFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	return !detect.IsText(head[:n]), nil
}

// runProcessor invokes a processor with panic containment.
func (r *Registry) runProcessor(p Processor, path string) (result *ProcessingResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = NewProcessingResult(path)
			result.AddError("processor panic: %v", rec)
			err = nil
		}
	}()
	return p.ProcessFile(path)
}

// ProcessDirectory walks root depth-first, pruning ignored directories, and
// dispatches every file it finds. The returned map groups FileResults by
// folder relative to root, in walk order within each folder. Per-file
// failures never interrupt the walk.
func (r *Registry) ProcessDirectory(root string, opts WalkOptions) (map[string][]*FileResult, error) {
	ignoreSet := make(map[string]bool)
	for _, dir := range detect.DefaultIgnoreDirs() {
		ignoreSet[dir] = true
	}
	for _, dir := range opts.IgnoreDirs {
		ignoreSet[dir] = true
	}

	globs := make([]glob.Glob, 0, len(opts.IgnorePatterns))
	for _, pattern := range opts.IgnorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}

	results := make(map[string][]*FileResult)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("Warning: cannot access %s: %v\n", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if path != root && ignoreSet[d.Name()] {
				return filepath.SkipDir
			}
			for _, g := range globs {
				if g.Match(relPath) {
					return filepath.SkipDir
				}
			}
			return nil
		}

		for _, g := range globs {
			if g.Match(relPath) {
				return nil
			}
		}

		fr, procErr := r.ProcessFile(path)
		if procErr != nil {
			log.Printf("Warning: failed to process %s: %v\n", path, procErr)
			fr = &FileResult{Path: path, Skipped: true, SkipReason: procErr.Error()}
		}
		folder := filepath.ToSlash(filepath.Dir(relPath))
		results[folder] = append(results[folder], fr)

		if opts.OnFileProcessed != nil {
			opts.OnFileProcessed(path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return results, nil
}

// Tables returns each processor's full accumulated table, keyed by
// processor name. The tables are the live objects that grow across files,
// never reconstructed copies.
func (r *Registry) Tables() map[string]*Table {
	out := make(map[string]*Table, len(r.processors))
	for _, p := range r.processors {
		out[p.Name()] = p.Table()
	}
	return out
}

// MergedRecords concatenates every processor's table in registration order.
func (r *Registry) MergedRecords() []ElementRecord {
	var out []ElementRecord
	for _, p := range r.processors {
		out = append(out, p.Table().Records()...)
	}
	return out
}
