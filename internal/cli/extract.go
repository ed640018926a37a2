package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/structscan/structscan/internal/config"
	"github.com/structscan/structscan/internal/detect"
	"github.com/structscan/structscan/internal/extract"
	"github.com/structscan/structscan/internal/extract/processors"
)

var (
	outputFlag     string
	perTypeFlag    bool
	quietFlag      bool
	ignoreFlag     []string
	ignoreDirsFlag []string
	showErrorsFlag bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract [path]",
	Short: "Extract structural elements from a file or directory tree",
	Long: `Extract walks a directory (or processes a single file) and extracts its
structural elements into an ordered CSV table.

Supported inputs:
  - Python (.py)        classes, functions, methods, lambdas, imports
  - JavaScript (.js)    classes, methods, functions, imports, exports
  - YAML (.yml, .yaml)  documents, mapping entries, sequence items
  - Markdown (.md)      headers, code blocks, lists, links, tables
  - Jupyter (.ipynb)    cells and their outputs

Examples:
  # Scan the current directory
  structscan extract

  # Scan a project into a specific CSV
  structscan extract ./project -o elements.csv

  # Skip generated trees
  structscan extract ./project --ignore '**/generated' --ignore '*.min.js'
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "CSV output path (default from config, structscan.csv)")
	extractCmd.Flags().BoolVar(&perTypeFlag, "per-type", false, "Also write one CSV per processor next to the output file")
	extractCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	extractCmd.Flags().StringArrayVar(&ignoreFlag, "ignore", nil, "Glob pattern to skip, relative to the scan root (repeatable)")
	extractCmd.Flags().StringArrayVar(&ignoreDirsFlag, "ignore-dir", nil, "Directory name to prune in addition to the built-in set (repeatable)")
	extractCmd.Flags().BoolVar(&showErrorsFlag, "errors", false, "Print per-file processing errors after the summary")
}

func runExtract(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}

	rootDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	outputPath := cfg.Output.Path
	if outputFlag != "" {
		outputPath = outputFlag
	}
	perType := cfg.Output.PerType || perTypeFlag

	registry, err := newRegistry()
	if err != nil {
		return err
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", target, err)
	}

	var fileResults []*extract.FileResult
	if info.IsDir() {
		fileResults, err = extractDirectory(registry, cfg, target)
		if err != nil {
			return err
		}
	} else {
		fr, err := registry.ProcessFile(target)
		if err != nil {
			return fmt.Errorf("failed to process %s: %w", target, err)
		}
		fileResults = []*extract.FileResult{fr}
	}

	records := registry.MergedRecords()
	if err := extract.WriteCSVFile(outputPath, records); err != nil {
		return err
	}
	if perType {
		if err := writePerTypeTables(registry, outputPath); err != nil {
			return err
		}
	}

	printSummary(fileResults, len(records), outputPath)
	return nil
}

// newRegistry assembles the full processor set and checks it against the
// detector's extension table.
func newRegistry() (*extract.Registry, error) {
	registry := extract.NewRegistry(detect.New())
	registry.Register(processors.NewPythonProcessor())
	registry.Register(processors.NewJavaScriptProcessor())
	registry.Register(processors.NewYAMLProcessor())
	registry.Register(processors.NewMarkdownProcessor())
	registry.Register(processors.NewJupyterProcessor())
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}

func extractDirectory(registry *extract.Registry, cfg *config.Config, target string) ([]*extract.FileResult, error) {
	patterns := append(append([]string{}, cfg.Walk.IgnorePatterns...), ignoreFlag...)
	ignoreDirs := append(append([]string{}, cfg.Walk.IgnoreDirs...), ignoreDirsFlag...)

	progress := NewScanProgress(quietFlag, countFiles(target, ignoreDirs))

	results, err := registry.ProcessDirectory(target, extract.WalkOptions{
		IgnoreDirs:      ignoreDirs,
		IgnorePatterns:  patterns,
		OnFileProcessed: progress.OnFileProcessed,
	})
	if err != nil {
		return nil, err
	}
	progress.Finish()

	// Flatten folder groups in stable order.
	folders := make([]string, 0, len(results))
	for folder := range results {
		folders = append(folders, folder)
	}
	sort.Strings(folders)

	var flat []*extract.FileResult
	for _, folder := range folders {
		flat = append(flat, results[folder]...)
	}
	return flat, nil
}

// countFiles sizes the progress bar. It prunes the same directories the real
// walk will prune; pattern-level skips still tick the bar, so the count only
// needs the directory set.
func countFiles(root string, extraIgnoreDirs []string) int {
	ignoreSet := make(map[string]bool)
	for _, dir := range detect.DefaultIgnoreDirs() {
		ignoreSet[dir] = true
	}
	for _, dir := range extraIgnoreDirs {
		ignoreSet[dir] = true
	}

	count := 0
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && ignoreSet[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		count++
		return nil
	})
	return count
}

func writePerTypeTables(registry *extract.Registry, outputPath string) error {
	ext := filepath.Ext(outputPath)
	base := strings.TrimSuffix(outputPath, ext)
	for name, table := range registry.Tables() {
		if table.Len() == 0 {
			continue
		}
		path := fmt.Sprintf("%s.%s%s", base, name, ext)
		if err := extract.WriteCSVFile(path, table.Records()); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(fileResults []*extract.FileResult, totalRecords int, outputPath string) {
	processed, skipped, failed := 0, 0, 0
	for _, fr := range fileResults {
		switch {
		case fr.Skipped:
			skipped++
		case fr.Result != nil && !fr.Result.IsValid():
			failed++
			processed++
		default:
			processed++
		}
	}

	if !quietFlag {
		fmt.Println()
		fmt.Printf("✓ Extraction complete: %d elements from %d files\n", totalRecords, processed)
		fmt.Printf("  Skipped: %d\n", skipped)
		if failed > 0 {
			fmt.Printf("  Files with errors: %d\n", failed)
		}
		fmt.Printf("  Output: %s\n", outputPath)
	}

	if showErrorsFlag {
		for _, fr := range fileResults {
			if fr.Result == nil {
				continue
			}
			for _, msg := range fr.Result.Errors {
				log.Printf("Warning: %s: %s\n", fr.Path, msg)
			}
		}
	}
}
