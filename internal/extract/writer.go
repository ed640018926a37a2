package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// WriteCSV writes element records to w with the stable column header. The
// nesting level is deliberately not a column; it is derivable from
// parent_path and exists on the record for invariant checking.
func WriteCSV(w io.Writer, records []ElementRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.Filepath,
			rec.ParentPath,
			strconv.Itoa(rec.Order),
			rec.Name,
			rec.Content,
			rec.Props,
			rec.ElementType,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes records to path, creating parent directories as
// needed.
func WriteCSVFile(path string, records []ElementRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	return WriteCSV(f, records)
}
