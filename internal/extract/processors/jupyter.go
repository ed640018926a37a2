package processors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/structscan/structscan/internal/detect"
	"github.com/structscan/structscan/internal/extract"
)

// JupyterProcessor extracts notebook cells and their outputs from .ipynb
// files. Outputs nest under the cell that produced them.
type JupyterProcessor struct {
	table extract.Table
}

// NewJupyterProcessor creates a Jupyter notebook processor.
func NewJupyterProcessor() *JupyterProcessor {
	return &JupyterProcessor{}
}

func (p *JupyterProcessor) Name() string { return "jupyter" }

func (p *JupyterProcessor) SupportedTypes() []string {
	return []string{detect.MimeJupyter}
}

func (p *JupyterProcessor) Table() *extract.Table { return &p.table }

// notebook mirrors the nbformat 4 JSON layout, limited to the fields the
// extraction needs.
type notebook struct {
	Cells    []notebookCell `json:"cells"`
	Metadata struct {
		Kernelspec struct {
			Name     string `json:"name"`
			Language string `json:"language"`
		} `json:"kernelspec"`
		LanguageInfo struct {
			Name string `json:"name"`
		} `json:"language_info"`
	} `json:"metadata"`
	NBFormat int `json:"nbformat"`
}

type notebookCell struct {
	CellType       string         `json:"cell_type"`
	Source         stringList     `json:"source"`
	ExecutionCount *int           `json:"execution_count"`
	Outputs        []cellOutput   `json:"outputs"`
	Metadata       map[string]any `json:"metadata"`
}

type cellOutput struct {
	OutputType     string         `json:"output_type"`
	Name           string         `json:"name"`
	Text           stringList     `json:"text"`
	Data           map[string]any `json:"data"`
	EName          string         `json:"ename"`
	EValue         string         `json:"evalue"`
	Traceback      []string       `json:"traceback"`
	ExecutionCount *int           `json:"execution_count"`
}

// stringList accepts the two shapes nbformat allows for text fields: a
// single string or a list of line strings.
type stringList string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = stringList(single)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*s = stringList(strings.Join(lines, ""))
	return nil
}

// ProcessFile parses one notebook and appends its element records to the
// processor's table. A notebook that is not valid JSON yields zero elements
// and one error.
func (p *JupyterProcessor) ProcessFile(path string) (*extract.ProcessingResult, error) {
	result := extract.NewProcessingResult(path)

	source, err := os.ReadFile(path)
	if err != nil {
		result.AddError("error reading file: %v", err)
		return result, nil
	}

	var nb notebook
	if err := json.Unmarshal(source, &nb); err != nil {
		result.AddError("invalid notebook JSON: %v", err)
		return result, nil
	}

	scope := extract.NewScopeTracker()
	language := nb.Metadata.LanguageInfo.Name
	if language == "" {
		language = nb.Metadata.Kernelspec.Language
	}
	result.Metadata = map[string]any{
		"nbformat": nb.NBFormat,
		"kernel":   nb.Metadata.Kernelspec.Name,
		"language": language,
	}

	for idx, cell := range nb.Cells {
		name := cellName(idx, cell)
		props := map[string]any{
			"cell_type":   cell.CellType,
			"index":       idx,
			"has_outputs": len(cell.Outputs) > 0,
		}
		if cell.ExecutionCount != nil {
			props["execution_count"] = *cell.ExecutionCount
		}
		if language != "" && cell.CellType == "code" {
			props["language"] = language
		}
		if types := outputTypes(cell.Outputs); len(types) > 0 {
			props["output_types"] = types
		}
		appendRecord(result, path, scope, "cell", name, string(cell.Source), props)

		if len(cell.Outputs) == 0 {
			continue
		}
		scope.Push("Cell", name)
		for outIdx, out := range cell.Outputs {
			outName := fmt.Sprintf("%s_output_%d_%s", name, outIdx, out.OutputType)
			outProps := map[string]any{"output_type": out.OutputType}
			if out.ExecutionCount != nil {
				outProps["execution_count"] = *out.ExecutionCount
			}
			if out.Name != "" {
				outProps["stream"] = out.Name
			}
			if out.EName != "" {
				outProps["ename"] = out.EName
				outProps["evalue"] = out.EValue
			}
			appendRecord(result, path, scope, "output", outName, outputContent(out), outProps)
		}
		scope.Pop()
	}

	p.table.Append(result.Records...)
	return result, nil
}

// cellName builds the stable cell identifier: cell_<idx>_<type> plus the
// execution count when the cell has run.
func cellName(idx int, cell notebookCell) string {
	name := fmt.Sprintf("cell_%d_%s", idx, cell.CellType)
	if cell.ExecutionCount != nil {
		name = fmt.Sprintf("%s_%d", name, *cell.ExecutionCount)
	}
	return name
}

// outputTypes lists the distinct output types of a cell, in output order.
func outputTypes(outputs []cellOutput) []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range outputs {
		if !seen[o.OutputType] {
			seen[o.OutputType] = true
			out = append(out, o.OutputType)
		}
	}
	return out
}

// outputContent flattens one cell output into text by output type.
func outputContent(out cellOutput) string {
	switch out.OutputType {
	case "stream":
		return string(out.Text)
	case "error":
		return strings.Join(out.Traceback, "\n")
	case "execute_result", "display_data":
		if plain, ok := out.Data["text/plain"]; ok {
			return anyToString(plain)
		}
		encoded, err := json.Marshal(out.Data)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
	return string(out.Text)
}

// anyToString flattens the string-or-line-list shape nbformat uses inside
// data bundles.
func anyToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "")
	default:
		return fmt.Sprintf("%v", v)
	}
}

func appendRecord(result *extract.ProcessingResult, path string, scope *extract.ScopeTracker, elementType, name, content string, props map[string]any) {
	result.Records = append(result.Records, extract.ElementRecord{
		Filepath:     path,
		ParentPath:   scope.ParentPath(),
		Order:        scope.Next(),
		Name:         name,
		Content:      content,
		Props:        extract.EncodeProps(props),
		ElementType:  elementType,
		NestingLevel: scope.Depth(),
	})
}
