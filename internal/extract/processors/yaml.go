package processors

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/structscan/structscan/internal/detect"
	"github.com/structscan/structscan/internal/extract"
)

// yamlEnvPattern matches ${VAR}, ${VAR:-default}, and bare $VAR references
// inside YAML scalar values.
var yamlEnvPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// YAMLProcessor extracts documents, mapping entries, and sequence items from
// YAML files, preserving document order, anchors, and comments.
type YAMLProcessor struct {
	table extract.Table
}

// NewYAMLProcessor creates a YAML processor.
func NewYAMLProcessor() *YAMLProcessor {
	return &YAMLProcessor{}
}

func (p *YAMLProcessor) Name() string { return "yaml" }

func (p *YAMLProcessor) SupportedTypes() []string {
	return []string{detect.MimeYAML}
}

func (p *YAMLProcessor) Table() *extract.Table { return &p.table }

// ProcessFile decodes every document in a YAML file and appends element
// records to the processor's table. Documents before a malformed one are
// kept; the failure is recorded as a result error.
func (p *YAMLProcessor) ProcessFile(path string) (*extract.ProcessingResult, error) {
	result := extract.NewProcessingResult(path)

	source, err := os.ReadFile(path)
	if err != nil {
		result.AddError("error reading file: %v", err)
		return result, nil
	}

	walk := &yamlWalk{
		path:   path,
		scope:  extract.NewScopeTracker(),
		result: result,
	}

	decoder := yaml.NewDecoder(bytes.NewReader(source))
	docIndex := 0
	for {
		var doc yaml.Node
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.AddError("yaml parse error: %v", err)
			break
		}
		docIndex++
		walk.visitDocument(&doc, docIndex)
	}

	p.table.Append(result.Records...)
	return result, nil
}

type yamlWalk struct {
	path   string
	scope  *extract.ScopeTracker
	result *extract.ProcessingResult
}

func (w *yamlWalk) visitDocument(doc *yaml.Node, index int) {
	name := fmt.Sprintf("doc_%d", index)
	props := map[string]any{"lineno": doc.Line}
	if doc.HeadComment != "" {
		props["comments"] = []string{doc.HeadComment}
	}
	w.emit("document", name, yamlContent(doc), props)

	w.scope.Push("Document", name)
	if len(doc.Content) > 0 {
		w.visitValue(doc.Content[0])
	}
	w.scope.Pop()
}

// visitValue dispatches on the node kind at the current scope: mappings emit
// one record per key, sequences one record per item.
func (w *yamlWalk) visitValue(node *yaml.Node) {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			w.visitPair(node.Content[i], node.Content[i+1])
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			w.visitItem(item, i+1)
		}
	case yaml.ScalarNode:
		// A document whose root is a bare scalar.
		w.emitScalar(node)
	case yaml.AliasNode:
		// Aliases are recorded where they appear as values, not expanded.
	}
}

func (w *yamlWalk) emitScalar(node *yaml.Node) {
	props := map[string]any{
		"lineno":        node.Line,
		"inferred_type": yamlInferredType(node),
	}
	if envs := yamlEnvVars(node.Value); len(envs) > 0 {
		props["env_vars"] = envs
	}
	if urls := extractURLs(node.Value); len(urls) > 0 {
		props["urls"] = urls
	}
	w.emit("scalar", "value", node.Value, props)
}

func (w *yamlWalk) visitPair(key, value *yaml.Node) {
	name := key.Value
	props := map[string]any{
		"lineno":        key.Line,
		"inferred_type": yamlInferredType(value),
	}
	if value.Anchor != "" {
		props["anchor"] = value.Anchor
	}
	if value.Kind == yaml.SequenceNode {
		props["length"] = len(value.Content)
	}
	if value.Kind == yaml.AliasNode {
		props["alias"] = value.Value
	}
	if comments := yamlComments(key); len(comments) > 0 {
		props["comments"] = comments
	}
	if value.Kind == yaml.ScalarNode {
		if envs := yamlEnvVars(value.Value); len(envs) > 0 {
			props["env_vars"] = envs
		}
		if urls := extractURLs(value.Value); len(urls) > 0 {
			props["urls"] = urls
		}
	}
	w.emit("mapping_entry", name, yamlContent(value), props)

	if value.Kind == yaml.MappingNode || value.Kind == yaml.SequenceNode {
		w.scope.Push("Key", name)
		w.visitValue(value)
		w.scope.Pop()
	}
}

func (w *yamlWalk) visitItem(item *yaml.Node, index int) {
	name := fmt.Sprintf("item_%d", index)
	props := map[string]any{
		"lineno":        item.Line,
		"inferred_type": yamlInferredType(item),
	}
	if item.Anchor != "" {
		props["anchor"] = item.Anchor
	}
	if item.Kind == yaml.SequenceNode {
		props["length"] = len(item.Content)
	}
	if item.Kind == yaml.ScalarNode {
		if envs := yamlEnvVars(item.Value); len(envs) > 0 {
			props["env_vars"] = envs
		}
		if urls := extractURLs(item.Value); len(urls) > 0 {
			props["urls"] = urls
		}
	}
	w.emit("sequence_item", name, yamlContent(item), props)

	if item.Kind == yaml.MappingNode || item.Kind == yaml.SequenceNode {
		w.scope.Push("Key", name)
		w.visitValue(item)
		w.scope.Pop()
	}
}

func (w *yamlWalk) emit(elementType, name, content string, props map[string]any) {
	w.result.Records = append(w.result.Records, extract.ElementRecord{
		Filepath:     w.path,
		ParentPath:   w.scope.ParentPath(),
		Order:        w.scope.Next(),
		Name:         name,
		Content:      content,
		Props:        extract.EncodeProps(props),
		ElementType:  elementType,
		NestingLevel: w.scope.Depth(),
	})
}

// yamlContent renders a node back to YAML text. Scalars keep their literal
// value; containers are re-marshalled.
func yamlContent(node *yaml.Node) string {
	if node.Kind == yaml.ScalarNode || node.Kind == yaml.AliasNode {
		return node.Value
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(out), "\n")
}

// yamlInferredType maps a node to a coarse type label derived from its kind
// and resolved tag.
func yamlInferredType(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	}
	switch node.Tag {
	case "!!int":
		return "int"
	case "!!float":
		return "float"
	case "!!bool":
		return "bool"
	case "!!null":
		return "null"
	case "!!timestamp":
		return "timestamp"
	default:
		return "string"
	}
}

func yamlComments(node *yaml.Node) []string {
	var comments []string
	if node.HeadComment != "" {
		comments = append(comments, node.HeadComment)
	}
	if node.LineComment != "" {
		comments = append(comments, node.LineComment)
	}
	return comments
}

// yamlEnvVars extracts environment variable names referenced by a scalar,
// stripping :-default suffixes, deduplicated and sorted.
func yamlEnvVars(value string) []string {
	seen := make(map[string]bool)
	for _, match := range yamlEnvPattern.FindAllStringSubmatch(value, -1) {
		name := match[1]
		if name == "" {
			name = match[2]
		}
		if idx := strings.Index(name, ":-"); idx >= 0 {
			name = name[:idx]
		}
		if idx := strings.Index(name, ":"); idx >= 0 {
			name = name[:idx]
		}
		if name != "" {
			seen[name] = true
		}
	}
	return sortedKeys(seen)
}
