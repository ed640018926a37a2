package processors

import (
	"fmt"
	"os"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/structscan/structscan/internal/detect"
	"github.com/structscan/structscan/internal/extract"
)

// PythonProcessor extracts classes, functions, methods, lambdas, imports,
// and module-level assignments from Python source files.
type PythonProcessor struct {
	language *sitter.Language
	table    extract.Table
}

// NewPythonProcessor creates a Python processor.
func NewPythonProcessor() *PythonProcessor {
	return &PythonProcessor{
		language: sitter.NewLanguage(python.Language()),
	}
}

// Name identifies this processor in registry output.
func (p *PythonProcessor) Name() string { return "python" }

// SupportedTypes returns the MIME types this processor answers to.
func (p *PythonProcessor) SupportedTypes() []string {
	return []string{detect.MimePython}
}

// Table exposes the cumulative element table.
func (p *PythonProcessor) Table() *extract.Table { return &p.table }

// ProcessFile parses one Python file and appends its element records to the
// processor's table. Parse and validation failures are reported through the
// result, never as a returned error.
func (p *PythonProcessor) ProcessFile(path string) (*extract.ProcessingResult, error) {
	result := extract.NewProcessingResult(path)

	source, err := os.ReadFile(path)
	if err != nil {
		result.AddError("error reading file: %v", err)
		return result, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		result.AddError("python parse failure: %s", path)
		return result, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		result.AddError("python syntax error near line %d", firstErrorLine(root))
	}

	walk := &pythonWalk{
		path:   path,
		source: source,
		scope:  extract.NewScopeTracker(),
		result: result,
	}
	walk.visit(root)

	p.table.Append(result.Records...)
	return result, nil
}

// pythonWalk carries the traversal context for one file. All mutable state
// lives here, not on the processor, so ProcessFile calls stay independent.
type pythonWalk struct {
	path    string
	source  []byte
	scope   *extract.ScopeTracker
	result  *extract.ProcessingResult
	lambdas int
}

func (w *pythonWalk) visit(node *sitter.Node) {
	switch node.Kind() {
	case "class_definition":
		w.emitClass(node)
		return
	case "function_definition":
		w.emitFunction(node)
		return
	case "lambda":
		w.emitLambda(node)
		return
	case "import_statement", "import_from_statement", "future_import_statement":
		w.emitImport(node)
		return
	case "assignment":
		if w.scope.Depth() == 0 {
			w.emitAssignment(node)
		}
		// Lambdas on the right-hand side are still extractable.
		if right := node.ChildByFieldName("right"); right != nil {
			w.visit(right)
		}
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		w.visit(node.Child(uint(i)))
	}
}

func (w *pythonWalk) emitClass(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		w.result.AddError("class with unresolvable name at line %d", startLine(node))
		return
	}
	name := nodeText(nameNode, w.source)

	props := map[string]any{
		"lineno":    startLine(node),
		"docstring": pythonDocstring(node.ChildByFieldName("body"), w.source),
	}
	if bases := node.ChildByFieldName("superclasses"); bases != nil {
		props["bases"] = nodeText(bases, w.source)
	}
	if comments := leadingComments(node, w.source); len(comments) > 0 {
		props["comments"] = comments
	}
	w.emit("class", name, nodeText(node, w.source), props)

	w.scope.Push("Class", name)
	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			w.visit(body.Child(uint(i)))
		}
	}
	w.scope.Pop()
}

func (w *pythonWalk) emitFunction(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		w.result.AddError("function with unresolvable name at line %d", startLine(node))
		return
	}
	name := nodeText(nameNode, w.source)

	elementType := "function"
	if top, ok := w.scope.Top(); ok && top.Type == "Class" {
		elementType = "method"
	}

	props := map[string]any{
		"lineno":     startLine(node),
		"parameters": paramNames(node.ChildByFieldName("parameters"), w.source),
		"docstring":  pythonDocstring(node.ChildByFieldName("body"), w.source),
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		props["return_type"] = nodeText(ret, w.source)
	}
	if comments := leadingComments(node, w.source); len(comments) > 0 {
		props["comments"] = comments
	}
	w.emit(elementType, name, nodeText(node, w.source), props)

	w.scope.Push("Function", name)
	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			w.visit(body.Child(uint(i)))
		}
	}
	w.scope.Pop()
}

func (w *pythonWalk) emitLambda(node *sitter.Node) {
	w.lambdas++
	name := fmt.Sprintf("lambda_%d", w.lambdas)
	props := map[string]any{
		"lineno":     startLine(node),
		"parameters": paramNames(node.ChildByFieldName("parameters"), w.source),
	}
	w.emit("lambda", name, nodeText(node, w.source), props)

	// Lambdas never open a scope, but their bodies can hold more lambdas.
	if body := node.ChildByFieldName("body"); body != nil {
		w.visit(body)
	}
}

func (w *pythonWalk) emitImport(node *sitter.Node) {
	name := "import"
	props := map[string]any{"lineno": startLine(node)}
	if node.Kind() == "import_from_statement" {
		if module := node.ChildByFieldName("module_name"); module != nil {
			name = nodeText(module, w.source)
			props["from"] = true
		}
	} else if node.NamedChildCount() > 0 {
		name = nodeText(node.NamedChild(0), w.source)
	}
	w.emit("import", name, nodeText(node, w.source), props)
}

func (w *pythonWalk) emitAssignment(node *sitter.Node) {
	left := node.ChildByFieldName("left")
	if left == nil {
		return
	}
	name := nodeText(left, w.source)

	elementType := "variable"
	if isConstantName(name) {
		elementType = "constant"
	}

	props := map[string]any{"lineno": startLine(node)}
	if right := node.ChildByFieldName("right"); right != nil {
		props["value"] = nodeText(right, w.source)
	}
	w.emit(elementType, name, nodeText(node, w.source), props)
}

func (w *pythonWalk) emit(elementType, name, content string, props map[string]any) {
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

// pythonDocstring returns the docstring of a class or function body: the
// leading expression statement when it is a bare string literal.
func pythonDocstring(body *sitter.Node, source []byte) string {
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Kind() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Kind() != "string" {
		return ""
	}
	return trimQuotes(nodeText(str, source))
}
