package processors

import (
	"fmt"
	"os"
	"regexp"

	sitter "github.com/tree-sitter/go-tree-sitter"
	javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"

	"github.com/structscan/structscan/internal/detect"
	"github.com/structscan/structscan/internal/extract"
)

// envVarPattern matches process.env.NAME and process.env["NAME"] accesses.
var envVarPattern = regexp.MustCompile(`process\.env(?:\.(\w+)|\[['"](\w+)['"]\])`)

// JavaScriptProcessor extracts classes, methods, functions, imports, exports,
// and top-level declarations from JavaScript source files. It also harvests
// environment variable accesses and URL literals into record props.
type JavaScriptProcessor struct {
	language *sitter.Language
	table    extract.Table
}

// NewJavaScriptProcessor creates a JavaScript processor.
func NewJavaScriptProcessor() *JavaScriptProcessor {
	return &JavaScriptProcessor{
		language: sitter.NewLanguage(javascript.Language()),
	}
}

func (p *JavaScriptProcessor) Name() string { return "javascript" }

func (p *JavaScriptProcessor) SupportedTypes() []string {
	return []string{detect.MimeJavaScript}
}

func (p *JavaScriptProcessor) Table() *extract.Table { return &p.table }

// ProcessFile parses one JavaScript file in a single source-order pass and
// appends its element records to the processor's table.
func (p *JavaScriptProcessor) ProcessFile(path string) (*extract.ProcessingResult, error) {
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
		result.AddError("javascript parse failure: %s", path)
		return result, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		result.AddError("javascript syntax error near line %d", firstErrorLine(root))
	}

	walk := &jsWalk{
		path:   path,
		source: source,
		scope:  extract.NewScopeTracker(),
		result: result,
	}
	walk.visit(root)

	p.table.Append(result.Records...)
	return result, nil
}

type jsWalk struct {
	path      string
	source    []byte
	scope     *extract.ScopeTracker
	result    *extract.ProcessingResult
	anonymous int
}

func (w *jsWalk) visit(node *sitter.Node) {
	switch node.Kind() {
	case "import_statement":
		w.emitImport(node)
		return
	case "export_statement":
		w.emitExport(node)
		// Exported declarations are still extracted in their own right.
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			w.visit(decl)
		}
		return
	case "class_declaration", "class":
		w.emitClass(node)
		return
	case "method_definition":
		w.emitMethod(node)
		return
	case "function_declaration", "generator_function_declaration":
		w.emitFunction(node)
		return
	case "lexical_declaration", "variable_declaration":
		w.emitDeclaration(node)
		return
	case "arrow_function", "function_expression", "generator_function":
		w.emitAnonymousFunction(node)
		return
	case "call_expression":
		if fn := node.ChildByFieldName("function"); fn != nil && fn.Kind() == "import" {
			w.emitDynamicImport(node)
			return
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		w.visit(node.Child(uint(i)))
	}
}

func (w *jsWalk) emitImport(node *sitter.Node) {
	name := "import"
	props := map[string]any{"lineno": startLine(node)}
	if src := node.ChildByFieldName("source"); src != nil {
		name = trimQuotes(nodeText(src, w.source))
		props["source"] = name
	}
	w.emit("import", name, nodeText(node, w.source), props)
}

func (w *jsWalk) emitDynamicImport(node *sitter.Node) {
	name := "import"
	props := map[string]any{"lineno": startLine(node), "dynamic": true}
	if args := node.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
		name = trimQuotes(nodeText(args.NamedChild(0), w.source))
		props["source"] = name
	}
	w.emit("import", name, nodeText(node, w.source), props)
}

func (w *jsWalk) emitExport(node *sitter.Node) {
	name := "export"
	props := map[string]any{"lineno": startLine(node)}
	if decl := node.ChildByFieldName("declaration"); decl != nil {
		if nameNode := decl.ChildByFieldName("name"); nameNode != nil {
			name = nodeText(nameNode, w.source)
		}
	}
	if src := node.ChildByFieldName("source"); src != nil {
		props["source"] = trimQuotes(nodeText(src, w.source))
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(uint(i)).Kind() == "default" {
			props["default"] = true
			break
		}
	}
	w.emit("export", name, nodeText(node, w.source), props)
}

func (w *jsWalk) emitClass(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		w.result.AddError("class with unresolvable name at line %d", startLine(node))
		return
	}
	name := nodeText(nameNode, w.source)
	content := nodeText(node, w.source)

	props := map[string]any{"lineno": startLine(node)}
	if heritage := findChildKind(node, "class_heritage"); heritage != nil {
		props["extends"] = nodeText(heritage, w.source)
	}
	if urls := extractURLs(content); len(urls) > 0 {
		props["urls"] = urls
	}
	if envs := extractEnvVars(content); len(envs) > 0 {
		props["env_vars"] = envs
	}
	if comments := leadingComments(node, w.source); len(comments) > 0 {
		props["comments"] = comments
	}
	w.emit("class", name, content, props)

	w.scope.Push("Class", name)
	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			w.visit(body.Child(uint(i)))
		}
	}
	w.scope.Pop()
}

func (w *jsWalk) emitMethod(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nodeText(nameNode, w.source)
	content := nodeText(node, w.source)

	props := map[string]any{
		"lineno":     startLine(node),
		"parameters": paramNames(node.ChildByFieldName("parameters"), w.source),
	}
	if isAsync(node) {
		props["async"] = true
	}
	if urls := extractURLs(content); len(urls) > 0 {
		props["urls"] = urls
	}
	if envs := extractEnvVars(content); len(envs) > 0 {
		props["env_vars"] = envs
	}
	w.emit("method", name, content, props)

	w.scope.Push("Function", name)
	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			w.visit(body.Child(uint(i)))
		}
	}
	w.scope.Pop()
}

func (w *jsWalk) emitFunction(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		w.result.AddError("function with unresolvable name at line %d", startLine(node))
		return
	}
	w.emitNamedFunction(node, nodeText(nameNode, w.source), node)
}

// emitNamedFunction records a function element and walks its body inside a
// Function scope frame. The record node and the function node differ when a
// declaration like `const f = () => {}` names an inner function expression.
func (w *jsWalk) emitNamedFunction(recordNode *sitter.Node, name string, fn *sitter.Node) {
	content := nodeText(recordNode, w.source)

	props := map[string]any{
		"lineno":     startLine(recordNode),
		"parameters": paramNames(fn.ChildByFieldName("parameters"), w.source),
	}
	if isAsync(fn) {
		props["async"] = true
	}
	if urls := extractURLs(content); len(urls) > 0 {
		props["urls"] = urls
	}
	if envs := extractEnvVars(content); len(envs) > 0 {
		props["env_vars"] = envs
	}
	if comments := leadingComments(recordNode, w.source); len(comments) > 0 {
		props["comments"] = comments
	}
	w.emit("function", name, content, props)

	w.scope.Push("Function", name)
	if body := fn.ChildByFieldName("body"); body != nil {
		w.visitBody(body)
	}
	w.scope.Pop()
}

// visitBody walks the children of a function body. An arrow function body may
// be a bare expression rather than a statement block.
func (w *jsWalk) visitBody(body *sitter.Node) {
	if body.Kind() == "statement_block" {
		for i := 0; i < int(body.ChildCount()); i++ {
			w.visit(body.Child(uint(i)))
		}
		return
	}
	w.visit(body)
}

func (w *jsWalk) emitDeclaration(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(uint(i))
		if decl.Kind() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nodeText(nameNode, w.source)
		value := decl.ChildByFieldName("value")

		// A function-valued declarator is a named function, not a variable.
		if value != nil && isFunctionNode(value) {
			w.emitNamedFunction(node, name, value)
			continue
		}

		if w.scope.Depth() > 0 {
			// Nested plain variables are noise; only their function values
			// matter, handled above. Still descend for nested declarations.
			if value != nil {
				w.visit(value)
			}
			continue
		}

		elementType := "variable"
		if isConstantName(name) {
			elementType = "constant"
		}
		props := map[string]any{"lineno": startLine(node)}
		if value != nil {
			props["value"] = nodeText(value, w.source)
			if envs := extractEnvVars(nodeText(value, w.source)); len(envs) > 0 {
				props["env_vars"] = envs
			}
		}
		w.emit(elementType, name, nodeText(node, w.source), props)
	}
}

func (w *jsWalk) emitAnonymousFunction(node *sitter.Node) {
	w.anonymous++
	name := fmt.Sprintf("anonymous_%d", w.anonymous)
	elementType := "function"
	if node.Kind() == "arrow_function" {
		elementType = "arrow_function"
	}
	props := map[string]any{
		"lineno":     startLine(node),
		"parameters": paramNames(node.ChildByFieldName("parameters"), w.source),
		"anonymous":  true,
	}
	if isAsync(node) {
		props["async"] = true
	}
	w.emit(elementType, name, nodeText(node, w.source), props)

	// Anonymous functions do not open a scope frame; their inner elements
	// attach to the enclosing named scope.
	if body := node.ChildByFieldName("body"); body != nil {
		w.visitBody(body)
	}
}

func (w *jsWalk) emit(elementType, name, content string, props map[string]any) {
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

// extractEnvVars harvests process.env accesses from a source span,
// deduplicated and sorted.
func extractEnvVars(text string) []string {
	seen := make(map[string]bool)
	for _, match := range envVarPattern.FindAllStringSubmatch(text, -1) {
		if match[1] != "" {
			seen[match[1]] = true
		} else if match[2] != "" {
			seen[match[2]] = true
		}
	}
	return sortedKeys(seen)
}

func isFunctionNode(node *sitter.Node) bool {
	switch node.Kind() {
	case "arrow_function", "function_expression", "generator_function":
		return true
	}
	return false
}

func isAsync(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if !child.IsNamed() && child.Kind() == "async" {
			return true
		}
	}
	return false
}

func findChildKind(node *sitter.Node, kind string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(uint(i)); child.Kind() == kind {
			return child
		}
	}
	return nil
}
