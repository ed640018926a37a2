package processors

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/structscan/structscan/internal/detect"
	"github.com/structscan/structscan/internal/extract"
)

// mdxImportPattern matches ESM import lines that MDX documents mix into
// markdown prose.
var mdxImportPattern = regexp.MustCompile(`(?m)^import\s+.+\s+from\s+['"]([^'"]+)['"];?\s*$`)

// jsxTagPattern matches an opening capitalized tag, the MDX component
// convention.
var jsxTagPattern = regexp.MustCompile(`^\s*<([A-Z][A-Za-z0-9]*)`)

// MarkdownProcessor extracts headers, code blocks, lists, links, quotes,
// tables, and embedded components from Markdown and MDX documents. Header
// levels drive the scope hierarchy: an h3 under an h2 nests inside it, and a
// new h2 closes every deeper section.
type MarkdownProcessor struct {
	md    goldmark.Markdown
	table extract.Table
}

// NewMarkdownProcessor creates a Markdown processor with GFM tables and YAML
// frontmatter enabled.
func NewMarkdownProcessor() *MarkdownProcessor {
	return &MarkdownProcessor{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, meta.Meta),
		),
	}
}

func (p *MarkdownProcessor) Name() string { return "markdown" }

func (p *MarkdownProcessor) SupportedTypes() []string {
	return []string{detect.MimeMarkdown}
}

func (p *MarkdownProcessor) Table() *extract.Table { return &p.table }

// ProcessFile parses one Markdown file and appends its element records to
// the processor's table.
func (p *MarkdownProcessor) ProcessFile(path string) (*extract.ProcessingResult, error) {
	result := extract.NewProcessingResult(path)

	source, err := os.ReadFile(path)
	if err != nil {
		result.AddError("error reading file: %v", err)
		return result, nil
	}

	if unclosedFence(source) {
		result.AddError("unclosed code fence in %s", path)
	}

	ctx := parser.NewContext()
	doc := p.md.Parser().Parse(text.NewReader(source), parser.WithContext(ctx))

	walk := &mdWalk{
		path:   path,
		source: source,
		scope:  extract.NewScopeTracker(),
		result: result,
	}

	if frontmatter := meta.Get(ctx); len(frontmatter) > 0 {
		result.Metadata = map[string]any{"frontmatter": frontmatter}
		walk.emit("frontmatter", "frontmatter", "", map[string]any{
			"fields": frontmatter,
		})
	}
	for _, match := range mdxImportPattern.FindAllStringSubmatch(string(source), -1) {
		walk.emit("import", match[1], strings.TrimSpace(match[0]), map[string]any{
			"source": match[1],
		})
	}

	walk.visit(doc)

	p.table.Append(result.Records...)
	return result, nil
}

type mdWalk struct {
	path   string
	source []byte
	scope  *extract.ScopeTracker
	result *extract.ProcessingResult

	// headerLevels mirrors the Header frames on the scope stack so a new
	// heading can close every section at its level or deeper.
	headerLevels []int

	quotes int
	rows   int
	items  int
}

func (w *mdWalk) visit(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		w.emitHeading(node)
		return
	case *ast.FencedCodeBlock:
		w.emitCodeBlock(node)
		return
	case *ast.ListItem:
		w.emitListItem(node)
	case *ast.Link:
		w.emitLink(string(node.Destination), mdText(node, w.source))
		return
	case *ast.AutoLink:
		url := string(node.URL(w.source))
		w.emitLink(url, url)
	case *ast.Blockquote:
		w.emitBlockquote(node)
	case *east.TableRow:
		w.emitTableRow(node, false)
	case *east.TableHeader:
		w.emitTableRow(node, true)
	case *ast.HTMLBlock:
		w.emitHTML(mdLinesText(node, w.source))
		return
	case *ast.RawHTML:
		var buf bytes.Buffer
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			buf.Write(seg.Value(w.source))
		}
		w.emitHTML(buf.String())
		return
	}

	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		w.visit(child)
	}
}

// emitHeading records a header and adjusts the scope: sections at this
// heading's level or deeper are closed before the new one opens.
func (w *mdWalk) emitHeading(node *ast.Heading) {
	for len(w.headerLevels) > 0 && w.headerLevels[len(w.headerLevels)-1] >= node.Level {
		w.headerLevels = w.headerLevels[:len(w.headerLevels)-1]
		w.scope.Pop()
	}

	title := mdText(node, w.source)
	w.emit("header", title, title, map[string]any{
		"level":  node.Level,
		"lineno": w.lineOf(node),
	})

	w.scope.Push("Header", title)
	w.headerLevels = append(w.headerLevels, node.Level)
}

func (w *mdWalk) emitCodeBlock(node *ast.FencedCodeBlock) {
	language := string(node.Language(w.source))
	name := "code"
	if language != "" {
		name = language
	}
	w.emit("code_block", name, mdLinesText(node, w.source), map[string]any{
		"language": language,
		"lineno":   w.lineOf(node),
	})
}

func (w *mdWalk) emitListItem(node *ast.ListItem) {
	w.items++
	props := map[string]any{"lineno": w.lineOf(node)}
	if list, ok := node.Parent().(*ast.List); ok {
		props["ordered"] = list.IsOrdered()
	}
	w.emit("list_item", fmt.Sprintf("item_%d", w.items), mdText(node, w.source), props)
}

func (w *mdWalk) emitLink(url, label string) {
	props := map[string]any{"destination": url}
	w.emit("link", label, url, props)
}

func (w *mdWalk) emitBlockquote(node *ast.Blockquote) {
	w.quotes++
	w.emit("blockquote", fmt.Sprintf("quote_%d", w.quotes), mdText(node, w.source), map[string]any{
		"lineno": w.lineOf(node),
	})
}

func (w *mdWalk) emitTableRow(node ast.Node, header bool) {
	w.rows++
	cells := []string{}
	for cell := node.FirstChild(); cell != nil; cell = cell.NextSibling() {
		cells = append(cells, mdText(cell, w.source))
	}
	w.emit("table_row", fmt.Sprintf("row_%d", w.rows), strings.Join(cells, " | "), map[string]any{
		"cells":  cells,
		"header": header,
	})
}

// emitHTML classifies inline or block HTML: a capitalized opening tag is an
// MDX component, anything else plain embedded HTML.
func (w *mdWalk) emitHTML(content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	if match := jsxTagPattern.FindStringSubmatch(content); match != nil {
		w.emit("jsx_component", match[1], content, map[string]any{"component": match[1]})
		return
	}
	w.emit("html_block", "html", content, nil)
}

func (w *mdWalk) emit(elementType, name, content string, props map[string]any) {
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

// lineOf computes a node's 1-indexed starting line from its first segment.
func (w *mdWalk) lineOf(n ast.Node) int {
	offset := mdStartOffset(n)
	if offset < 0 {
		return 0
	}
	return bytes.Count(w.source[:offset], []byte("\n")) + 1
}

func mdStartOffset(n ast.Node) int {
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return n.Lines().At(0).Start
	}
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if offset := mdStartOffset(child); offset >= 0 {
			return offset
		}
	}
	return -1
}

// mdText renders the plain text content of a node.
func mdText(n ast.Node, source []byte) string {
	return string(n.Text(source))
}

// mdLinesText joins the raw source lines a block node covers.
func mdLinesText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return strings.TrimRight(buf.String(), "\n")
}

// unclosedFence reports whether the document leaves a ``` fence open.
func unclosedFence(source []byte) bool {
	open := false
	for _, line := range strings.Split(string(source), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			open = !open
		}
	}
	return open
}
