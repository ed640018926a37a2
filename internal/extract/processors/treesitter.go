package processors

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// nodeText extracts the source text covered by a tree-sitter node.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// startLine returns a node's 1-indexed starting line.
func startLine(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// leadingComments collects the contiguous run of comment nodes immediately
// preceding a node, in source order. A blank line breaks the run.
func leadingComments(node *sitter.Node, source []byte) []string {
	var comments []string
	expectedRow := int(node.StartPosition().Row) - 1
	for prev := node.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if prev.Kind() != "comment" {
			break
		}
		if int(prev.EndPosition().Row) != expectedRow {
			break
		}
		comments = append([]string{nodeText(prev, source)}, comments...)
		expectedRow = int(prev.StartPosition().Row) - 1
	}
	return comments
}

// firstErrorLine locates the first syntax error in a parsed tree and
// returns its 1-indexed line, or 0 when the tree is clean.
func firstErrorLine(node *sitter.Node) int {
	if node == nil {
		return 0
	}
	if node.Kind() == "ERROR" || node.IsMissing() {
		return startLine(node)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if line := firstErrorLine(node.Child(uint(i))); line > 0 {
			return line
		}
	}
	return 0
}

// paramNames extracts parameter names from a parameter-list node. Works for
// plain identifiers and for typed/defaulted parameter wrappers, which carry
// the identifier either in a "name" field or as their first named child.
func paramNames(params *sitter.Node, source []byte) []string {
	names := []string{}
	if params == nil {
		return names
	}
	for i := 0; i < int(params.ChildCount()); i++ {
		child := params.Child(uint(i))
		if !child.IsNamed() || child.Kind() == "comment" {
			continue
		}
		switch child.Kind() {
		case "identifier", "property_identifier", "shorthand_property_identifier_pattern":
			names = append(names, nodeText(child, source))
		default:
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				names = append(names, nodeText(nameNode, source))
			} else if child.NamedChildCount() > 0 && child.NamedChild(0).Kind() == "identifier" {
				names = append(names, nodeText(child.NamedChild(0), source))
			} else {
				names = append(names, nodeText(child, source))
			}
		}
	}
	return names
}

// trimQuotes strips a single layer of surrounding quotes, including Python
// triple quotes.
func trimQuotes(s string) string {
	for _, q := range []string{`"""`, "'''", `"`, "'", "`"} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}
