package processors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for YAMLProcessor:
// - Each document yields a doc_N record opening a Document scope
// - Mapping entries nest under their containing keys
// - Sequence items are named positionally
// - Scalar types are inferred from resolved tags
// - ${VAR} and $VAR references are harvested into env_vars
// - Anchors are recorded in props
// - Multi-document streams keep one order counter per file
// - Malformed YAML keeps earlier documents and records an error

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestYAMLProcessor_NestedMappings(t *testing.T) {
	t.Parallel()

	source := `name: demo
server:
  host: localhost
  port: 8080
`
	p := NewYAMLProcessor()
	result, err := p.ProcessFile(writeYAML(t, source))
	require.NoError(t, err)
	require.True(t, result.IsValid())
	require.Len(t, result.Records, 5)

	doc := result.Records[0]
	assert.Equal(t, "document", doc.ElementType)
	assert.Equal(t, "doc_1", doc.Name)
	assert.Equal(t, 1, doc.Order)
	assert.Equal(t, 0, doc.NestingLevel)

	name := result.Records[1]
	assert.Equal(t, "mapping_entry", name.ElementType)
	assert.Equal(t, "name", name.Name)
	assert.Equal(t, "Document:doc_1", name.ParentPath)
	assert.Equal(t, "demo", name.Content)

	server := result.Records[2]
	assert.Equal(t, "server", server.Name)
	assert.Contains(t, server.Props, `"inferred_type":"mapping"`)

	host := result.Records[3]
	assert.Equal(t, "host", host.Name)
	assert.Equal(t, "Document:doc_1.Key:server", host.ParentPath)
	assert.Equal(t, 2, host.NestingLevel)

	port := result.Records[4]
	assert.Equal(t, "port", port.Name)
	assert.Contains(t, port.Props, `"inferred_type":"int"`)
	assert.Equal(t, "8080", port.Content)
}

func TestYAMLProcessor_Sequences(t *testing.T) {
	t.Parallel()

	source := `items:
  - alpha
  - beta
`
	p := NewYAMLProcessor()
	result, err := p.ProcessFile(writeYAML(t, source))
	require.NoError(t, err)
	require.Len(t, result.Records, 4)

	first := recordByName(result.Records, "item_1")
	require.NotNil(t, first)
	assert.Equal(t, "sequence_item", first.ElementType)
	assert.Equal(t, "alpha", first.Content)
	assert.Equal(t, "Document:doc_1.Key:items", first.ParentPath)

	second := recordByName(result.Records, "item_2")
	require.NotNil(t, second)
	assert.Equal(t, "beta", second.Content)

	items := recordByName(result.Records, "items")
	require.NotNil(t, items)
	assert.Contains(t, items.Props, `"length":2`)
}

func TestYAMLProcessor_ScalarDocument(t *testing.T) {
	t.Parallel()

	p := NewYAMLProcessor()
	result, err := p.ProcessFile(writeYAML(t, "just a string\n"))
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	scalar := result.Records[1]
	assert.Equal(t, "scalar", scalar.ElementType)
	assert.Equal(t, "just a string", scalar.Content)
	assert.Equal(t, "Document:doc_1", scalar.ParentPath)
}

func TestYAMLProcessor_EnvVars(t *testing.T) {
	t.Parallel()

	source := `database:
  host: ${DB_HOST:-localhost}
  password: $DB_PASSWORD
`
	p := NewYAMLProcessor()
	result, err := p.ProcessFile(writeYAML(t, source))
	require.NoError(t, err)

	host := recordByName(result.Records, "host")
	require.NotNil(t, host)
	assert.Contains(t, host.Props, `"env_vars":["DB_HOST"]`)

	password := recordByName(result.Records, "password")
	require.NotNil(t, password)
	assert.Contains(t, password.Props, `"env_vars":["DB_PASSWORD"]`)
}

func TestYAMLProcessor_Anchors(t *testing.T) {
	t.Parallel()

	source := `defaults: &base
  retries: 3
service:
  settings: *base
`
	p := NewYAMLProcessor()
	result, err := p.ProcessFile(writeYAML(t, source))
	require.NoError(t, err)

	defaults := recordByName(result.Records, "defaults")
	require.NotNil(t, defaults)
	assert.Contains(t, defaults.Props, `"anchor":"base"`)

	settings := recordByName(result.Records, "settings")
	require.NotNil(t, settings)
	assert.Contains(t, settings.Props, `"alias":"base"`)
}

func TestYAMLProcessor_MultiDocument(t *testing.T) {
	t.Parallel()

	source := `first: 1
---
second: 2
`
	p := NewYAMLProcessor()
	result, err := p.ProcessFile(writeYAML(t, source))
	require.NoError(t, err)
	require.Len(t, result.Records, 4)

	assert.Equal(t, "doc_1", result.Records[0].Name)
	assert.Equal(t, "doc_2", result.Records[2].Name)
	// One counter for the whole file, continuing across documents.
	orders := []int{result.Records[0].Order, result.Records[1].Order, result.Records[2].Order, result.Records[3].Order}
	assert.Equal(t, []int{1, 2, 3, 4}, orders)

	second := recordByName(result.Records, "second")
	require.NotNil(t, second)
	assert.Equal(t, "Document:doc_2", second.ParentPath)
}

func TestYAMLProcessor_MalformedDocument(t *testing.T) {
	t.Parallel()

	source := `valid: yes
---
broken: [unclosed
`
	p := NewYAMLProcessor()
	result, err := p.ProcessFile(writeYAML(t, source))
	require.NoError(t, err)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "yaml parse error")

	// The well-formed first document survives.
	valid := recordByName(result.Records, "valid")
	assert.NotNil(t, valid)
}

func TestYAMLProcessor_EmptyFile(t *testing.T) {
	t.Parallel()

	p := NewYAMLProcessor()
	result, err := p.ProcessFile(writeYAML(t, ""))
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Errors)
}
