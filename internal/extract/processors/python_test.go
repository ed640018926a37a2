package processors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structscan/structscan/internal/extract"
)

// Test Plan for PythonProcessor:
// - Extract classes with methods nested under Class:Name parents
// - Extract standalone functions and nested functions
// - Order is strictly increasing from 1 within each file
// - Extract docstrings into props
// - Extract imports and module-level constants/variables
// - Name lambdas positionally
// - Empty files yield zero records and zero errors
// - Syntax errors are recorded without aborting extraction
// - The cumulative table grows across files without losing rows

func writePython(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.py")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func recordByName(records []extract.ElementRecord, name string) *extract.ElementRecord {
	for i := range records {
		if records[i].Name == name {
			return &records[i]
		}
	}
	return nil
}

func TestPythonProcessor_ClassAndMethods(t *testing.T) {
	t.Parallel()

	source := `class Calculator:
    """Does arithmetic."""

    def add(self, a, b):
        return a + b

    def sub(self, a, b):
        return a - b
`
	p := NewPythonProcessor()
	result, err := p.ProcessFile(writePython(t, source))
	require.NoError(t, err)
	require.True(t, result.IsValid())
	require.Len(t, result.Records, 3)

	class := result.Records[0]
	assert.Equal(t, "class", class.ElementType)
	assert.Equal(t, "Calculator", class.Name)
	assert.Equal(t, 1, class.Order)
	assert.Equal(t, "", class.ParentPath)
	assert.Equal(t, 0, class.NestingLevel)
	assert.Contains(t, class.Props, `"docstring":"Does arithmetic."`)

	add := result.Records[1]
	assert.Equal(t, "method", add.ElementType)
	assert.Equal(t, "add", add.Name)
	assert.Equal(t, 2, add.Order)
	assert.Equal(t, "Class:Calculator", add.ParentPath)
	assert.Equal(t, 1, add.NestingLevel)

	sub := result.Records[2]
	assert.Equal(t, "method", sub.ElementType)
	assert.Equal(t, 3, sub.Order)
	assert.Equal(t, "Class:Calculator", sub.ParentPath)
}

func TestPythonProcessor_NestedFunctions(t *testing.T) {
	t.Parallel()

	source := `def outer():
    def inner():
        pass
    return inner
`
	p := NewPythonProcessor()
	result, err := p.ProcessFile(writePython(t, source))
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	outer := result.Records[0]
	assert.Equal(t, "function", outer.ElementType)
	assert.Equal(t, "outer", outer.Name)
	assert.Equal(t, 0, outer.NestingLevel)
	assert.Equal(t, "", outer.ParentPath)

	inner := result.Records[1]
	assert.Equal(t, "function", inner.ElementType)
	assert.Equal(t, "inner", inner.Name)
	assert.Equal(t, 1, inner.NestingLevel)
	assert.Equal(t, "Function:outer", inner.ParentPath)
}

func TestPythonProcessor_ImportsAndAssignments(t *testing.T) {
	t.Parallel()

	source := `import os
from pathlib import Path

MAX_RETRIES = 3
timeout = 30
`
	p := NewPythonProcessor()
	result, err := p.ProcessFile(writePython(t, source))
	require.NoError(t, err)

	osImport := recordByName(result.Records, "os")
	require.NotNil(t, osImport)
	assert.Equal(t, "import", osImport.ElementType)

	pathImport := recordByName(result.Records, "pathlib")
	require.NotNil(t, pathImport)
	assert.Equal(t, "import", pathImport.ElementType)
	assert.Contains(t, pathImport.Props, `"from":true`)

	constant := recordByName(result.Records, "MAX_RETRIES")
	require.NotNil(t, constant)
	assert.Equal(t, "constant", constant.ElementType)
	assert.Contains(t, constant.Props, `"value":"3"`)

	variable := recordByName(result.Records, "timeout")
	require.NotNil(t, variable)
	assert.Equal(t, "variable", variable.ElementType)
}

func TestPythonProcessor_Lambdas(t *testing.T) {
	t.Parallel()

	source := `square = lambda x: x * x
double = lambda y: y + y
`
	p := NewPythonProcessor()
	result, err := p.ProcessFile(writePython(t, source))
	require.NoError(t, err)

	first := recordByName(result.Records, "lambda_1")
	require.NotNil(t, first)
	assert.Equal(t, "lambda", first.ElementType)
	assert.Contains(t, first.Props, `"parameters":["x"]`)

	second := recordByName(result.Records, "lambda_2")
	require.NotNil(t, second)
	assert.Contains(t, second.Props, `"parameters":["y"]`)
}

func TestPythonProcessor_FunctionProps(t *testing.T) {
	t.Parallel()

	source := `def greet(name, greeting="hello"):
    """Say hi."""
    return f"{greeting}, {name}"
`
	p := NewPythonProcessor()
	result, err := p.ProcessFile(writePython(t, source))
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	fn := result.Records[0]
	assert.Equal(t, "function", fn.ElementType)
	assert.Contains(t, fn.Props, `"docstring":"Say hi."`)
	assert.Contains(t, fn.Props, `"lineno":1`)
	assert.Contains(t, fn.Props, `"parameters":["name","greeting"]`)
}

func TestPythonProcessor_EmptyFile(t *testing.T) {
	t.Parallel()

	p := NewPythonProcessor()
	result, err := p.ProcessFile(writePython(t, ""))
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Empty(t, result.Errors)
	assert.Equal(t, int64(0), result.FileInfo.Size)
	assert.Equal(t, 0, p.Table().Len())
}

func TestPythonProcessor_SyntaxError(t *testing.T) {
	t.Parallel()

	p := NewPythonProcessor()
	result, err := p.ProcessFile(writePython(t, "def broken(:\n"))
	require.NoError(t, err)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "syntax error")
}

func TestPythonProcessor_MissingFile(t *testing.T) {
	t.Parallel()

	p := NewPythonProcessor()
	result, err := p.ProcessFile(filepath.Join(t.TempDir(), "absent.py"))
	require.NoError(t, err)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "error reading file")
	assert.Empty(t, result.Records)
}

func TestPythonProcessor_TableAccumulates(t *testing.T) {
	t.Parallel()

	p := NewPythonProcessor()

	dir := t.TempDir()
	for i, content := range []string{"def a(): pass\n", "def b(): pass\n"} {
		path := filepath.Join(dir, string(rune('a'+i))+".py")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := p.ProcessFile(path)
		require.NoError(t, err)
	}

	records := p.Table().Records()
	require.Equal(t, 2, p.Table().Len())
	assert.Equal(t, "a", records[0].Name)
	assert.Equal(t, "b", records[1].Name)
	// Each file restarts the order counter.
	assert.Equal(t, 1, records[0].Order)
	assert.Equal(t, 1, records[1].Order)
}
