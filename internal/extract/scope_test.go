package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for ScopeTracker:
// - Order counter starts at 1 and increases strictly
// - Parent path is empty at top level
// - Parent path joins frames as Type:Name labels with dots
// - Depth tracks the number of open frames
// - Pop on an empty stack is a no-op
// - Top reports the innermost frame

func TestScopeTracker_OrderCounter(t *testing.T) {
	t.Parallel()

	tracker := NewScopeTracker()

	assert.Equal(t, 1, tracker.Next())
	assert.Equal(t, 2, tracker.Next())
	assert.Equal(t, 3, tracker.Next())
}

func TestScopeTracker_ParentPath(t *testing.T) {
	t.Parallel()

	tracker := NewScopeTracker()
	assert.Equal(t, "", tracker.ParentPath())

	tracker.Push("Class", "Calculator")
	assert.Equal(t, "Class:Calculator", tracker.ParentPath())
	assert.Equal(t, 1, tracker.Depth())

	tracker.Push("Function", "add")
	assert.Equal(t, "Class:Calculator.Function:add", tracker.ParentPath())
	assert.Equal(t, 2, tracker.Depth())

	tracker.Pop()
	assert.Equal(t, "Class:Calculator", tracker.ParentPath())

	tracker.Pop()
	assert.Equal(t, "", tracker.ParentPath())
	assert.Equal(t, 0, tracker.Depth())
}

func TestScopeTracker_PopEmptyStack(t *testing.T) {
	t.Parallel()

	tracker := NewScopeTracker()
	tracker.Pop()
	tracker.Pop()

	assert.Equal(t, 0, tracker.Depth())
	assert.Equal(t, "", tracker.ParentPath())
}

func TestScopeTracker_Top(t *testing.T) {
	t.Parallel()

	tracker := NewScopeTracker()
	_, ok := tracker.Top()
	assert.False(t, ok)

	tracker.Push("Document", "doc_1")
	top, ok := tracker.Top()
	require.True(t, ok)
	assert.Equal(t, "Document", top.Type)
	assert.Equal(t, "doc_1", top.Name)
}
