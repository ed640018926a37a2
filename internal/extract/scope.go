package extract

import "strings"

// ScopeFrame is one open nameable construct on the traversal stack, e.g.
// {Type: "Class", Name: "Foo"}.
type ScopeFrame struct {
	Type string
	Name string
}

// Label renders the frame as it appears in parent paths.
func (f ScopeFrame) Label() string {
	return f.Type + ":" + f.Name
}

// ScopeTracker is the traversal context each processor drives while walking
// a parsed tree: the per-file order counter plus the stack of currently-open
// scopes. A fresh tracker is allocated for every ProcessFile call and passed
// through the recursive visit, so processors keep no instance-level
// traversal state and stay reentrant.
type ScopeTracker struct {
	frames []ScopeFrame
	order  int
}

// NewScopeTracker creates a tracker with an empty stack and the order
// counter at zero; the first Next call returns 1.
func NewScopeTracker() *ScopeTracker {
	return &ScopeTracker{}
}

// Next increments and returns the per-file order counter.
func (s *ScopeTracker) Next() int {
	s.order++
	return s.order
}

// Depth returns the number of open frames. An element's nesting level is the
// depth before its own frame (if any) is pushed.
func (s *ScopeTracker) Depth() int {
	return len(s.frames)
}

// ParentPath joins the open frames ancestor-first as "Type:Name" labels
// separated by dots; empty when no scope is open.
func (s *ScopeTracker) ParentPath() string {
	if len(s.frames) == 0 {
		return ""
	}
	labels := make([]string, len(s.frames))
	for i, frame := range s.frames {
		labels[i] = frame.Label()
	}
	return strings.Join(labels, ".")
}

// Push opens a scope for a construct that can contain further elements.
func (s *ScopeTracker) Push(frameType, name string) {
	s.frames = append(s.frames, ScopeFrame{Type: frameType, Name: name})
}

// Pop closes the innermost scope. Popping an empty stack is a traversal bug;
// it is ignored rather than panicking so a malformed walk cannot take down a
// batch run.
func (s *ScopeTracker) Pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Top returns the innermost open frame, if any.
func (s *ScopeTracker) Top() (ScopeFrame, bool) {
	if len(s.frames) == 0 {
		return ScopeFrame{}, false
	}
	return s.frames[len(s.frames)-1], true
}
