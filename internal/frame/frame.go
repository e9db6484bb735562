package frame

import "github.com/treeprof/treeprof/internal/callid"

type (
	// Ref is a reference to a live frame on the execution stack,
	// supplied by the engine. The profiler never dereferences a Ref, it
	// only compares stack positions, so a Ref stays meaningful even
	// after the frame it points at has been popped.
	Ref interface {
		// Depth is the 1-based position of the frame on the stack at
		// the time the Ref was taken. Deeper frames report larger
		// depths.
		Depth() int
	}

	// Entry is one frame yielded by a stack walk: the identity of the
	// function executing in the frame and a reference to the frame
	// itself.
	Entry struct {
		ID  callid.ID
		Ref Ref
	}
)

// AtOrBelow reports whether a sits at the same depth as b or deeper.
// A nil ref has no stack position and is never at or below anything.
func AtOrBelow(a, b Ref) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Depth() >= b.Depth()
}
