package profiler

import (
	"time"

	"github.com/treeprof/treeprof/internal/callid"
	"github.com/treeprof/treeprof/internal/frame"
	"github.com/treeprof/treeprof/internal/nodetree"
	"github.com/treeprof/treeprof/internal/profile"
	"github.com/treeprof/treeprof/internal/stopwatch"
)

// Marker function names recognized by profiling front ends. An entry
// into StartMarker begins a session, an exit from StopMarker ends one,
// and the marker frames themselves are stripped from finished trees.
const (
	StartMarker = "profile"
	StopMarker  = "profileEnd"
)

type (
	// Origin is the execution context notifications are attributed to.
	Origin interface {
		// ProfileGroup identifies the group of execution contexts
		// whose activity belongs to the same profiles.
		ProfileGroup() uint64
		// WalkStack enumerates the live call stack innermost first,
		// stopping early when visit returns false.
		WalkStack(visit func(frame.Entry) bool)
	}

	// Generator builds one profile's call tree out of entry, exit and
	// unwind notifications. It keeps a cursor at the node whose call
	// is currently executing and corrects sequences that do not nest
	// perfectly instead of rejecting them. Not safe for concurrent
	// use: all notifications must come from the goroutine running the
	// instrumented code.
	Generator struct {
		origin           Origin
		group            uint64
		sw               stopwatch.Stopwatch
		profile          *profile.Profile
		current          *nodetree.Node
		foundStartParent bool
		suspended        bool
	}
)

// NewGenerator starts recording a profile. When origin carries a live
// call stack, the caller of the start trigger is seeded as an ancestor
// so the tree keeps the context profiling began in.
func NewGenerator(origin Origin, title string, uid uint32, sw stopwatch.Stopwatch) *Generator {
	g := &Generator{
		origin: origin,
		sw:     sw,
	}
	if origin != nil {
		g.group = origin.ProfileGroup()
	}
	startTime := sw.Elapsed()
	g.profile = profile.New(title, uid, startTime)
	g.current = g.profile.Root()
	if origin != nil {
		g.addStartParent(startTime)
	}
	return g
}

// addStartParent walks the live stack, skips the innermost frame (the
// start trigger itself) and, when a second frame exists, splices it
// under the root with a call open since startTime.
func (g *Generator) addStartParent(startTime time.Duration) {
	var innermost frame.Ref
	skippedFirstFrame := false
	g.origin.WalkStack(func(e frame.Entry) bool {
		if !skippedFirstFrame {
			skippedFirstFrame = true
			innermost = e.Ref
			return true
		}
		node := nodetree.NewNode(e.ID, innermost)
		node.AppendCall(nodetree.OpenCall(startTime))
		g.profile.Root().SpliceNode(node)
		g.current = node
		g.foundStartParent = true
		return false
	})
}

func (g *Generator) Title() string {
	return g.profile.Title()
}

func (g *Generator) Origin() Origin {
	return g.origin
}

func (g *Generator) Profile() *profile.Profile {
	return g.profile
}

// SetSuspended toggles whether notifications are ignored. Suspension
// covers debugger pauses, so that time spent paused is not attributed
// to whatever call happens to be open.
func (g *Generator) SetSuspended(suspended bool) {
	g.suspended = suspended
}

func (g *Generator) Suspended() bool {
	return g.suspended
}

// WillExecute records entry into the function identified by id.
func (g *Generator) WillExecute(callerFrame frame.Ref, id callid.ID) {
	if g.origin == nil {
		return
	}
	if g.suspended {
		return
	}

	// Find or create a node for the callee under the cursor. Reusing
	// an existing child makes repeated and recursive calls accumulate
	// on one node instead of fanning out.
	callee := g.current.FindChild(id)
	if callee == nil {
		callee = nodetree.NewNode(id, callerFrame)
		g.current.AddChild(callee)
	}

	g.current = callee
	callee.AppendCall(nodetree.OpenCall(g.sw.Elapsed()))
}

// DidExecute records exit from the function identified by id.
func (g *Generator) DidExecute(callerFrame frame.Ref, id callid.ID) {
	if g.origin == nil {
		return
	}
	if g.suspended {
		return
	}

	// Make a new node when the cursor never saw an entry for this
	// callee. This happens when profiling starts several frames deep
	// in the call stack: the missing frame is assumed to have been
	// running exactly as long as the cursor's own call and is spliced
	// in between the cursor and its existing children. The cursor's
	// real exit is still pending, so it stays put.
	if g.current.ID() != id {
		callee := nodetree.NewNode(id, callerFrame)
		callee.AppendCall(nodetree.ClosedCall(g.current.LastCall().Start, g.sw.Elapsed()))
		g.current.SpliceNode(callee)
		return
	}

	g.current.LastCall().Close(g.sw.Elapsed())
	g.current = g.current.Parent()
}

// ExceptionUnwind closes the calls abandoned by a thrown exception.
// Any call whose recorded caller frame is at the handler's depth or
// deeper has exited without its normal notification.
func (g *Generator) ExceptionUnwind(handlerFrame frame.Ref, _ callid.ID) {
	if g.suspended {
		return
	}

	for frame.AtOrBelow(g.current.CallerFrame(), handlerFrame) {
		g.DidExecute(g.current.CallerFrame(), g.current.ID())
	}
}

// StopProfiling closes every call still open between the cursor and
// the root and finishes the profile. The generator must not receive
// further notifications afterwards.
func (g *Generator) StopProfiling() *profile.Profile {
	root := g.profile.Root()
	for node := g.current; node != root; node = node.Parent() {
		node.LastCall().Close(g.sw.Elapsed())
	}

	if g.foundStartParent {
		g.removeProfileStart()
		g.removeProfileEnd()
	}

	// The cursor sits inside the call that triggered the stop, which
	// will never get an exit notification of its own.
	g.current = g.current.Parent()

	return g.profile
}

// The start trigger that began this profile will be the tree's deepest
// first child.
func (g *Generator) removeProfileStart() {
	var node *nodetree.Node
	for next := g.profile.Root(); next != nil; next = next.FirstChild() {
		node = next
	}

	if node.ID().Function != StartMarker {
		return
	}

	node.Parent().RemoveChild(node)
}

// The stop trigger that ended this profile will be the tree's deepest
// last child.
func (g *Generator) removeProfileEnd() {
	var node *nodetree.Node
	for next := g.profile.Root(); next != nil; next = next.LastChild() {
		node = next
	}

	if node.ID().Function != StopMarker {
		return
	}

	node.Parent().RemoveChild(node)
}
