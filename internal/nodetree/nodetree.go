package nodetree

import (
	"time"

	"github.com/treeprof/treeprof/internal/callid"
	"github.com/treeprof/treeprof/internal/frame"
)

type (
	// Call is one timed activation of a node's function. Start is
	// relative to the owning profile's time origin. Elapsed stays zero
	// while the call is open and accumulates every time the call is
	// closed, so a call that is paused and resumed folds all of its
	// spans into a single figure.
	Call struct {
		Start   time.Duration
		Elapsed time.Duration
		Open    bool
	}

	// Node is one vertex of a call tree. It records the identity of the
	// function it stands for, the frame that was executing when the
	// node was created, and one Call per activation. Children are kept
	// in insertion order. The parent reference is non-owning, nodes own
	// their children.
	Node struct {
		id          callid.ID
		callerFrame frame.Ref
		parent      *Node
		children    []*Node
		calls       []Call
	}
)

// OpenCall returns a call started at start whose end has not been seen
// yet.
func OpenCall(start time.Duration) Call {
	return Call{Start: start, Open: true}
}

// ClosedCall returns a call spanning start to end.
func ClosedCall(start, end time.Duration) Call {
	return Call{Start: start, Elapsed: end - start}
}

// End returns the time the call was over, or its start time while it is
// still open.
func (c Call) End() time.Duration {
	return c.Start + c.Elapsed
}

// Close ends the span begun at Start, adding it on top of whatever
// earlier spans already accumulated on the call.
func (c *Call) Close(now time.Duration) {
	c.Elapsed += now - c.Start
	c.Open = false
}

// NewNode returns a detached node. It becomes part of a tree through
// AddChild or SpliceNode on its future parent.
func NewNode(id callid.ID, callerFrame frame.Ref) *Node {
	return &Node{id: id, callerFrame: callerFrame}
}

func (n *Node) ID() callid.ID {
	return n.id
}

// CallerFrame returns the frame that was executing when the node was
// created. It is only ever used for stack ordering comparisons.
func (n *Node) CallerFrame() frame.Ref {
	return n.callerFrame
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) FirstChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

func (n *Node) LastChild() *Node {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[len(n.children)-1]
}

// FindChild returns the first child with the given id, or nil.
func (n *Node) FindChild(id callid.ID) *Node {
	for _, child := range n.children {
		if child.id == id {
			return child
		}
	}
	return nil
}

// AddChild appends child to the node's children and reparents it.
func (n *Node) AddChild(child *Node) {
	child.parent = n
	n.children = append(n.children, child)
}

// SpliceNode inserts child between the node and all of its existing
// children: the existing children are reparented under child, and
// child becomes the node's sole child.
func (n *Node) SpliceNode(child *Node) {
	for _, adopted := range n.children {
		child.AddChild(adopted)
	}
	child.parent = n
	n.children = []*Node{child}
}

// RemoveChild detaches child from the node. Children of the removed
// node go with it. The removed node keeps its parent reference so a
// cursor parked on it can still walk up.
func (n *Node) RemoveChild(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

func (n *Node) Calls() []Call {
	return n.calls
}

// AppendCall records a new activation of the node.
func (n *Node) AppendCall(c Call) {
	n.calls = append(n.calls, c)
}

// LastCall returns the most recently appended call. The returned
// pointer stays valid until the next AppendCall. It panics when the
// node has no calls, which cannot happen to a node that went through a
// regular entry notification.
func (n *Node) LastCall() *Call {
	if len(n.calls) == 0 {
		panic("nodetree: node has no calls")
	}
	return &n.calls[len(n.calls)-1]
}

// TotalTime returns the elapsed time accumulated over all of the
// node's calls.
func (n *Node) TotalTime() time.Duration {
	var total time.Duration
	for _, c := range n.calls {
		total += c.Elapsed
	}
	return total
}

// SelfTime returns the node's total time minus the time spent in its
// children, floored at zero.
func (n *Node) SelfTime() time.Duration {
	self := n.TotalTime()
	for _, child := range n.children {
		self -= child.TotalTime()
	}
	if self < 0 {
		return 0
	}
	return self
}
