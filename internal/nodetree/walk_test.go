package nodetree

import (
	"testing"
	"time"

	"github.com/treeprof/treeprof/internal/callid"
	"github.com/treeprof/treeprof/internal/testutil"
)

type walkEvent struct {
	Function string
	At       time.Duration
	Enter    bool
}

func ms(d int) time.Duration {
	return time.Duration(d) * time.Millisecond
}

func TestWalkCalls(t *testing.T) {
	// parent [0, 30] with a [2, 8], b [10, 18], then a again [20, 28]
	// which calls g [22, 26]. Sibling activations must come out in
	// chronological order, not in child insertion order.
	root := NewNode(callid.ID{}, nil)
	parent := NewNode(callid.ID{Function: "parent"}, nil)
	parent.AppendCall(ClosedCall(ms(0), ms(30)))
	a := NewNode(idA, nil)
	a.AppendCall(ClosedCall(ms(2), ms(8)))
	a.AppendCall(ClosedCall(ms(20), ms(28)))
	b := NewNode(idB, nil)
	b.AppendCall(ClosedCall(ms(10), ms(18)))
	g := NewNode(callid.ID{Function: "g"}, nil)
	g.AppendCall(ClosedCall(ms(22), ms(26)))

	root.AddChild(parent)
	parent.AddChild(a)
	parent.AddChild(b)
	a.AddChild(g)

	var got []walkEvent
	WalkCalls(root, func(n *Node, c Call, enter bool) {
		at := c.Start
		if !enter {
			at = c.End()
		}
		got = append(got, walkEvent{Function: n.ID().Function, At: at, Enter: enter})
	})

	want := []walkEvent{
		{"parent", ms(0), true},
		{"a", ms(2), true},
		{"a", ms(8), false},
		{"b", ms(10), true},
		{"b", ms(18), false},
		{"a", ms(20), true},
		{"g", ms(22), true},
		{"g", ms(26), false},
		{"a", ms(28), false},
		{"parent", ms(30), false},
	}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestWalkCallsSkipsRootCalls(t *testing.T) {
	root := NewNode(callid.ID{}, nil)
	root.AppendCall(ClosedCall(ms(0), ms(10)))

	var count int
	WalkCalls(root, func(*Node, Call, bool) {
		count++
	})
	if count != 0 {
		t.Fatalf("Expected no events, got %d", count)
	}
}

func TestWalkCallsZeroWidth(t *testing.T) {
	// A call that opens and closes at the same instant still produces a
	// balanced pair of events nested in its parent.
	root := NewNode(callid.ID{}, nil)
	a := NewNode(idA, nil)
	a.AppendCall(ClosedCall(ms(5), ms(5)))
	b := NewNode(idB, nil)
	b.AppendCall(ClosedCall(ms(5), ms(5)))
	root.AddChild(a)
	a.AddChild(b)

	var got []walkEvent
	WalkCalls(root, func(n *Node, c Call, enter bool) {
		got = append(got, walkEvent{Function: n.ID().Function, At: c.Start, Enter: enter})
	})

	want := []walkEvent{
		{"a", ms(5), true},
		{"b", ms(5), true},
		{"b", ms(5), false},
		{"a", ms(5), false},
	}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}
