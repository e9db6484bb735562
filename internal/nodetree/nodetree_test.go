package nodetree

import (
	"testing"
	"time"

	"github.com/treeprof/treeprof/internal/callid"
	"github.com/treeprof/treeprof/internal/testutil"
)

var (
	idA = callid.ID{Function: "a", URL: "app.js", Line: 1}
	idB = callid.ID{Function: "b", URL: "app.js", Line: 10}
	idC = callid.ID{Function: "c", URL: "app.js", Line: 20}
)

type nodeView struct {
	ID       callid.ID
	Calls    []Call
	Children []nodeView
}

func view(n *Node) nodeView {
	v := nodeView{ID: n.ID(), Calls: n.Calls()}
	for _, child := range n.Children() {
		v.Children = append(v.Children, view(child))
	}
	return v
}

func TestFindChild(t *testing.T) {
	root := NewNode(callid.ID{}, nil)
	a := NewNode(idA, nil)
	b := NewNode(idB, nil)
	root.AddChild(a)
	root.AddChild(b)

	tests := []struct {
		name   string
		id     callid.ID
		output *Node
	}{
		{
			name:   "first child",
			id:     idA,
			output: a,
		},
		{
			name:   "second child",
			id:     idB,
			output: b,
		},
		{
			name:   "missing",
			id:     idC,
			output: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := root.FindChild(tt.id); got != tt.output {
				t.Fatalf("Expected %v but got %v", tt.output, got)
			}
		})
	}
}

func TestAddChild(t *testing.T) {
	root := NewNode(callid.ID{}, nil)
	a := NewNode(idA, nil)
	b := NewNode(idB, nil)
	root.AddChild(a)
	root.AddChild(b)

	want := nodeView{
		Children: []nodeView{
			{ID: idA},
			{ID: idB},
		},
	}
	if diff := testutil.Diff(view(root), want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	if a.Parent() != root || b.Parent() != root {
		t.Fatal("Children must point back at their parent")
	}
	if root.FirstChild() != a || root.LastChild() != b {
		t.Fatal("Children must keep insertion order")
	}
}

func TestSpliceNode(t *testing.T) {
	tests := []struct {
		name     string
		children []*Node
		output   nodeView
	}{
		{
			name:     "existing children are adopted",
			children: []*Node{NewNode(idA, nil), NewNode(idB, nil)},
			output: nodeView{
				Children: []nodeView{
					{
						ID: idC,
						Children: []nodeView{
							{ID: idA},
							{ID: idB},
						},
					},
				},
			},
		},
		{
			name:     "no children",
			children: nil,
			output: nodeView{
				Children: []nodeView{
					{ID: idC},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := NewNode(callid.ID{}, nil)
			for _, child := range tt.children {
				root.AddChild(child)
			}
			spliced := NewNode(idC, nil)
			root.SpliceNode(spliced)

			if diff := testutil.Diff(view(root), tt.output); diff != "" {
				t.Fatalf("Result mismatch: got - want +\n%s", diff)
			}
			if spliced.Parent() != root {
				t.Fatal("Spliced node must point back at the receiver")
			}
			for _, child := range tt.children {
				if child.Parent() != spliced {
					t.Fatal("Adopted children must point at the spliced node")
				}
			}
		})
	}
}

func TestRemoveChild(t *testing.T) {
	root := NewNode(callid.ID{}, nil)
	a := NewNode(idA, nil)
	b := NewNode(idB, nil)
	c := NewNode(idC, nil)
	root.AddChild(a)
	root.AddChild(b)
	root.AddChild(c)

	root.RemoveChild(b)

	want := nodeView{
		Children: []nodeView{
			{ID: idA},
			{ID: idC},
		},
	}
	if diff := testutil.Diff(view(root), want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	if b.Parent() != root {
		t.Fatal("Removed child must keep its parent reference")
	}

	// Removing a node that is not a child leaves the tree alone.
	root.RemoveChild(b)
	if diff := testutil.Diff(view(root), want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestCallClose(t *testing.T) {
	c := OpenCall(10 * time.Millisecond)
	c.Close(25 * time.Millisecond)
	if diff := testutil.Diff(c, Call{Start: 10 * time.Millisecond, Elapsed: 15 * time.Millisecond}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	// Closing again accumulates on top of the earlier span.
	c.Open = true
	c.Close(30 * time.Millisecond)
	if diff := testutil.Diff(c, Call{Start: 10 * time.Millisecond, Elapsed: 35 * time.Millisecond}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestLastCall(t *testing.T) {
	n := NewNode(idA, nil)
	n.AppendCall(OpenCall(0))
	n.AppendCall(OpenCall(5 * time.Millisecond))

	n.LastCall().Close(8 * time.Millisecond)

	want := []Call{
		{Start: 0, Open: true},
		{Start: 5 * time.Millisecond, Elapsed: 3 * time.Millisecond},
	}
	if diff := testutil.Diff(n.Calls(), want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
}

func TestLastCallPanicsWithoutCalls(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Expected a panic")
		}
	}()
	NewNode(idA, nil).LastCall()
}

func TestTotalAndSelfTime(t *testing.T) {
	root := NewNode(callid.ID{}, nil)
	a := NewNode(idA, nil)
	a.AppendCall(ClosedCall(0, 100*time.Millisecond))
	b := NewNode(idB, nil)
	b.AppendCall(ClosedCall(10*time.Millisecond, 30*time.Millisecond))
	b.AppendCall(ClosedCall(50*time.Millisecond, 70*time.Millisecond))
	root.AddChild(a)
	a.AddChild(b)

	if got, want := b.TotalTime(), 40*time.Millisecond; got != want {
		t.Fatalf("Expected total time %v but got %v", want, got)
	}
	if got, want := a.SelfTime(), 60*time.Millisecond; got != want {
		t.Fatalf("Expected self time %v but got %v", want, got)
	}
	if got, want := b.SelfTime(), 40*time.Millisecond; got != want {
		t.Fatalf("Expected self time %v but got %v", want, got)
	}
}
