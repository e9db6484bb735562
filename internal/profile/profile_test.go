package profile

import (
	"testing"
	"time"

	"github.com/treeprof/treeprof/internal/callid"
	"github.com/treeprof/treeprof/internal/nodetree"
)

func TestNew(t *testing.T) {
	p := New("page load", 1, 250*time.Millisecond)
	if p.Title() != "page load" || p.UID() != 1 {
		t.Fatalf("Unexpected profile metadata: %q %d", p.Title(), p.UID())
	}
	if p.StartTime() != 250*time.Millisecond {
		t.Fatalf("Unexpected start time: %v", p.StartTime())
	}
	root := p.Root()
	if root == nil || root.ID() != (callid.ID{}) {
		t.Fatal("Expected a synthetic root with an empty identifier")
	}
	if len(root.Children()) != 0 || len(root.Calls()) != 0 {
		t.Fatal("Expected an empty root")
	}
}

func TestDisplayTitle(t *testing.T) {
	if got := New("page load", 1, 0).DisplayTitle(); got != "page load" {
		t.Fatalf("Expected the title, got %q", got)
	}
	if got := New("", 3, 0).DisplayTitle(); got != "Profile 3" {
		t.Fatalf("Expected a numbered fallback, got %q", got)
	}
}

func TestEndTime(t *testing.T) {
	p := New("t", 1, 10*time.Millisecond)
	if got := p.EndTime(); got != 10*time.Millisecond {
		t.Fatalf("Empty profile must end at its start time, got %v", got)
	}

	a := nodetree.NewNode(callid.ID{Function: "a"}, nil)
	a.AppendCall(nodetree.ClosedCall(10*time.Millisecond, 40*time.Millisecond))
	b := nodetree.NewNode(callid.ID{Function: "b"}, nil)
	b.AppendCall(nodetree.ClosedCall(15*time.Millisecond, 35*time.Millisecond))
	p.Root().AddChild(a)
	a.AddChild(b)

	if got := p.EndTime(); got != 40*time.Millisecond {
		t.Fatalf("Expected end time %v, got %v", 40*time.Millisecond, got)
	}
}
