package profiler

import (
	"testing"

	"github.com/treeprof/treeprof/internal/nodetree"
	"github.com/treeprof/treeprof/internal/stopwatch"
	"github.com/treeprof/treeprof/internal/testutil"
)

func activeTitles(p *Profiler) []string {
	var titles []string
	for _, g := range p.Active() {
		titles = append(titles, g.Title())
	}
	return titles
}

func TestStartProfilingReturnsExistingGenerator(t *testing.T) {
	p := New()
	origin := &testOrigin{group: 1}
	var sw stopwatch.Manual

	first := p.StartProfiling(origin, "alpha", &sw)
	again := p.StartProfiling(origin, "alpha", &sw)
	if first != again {
		t.Fatal("Starting the same origin and title twice must return the live generator")
	}

	other := p.StartProfiling(origin, "beta", &sw)
	if other == first {
		t.Fatal("A different title must start a separate generator")
	}
	if first.Profile().UID() != 1 || other.Profile().UID() != 2 {
		t.Fatalf("Expected uids 1 and 2, got %d and %d", first.Profile().UID(), other.Profile().UID())
	}
}

func TestStartProfilingDefaultStopwatch(t *testing.T) {
	p := New()
	g := p.StartProfiling(&testOrigin{group: 1}, "alpha", nil)

	sw, ok := g.sw.(*stopwatch.Monotonic)
	if !ok {
		t.Fatalf("Expected a monotonic stopwatch by default, got %T", g.sw)
	}
	if !sw.Running() {
		t.Fatal("The default stopwatch must already be running")
	}
}

func TestStopProfilingMatching(t *testing.T) {
	p := New()
	o1 := &testOrigin{group: 1}
	o2 := &testOrigin{group: 2}
	var sw stopwatch.Manual

	p.StartProfiling(o1, "alpha", &sw)
	p.StartProfiling(o1, "beta", &sw)
	p.StartProfiling(o2, "gamma", &sw)

	if got := p.StopProfiling(o2, "alpha"); got != nil {
		t.Fatalf("A title on another origin must not match, got %q", got.Title())
	}

	got := p.StopProfiling(o1, "")
	if got == nil || got.Title() != "beta" {
		t.Fatalf("An empty title must stop the most recent profile, got %v", got)
	}

	got = p.StopProfiling(o1, "alpha")
	if got == nil || got.Title() != "alpha" {
		t.Fatalf("Expected to stop alpha, got %v", got)
	}

	if diff := testutil.Diff(activeTitles(p), []string{"gamma"}); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	if got := p.StopProfiling(o1, ""); got != nil {
		t.Fatalf("Expected no further matches, got %q", got.Title())
	}
}

func TestNotificationsFollowProfileGroup(t *testing.T) {
	p := New()
	o1 := &testOrigin{group: 1}
	o2 := &testOrigin{group: 2}
	var sw stopwatch.Manual

	matching := p.StartProfiling(o1, "matching", &sw)
	other := p.StartProfiling(o2, "other", &sw)
	global := p.StartProfiling(nil, "global", &sw)

	p.WillExecute(o1, stackRef(1), idWork)
	sw.Set(ms(5))
	p.DidExecute(o1, stackRef(1), idWork)

	want := nodeView{
		Children: []nodeView{
			{
				Function: "work",
				Calls:    []nodetree.Call{{Start: 0, Elapsed: ms(5)}},
			},
		},
	}
	if diff := testutil.Diff(view(matching.Profile().Root()), want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}
	if diff := testutil.Diff(view(other.Profile().Root()), nodeView{}); diff != "" {
		t.Fatalf("Another group's generator must not record: got - want +\n%s", diff)
	}
	// Generators started without an origin receive every notification
	// but record none of them.
	if diff := testutil.Diff(view(global.Profile().Root()), nodeView{}); diff != "" {
		t.Fatalf("An origin-less generator must not record: got - want +\n%s", diff)
	}
}

func TestExceptionUnwindDispatch(t *testing.T) {
	p := New()
	o1 := &testOrigin{group: 1}
	o2 := &testOrigin{group: 2}
	var sw stopwatch.Manual

	matching := p.StartProfiling(o1, "matching", &sw)
	other := p.StartProfiling(o2, "other", &sw)

	p.WillExecute(o1, stackRef(1), idX)
	p.WillExecute(o2, stackRef(1), idX)
	sw.Set(ms(4))
	p.ExceptionUnwind(o1, stackRef(1))

	want := nodeView{
		Children: []nodeView{
			{
				Function: "x",
				Calls:    []nodetree.Call{{Start: 0, Elapsed: ms(4)}},
			},
		},
	}
	if diff := testutil.Diff(view(matching.Profile().Root()), want); diff != "" {
		t.Fatalf("Result mismatch: got - want +\n%s", diff)
	}

	want.Children[0].Calls = []nodetree.Call{{Start: 0, Open: true}}
	if diff := testutil.Diff(view(other.Profile().Root()), want); diff != "" {
		t.Fatalf("Another group's call must stay open: got - want +\n%s", diff)
	}
}

func TestSuspendFollowsProfileGroup(t *testing.T) {
	p := New()
	o1 := &testOrigin{group: 1}
	o2 := &testOrigin{group: 2}
	var sw stopwatch.Manual

	matching := p.StartProfiling(o1, "matching", &sw)
	other := p.StartProfiling(o2, "other", &sw)
	global := p.StartProfiling(nil, "global", &sw)

	p.Suspend(o1)
	if !matching.Suspended() {
		t.Fatal("The matching generator must be suspended")
	}
	if other.Suspended() {
		t.Fatal("Another group's generator must not be suspended")
	}
	if !global.Suspended() {
		t.Fatal("An origin-less generator must be suspended")
	}

	p.Unsuspend(o1)
	if matching.Suspended() || global.Suspended() {
		t.Fatal("Unsuspend must resume every matching generator")
	}
}
