package pprofile

import (
	"time"

	pprof "github.com/google/pprof/profile"

	"github.com/treeprof/treeprof/internal/callid"
	"github.com/treeprof/treeprof/internal/nodetree"
	"github.com/treeprof/treeprof/internal/profile"
)

type functionKey struct {
	name string
	file string
}

type builder struct {
	out       *pprof.Profile
	locations map[callid.ID]*pprof.Location
	functions map[functionKey]*pprof.Function
}

// FromProfiles flattens finished profiles into a single pprof profile
// with two sample types, call counts and self time. Every tree node
// becomes one sample whose stack runs leaf to root, labeled with the
// profile it came from.
func FromProfiles(profiles []*profile.Profile) *pprof.Profile {
	b := &builder{
		out: &pprof.Profile{
			SampleType: []*pprof.ValueType{
				{Type: "calls", Unit: "count"},
				{Type: "time", Unit: "nanoseconds"},
			},
			DefaultSampleType: "time",
		},
		locations: make(map[callid.ID]*pprof.Location),
		functions: make(map[functionKey]*pprof.Function),
	}

	var start, end time.Duration
	for i, p := range profiles {
		if i == 0 || p.StartTime() < start {
			start = p.StartTime()
		}
		if p.EndTime() > end {
			end = p.EndTime()
		}
		for _, child := range p.Root().Children() {
			b.addSubtree(p.DisplayTitle(), child, nil)
		}
	}
	b.out.DurationNanos = int64(end - start)
	return b.out
}

func (b *builder) addSubtree(title string, n *nodetree.Node, lineage []*pprof.Location) {
	stack := append([]*pprof.Location{b.location(n.ID())}, lineage...)
	b.out.Sample = append(b.out.Sample, &pprof.Sample{
		Location: stack,
		Value:    []int64{int64(len(n.Calls())), int64(n.SelfTime())},
		Label:    map[string][]string{"profile": {title}},
	})
	for _, child := range n.Children() {
		b.addSubtree(title, child, stack)
	}
}

func (b *builder) location(id callid.ID) *pprof.Location {
	if loc, exists := b.locations[id]; exists {
		return loc
	}
	loc := &pprof.Location{
		ID: uint64(len(b.out.Location) + 1),
		Line: []pprof.Line{
			{Function: b.function(id), Line: int64(id.Line)},
		},
	}
	b.out.Location = append(b.out.Location, loc)
	b.locations[id] = loc
	return loc
}

func (b *builder) function(id callid.ID) *pprof.Function {
	key := functionKey{name: id.DisplayName(), file: id.URL}
	if fn, exists := b.functions[key]; exists {
		return fn
	}
	fn := &pprof.Function{
		ID:       uint64(len(b.out.Function) + 1),
		Name:     key.name,
		Filename: key.file,
	}
	b.out.Function = append(b.out.Function, fn)
	b.functions[key] = fn
	return fn
}
