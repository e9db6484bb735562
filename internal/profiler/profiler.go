package profiler

import (
	"github.com/treeprof/treeprof/internal/callid"
	"github.com/treeprof/treeprof/internal/frame"
	"github.com/treeprof/treeprof/internal/profile"
	"github.com/treeprof/treeprof/internal/stopwatch"
)

// Profiler coordinates the live generators of one engine. It fans
// every notification out to the generators recording the notifying
// context's profile group, and to generators started without an
// origin, which record everything. All methods must be called from the
// engine's single execution goroutine.
type Profiler struct {
	active  []*Generator
	nextUID uint32
}

func New() *Profiler {
	return new(Profiler)
}

// StartProfiling creates a generator for the given origin and title.
// When a generator with the same origin and title is already live, it
// is returned instead of starting a second one. A nil sw records
// against a freshly started monotonic stopwatch.
func (p *Profiler) StartProfiling(origin Origin, title string, sw stopwatch.Stopwatch) *Generator {
	for _, g := range p.active {
		if g.origin == origin && g.Title() == title {
			return g
		}
	}
	if sw == nil {
		sw = stopwatch.NewMonotonic()
	}
	p.nextUID++
	g := NewGenerator(origin, title, p.nextUID, sw)
	p.active = append(p.active, g)
	return g
}

// StopProfiling finishes the most recently started generator matching
// origin and title and returns its profile. An empty title matches any
// title. It returns nil when nothing matches.
func (p *Profiler) StopProfiling(origin Origin, title string) *profile.Profile {
	for i := len(p.active) - 1; i >= 0; i-- {
		g := p.active[i]
		if g.origin != origin {
			continue
		}
		if title != "" && g.Title() != title {
			continue
		}
		p.active = append(p.active[:i], p.active[i+1:]...)
		return g.StopProfiling()
	}
	return nil
}

// Active returns the live generators, most recently started last.
func (p *Profiler) Active() []*Generator {
	return append([]*Generator(nil), p.active...)
}

// WillExecute reports a call entry observed in origin's context.
func (p *Profiler) WillExecute(origin Origin, callerFrame frame.Ref, id callid.ID) {
	p.each(origin, func(g *Generator) {
		g.WillExecute(callerFrame, id)
	})
}

// DidExecute reports a call exit observed in origin's context.
func (p *Profiler) DidExecute(origin Origin, callerFrame frame.Ref, id callid.ID) {
	p.each(origin, func(g *Generator) {
		g.DidExecute(callerFrame, id)
	})
}

// ExceptionUnwind reports that an exception thrown in origin's context
// is about to be handled by the call in handlerFrame.
func (p *Profiler) ExceptionUnwind(origin Origin, handlerFrame frame.Ref) {
	p.each(origin, func(g *Generator) {
		g.ExceptionUnwind(handlerFrame, callid.ID{})
	})
}

// Suspend pauses recording on every generator matching origin.
func (p *Profiler) Suspend(origin Origin) {
	p.each(origin, func(g *Generator) {
		g.SetSuspended(true)
	})
}

// Unsuspend resumes recording on every generator matching origin.
func (p *Profiler) Unsuspend(origin Origin) {
	p.each(origin, func(g *Generator) {
		g.SetSuspended(false)
	})
}

func (p *Profiler) each(origin Origin, fn func(*Generator)) {
	var group uint64
	if origin != nil {
		group = origin.ProfileGroup()
	}
	for _, g := range p.active {
		if g.group == group || g.origin == nil {
			fn(g)
		}
	}
}
