package profile

import (
	"fmt"
	"time"

	"github.com/treeprof/treeprof/internal/callid"
	"github.com/treeprof/treeprof/internal/nodetree"
)

type (
	// Profile is one profiling session's call tree. The tree hangs off
	// a synthetic root node with an empty identifier. Title, uid and
	// start time are fixed at construction, only the tree mutates while
	// the session is live.
	Profile struct {
		title     string
		uid       uint32
		startTime time.Duration
		root      *nodetree.Node
	}
)

// New returns an empty profile whose recording started at startTime on
// the session's stopwatch.
func New(title string, uid uint32, startTime time.Duration) *Profile {
	return &Profile{
		title:     title,
		uid:       uid,
		startTime: startTime,
		root:      nodetree.NewNode(callid.ID{}, nil),
	}
}

func (p *Profile) Title() string {
	return p.title
}

func (p *Profile) UID() uint32 {
	return p.uid
}

// DisplayTitle returns the title, or a numbered fallback for untitled
// profiles.
func (p *Profile) DisplayTitle() string {
	if p.title != "" {
		return p.title
	}
	return fmt.Sprintf("Profile %d", p.uid)
}

func (p *Profile) StartTime() time.Duration {
	return p.startTime
}

func (p *Profile) Root() *nodetree.Node {
	return p.root
}

// EndTime returns the close time of the last call recorded anywhere in
// the tree, or the profile's start time for an empty tree.
func (p *Profile) EndTime() time.Duration {
	end := p.startTime
	nodetree.WalkCalls(p.root, func(_ *nodetree.Node, c nodetree.Call, enter bool) {
		if !enter && c.End() > end {
			end = c.End()
		}
	})
	return end
}
