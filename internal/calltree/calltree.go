package calltree

import (
	"github.com/treeprof/treeprof/internal/nodetree"
	"github.com/treeprof/treeprof/internal/profile"
)

type (
	// Call is the wire form of one recorded activation. Times are in
	// nanoseconds relative to the owning profile's stopwatch.
	Call struct {
		StartNS   uint64 `json:"start_ns"`
		ElapsedNS uint64 `json:"elapsed_ns"`
	}

	// Node is the wire form of one call tree vertex.
	Node struct {
		Function string `json:"function"`
		URL      string `json:"url,omitempty"`
		Line     uint32 `json:"lineno,omitempty"`
		Column   uint32 `json:"colno,omitempty"`

		Calls   []Call `json:"calls"`
		TotalNS uint64 `json:"total_ns"`
		SelfNS  uint64 `json:"self_ns"`

		Children []Node `json:"children,omitempty"`
	}
)

// FromProfiles projects the call trees of each finished profile, keyed
// by profile UID. The synthetic root node is not part of the
// projection, each profile maps to its top-level calls.
func FromProfiles(profiles []*profile.Profile) map[uint32][]Node {
	trees := make(map[uint32][]Node, len(profiles))
	for _, p := range profiles {
		children := p.Root().Children()
		roots := make([]Node, 0, len(children))
		for _, child := range children {
			roots = append(roots, fromNode(child))
		}
		trees[p.UID()] = roots
	}
	return trees
}

func fromNode(n *nodetree.Node) Node {
	id := n.ID()
	out := Node{
		Function: id.DisplayName(),
		URL:      id.URL,
		Line:     id.Line,
		Column:   id.Column,
		Calls:    make([]Call, 0, len(n.Calls())),
		TotalNS:  uint64(n.TotalTime()),
		SelfNS:   uint64(n.SelfTime()),
	}
	for _, c := range n.Calls() {
		out.Calls = append(out.Calls, Call{
			StartNS:   uint64(c.Start),
			ElapsedNS: uint64(c.Elapsed),
		})
	}
	for _, child := range n.Children() {
		out.Children = append(out.Children, fromNode(child))
	}
	return out
}
