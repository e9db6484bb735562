package nodetree

import "sort"

type nodeCall struct {
	node *Node
	call Call
}

type walker struct {
	visit func(*Node, Call, bool)
	spans map[*Node][]nodeCall
	next  map[*Node]int
}

// WalkCalls visits every call strictly below root in chronological
// order, invoking visit with enter set to true when a call opens and
// false when it closes. Calls of a child node are visited inside the
// span of the parent call containing them, so a well-nested tree
// produces a well-nested event sequence. The root's own calls, if any,
// are not visited.
func WalkCalls(root *Node, visit func(n *Node, c Call, enter bool)) {
	w := walker{
		visit: visit,
		spans: make(map[*Node][]nodeCall),
		next:  make(map[*Node]int),
	}
	for _, s := range w.childSpans(root) {
		w.walk(s)
	}
}

func (w *walker) walk(s nodeCall) {
	w.visit(s.node, s.call, true)
	spans := w.childSpans(s.node)
	for w.next[s.node] < len(spans) {
		inner := spans[w.next[s.node]]
		if inner.call.End() > s.call.End() {
			break
		}
		w.next[s.node]++
		w.walk(inner)
	}
	w.visit(s.node, s.call, false)
}

// childSpans returns the calls of n's children, merged and sorted by
// start time. The list is computed once per node and consumed
// incrementally across the node's own calls.
func (w *walker) childSpans(n *Node) []nodeCall {
	if spans, ok := w.spans[n]; ok {
		return spans
	}
	var spans []nodeCall
	for _, child := range n.children {
		for _, c := range child.calls {
			spans = append(spans, nodeCall{child, c})
		}
	}
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].call.Start < spans[j].call.Start
	})
	w.spans[n] = spans
	return spans
}
