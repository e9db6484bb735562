package treeprint

import (
	"fmt"
	"io"
	"strings"

	"github.com/treeprof/treeprof/internal/nodetree"
	"github.com/treeprof/treeprof/internal/profile"
)

// Write renders profiles as indented call trees, one line per node
// with its call count, total time and self time.
func Write(w io.Writer, profiles []*profile.Profile) error {
	for i, p := range profiles {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeProfile(w, p); err != nil {
			return err
		}
	}
	return nil
}

func writeProfile(w io.Writer, p *profile.Profile) error {
	if _, err := fmt.Fprintf(w, "%s, %v total\n", p.DisplayTitle(), p.EndTime()-p.StartTime()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%8s %10s %10s  %s\n", "calls", "total", "self", "function"); err != nil {
		return err
	}
	for _, child := range p.Root().Children() {
		if err := writeSubtree(w, child, 0); err != nil {
			return err
		}
	}
	return nil
}

func writeSubtree(w io.Writer, n *nodetree.Node, depth int) error {
	_, err := fmt.Fprintf(w, "%8d %10v %10v  %s%s\n",
		len(n.Calls()), n.TotalTime(), n.SelfTime(), strings.Repeat("  ", depth), n.ID())
	if err != nil {
		return err
	}
	for _, child := range n.Children() {
		if err := writeSubtree(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}
