package chrometrace

import (
	"fmt"
	"time"

	"github.com/treeprof/treeprof/internal/nodetree"
	"github.com/treeprof/treeprof/internal/profile"
)

// Trace event format, the JSON object flavor with duration events.
// Timestamps are microseconds, one trace thread per profile.
const (
	phaseBegin    = "B"
	phaseEnd      = "E"
	phaseMetadata = "M"
)

type (
	TraceEvent struct {
		Name      string                 `json:"name"`
		Phase     string                 `json:"ph"`
		Timestamp float64                `json:"ts"`
		ProcessID uint64                 `json:"pid"`
		ThreadID  uint64                 `json:"tid"`
		Args      map[string]interface{} `json:"args,omitempty"`
	}

	Output struct {
		TraceEvents     []TraceEvent `json:"traceEvents"`
		DisplayTimeUnit string       `json:"displayTimeUnit"`
	}
)

// FromProfiles renders finished profiles as one trace event stream,
// each profile on its own named thread.
func FromProfiles(group uint64, profiles []*profile.Profile) Output {
	o := Output{
		TraceEvents:     make([]TraceEvent, 0),
		DisplayTimeUnit: "ms",
	}
	o.TraceEvents = append(o.TraceEvents, TraceEvent{
		Name:      "process_name",
		Phase:     phaseMetadata,
		ProcessID: group,
		Args:      map[string]interface{}{"name": fmt.Sprintf("profile group %d", group)},
	})

	for _, p := range profiles {
		tid := uint64(p.UID())
		o.TraceEvents = append(o.TraceEvents, TraceEvent{
			Name:      "thread_name",
			Phase:     phaseMetadata,
			ProcessID: group,
			ThreadID:  tid,
			Args:      map[string]interface{}{"name": p.DisplayTitle()},
		})

		nodetree.WalkCalls(p.Root(), func(n *nodetree.Node, c nodetree.Call, enter bool) {
			ev := TraceEvent{
				Name:      n.ID().DisplayName(),
				ProcessID: group,
				ThreadID:  tid,
			}
			if enter {
				ev.Phase = phaseBegin
				ev.Timestamp = micros(c.Start)
				if url := n.ID().URL; url != "" {
					ev.Args = map[string]interface{}{
						"url":  url,
						"line": n.ID().Line,
						"col":  n.ID().Column,
					}
				}
			} else {
				ev.Phase = phaseEnd
				ev.Timestamp = micros(c.End())
			}
			o.TraceEvents = append(o.TraceEvents, ev)
		})
	}
	return o
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}
