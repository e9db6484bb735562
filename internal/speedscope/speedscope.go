package speedscope

import (
	"github.com/treeprof/treeprof/internal/callid"
	"github.com/treeprof/treeprof/internal/nodetree"
	"github.com/treeprof/treeprof/internal/profile"
)

const (
	ValueUnitNanoseconds ValueUnit = "nanoseconds"

	EventTypeOpenFrame  EventType = "O"
	EventTypeCloseFrame EventType = "C"

	ProfileTypeEvented ProfileType = "evented"

	version = "1"
)

type (
	Frame struct {
		Col  uint32 `json:"col,omitempty"`
		File string `json:"file,omitempty"`
		Line uint32 `json:"line,omitempty"`
		Name string `json:"name"`
	}

	Event struct {
		Type  EventType `json:"type"`
		Frame int       `json:"frame"`
		At    uint64    `json:"at"`
	}

	EventedProfile struct {
		EndValue   uint64      `json:"endValue"`
		Events     []Event     `json:"events"`
		Name       string      `json:"name"`
		StartValue uint64      `json:"startValue"`
		ThreadID   uint64      `json:"threadID"`
		Type       ProfileType `json:"type"`
		Unit       ValueUnit   `json:"unit"`
	}

	SharedData struct {
		Frames []Frame `json:"frames"`
	}

	EventType   string
	ProfileType string
	ValueUnit   string

	Output struct {
		ActiveProfileIndex int              `json:"activeProfileIndex"`
		DurationNS         uint64           `json:"durationNS"`
		ProfileGroup       uint64           `json:"profileGroup"`
		Profiles           []EventedProfile `json:"profiles"`
		Shared             SharedData       `json:"shared"`
		Version            string           `json:"version"`
	}
)

// FromProfiles renders finished profiles as evented speedscope
// profiles over one shared frame table.
func FromProfiles(group uint64, profiles []*profile.Profile) Output {
	o := Output{
		ProfileGroup: group,
		Profiles:     make([]EventedProfile, 0, len(profiles)),
		Version:      version,
	}
	frameIndexes := make(map[callid.ID]int)

	for _, p := range profiles {
		ep := EventedProfile{
			EndValue:   uint64(p.EndTime()),
			Events:     make([]Event, 0),
			Name:       p.DisplayTitle(),
			StartValue: uint64(p.StartTime()),
			ThreadID:   uint64(p.UID()),
			Type:       ProfileTypeEvented,
			Unit:       ValueUnitNanoseconds,
		}
		nodetree.WalkCalls(p.Root(), func(n *nodetree.Node, c nodetree.Call, enter bool) {
			e := Event{Frame: frameIndex(&o, frameIndexes, n.ID())}
			if enter {
				e.Type = EventTypeOpenFrame
				e.At = uint64(c.Start)
			} else {
				e.Type = EventTypeCloseFrame
				e.At = uint64(c.End())
			}
			ep.Events = append(ep.Events, e)
		})
		o.Profiles = append(o.Profiles, ep)

		if d := uint64(p.EndTime() - p.StartTime()); d > o.DurationNS {
			o.DurationNS = d
		}
	}
	return o
}

func frameIndex(o *Output, indexes map[callid.ID]int, id callid.ID) int {
	if i, exists := indexes[id]; exists {
		return i
	}
	i := len(o.Shared.Frames)
	indexes[id] = i
	o.Shared.Frames = append(o.Shared.Frames, Frame{
		Col:  id.Column,
		File: id.URL,
		Line: id.Line,
		Name: id.DisplayName(),
	})
	return i
}
