package replay

import (
	"errors"
	"fmt"
	"time"

	"github.com/treeprof/treeprof/internal/callid"
	"github.com/treeprof/treeprof/internal/profiler"
	"github.com/treeprof/treeprof/internal/timeutil"
)

// Version1 identifies the only event log format currently written.
const Version1 = "1"

// ErrInvalidLog is wrapped by every validation and replay error.
var ErrInvalidLog = errors.New("replay: invalid event log")

type (
	EventType string

	// Log is a recorded sequence of engine notifications. Replaying it
	// against a fresh profiler reproduces the profiles the engine
	// would have built live. Event timestamps are relative, RecordedAt
	// anchors them to wall-clock time.
	Log struct {
		Version      string        `json:"version"`
		ProfileGroup uint64        `json:"profile_group"`
		RecordedAt   timeutil.Time `json:"recorded_at,omitempty"`
		Events       []Event       `json:"events"`
	}

	Event struct {
		Type                EventType `json:"type"`
		ElapsedSinceStartNS uint64    `json:"elapsed_since_start_ns"`

		// Callee identity, set on enter and exit events.
		Function string `json:"function,omitempty"`
		URL      string `json:"url,omitempty"`
		Line     uint32 `json:"lineno,omitempty"`
		Column   uint32 `json:"colno,omitempty"`

		// Depth of the handler frame, set on unwind events.
		Depth int `json:"depth,omitempty"`

		// Title argument of a profiling marker, set on the start
		// marker's enter and the stop marker's exit.
		Title string `json:"title,omitempty"`
	}
)

const (
	EventEnter   EventType = "enter"
	EventExit    EventType = "exit"
	EventUnwind  EventType = "unwind"
	EventSuspend EventType = "suspend"
	EventResume  EventType = "resume"
)

// ID returns the callee identity carried by an enter or exit event.
func (e Event) ID() callid.ID {
	return callid.ID{
		Function: e.Function,
		URL:      e.URL,
		Line:     e.Line,
		Column:   e.Column,
	}
}

// Elapsed returns the event's timestamp as a duration since the log's
// time origin.
func (e Event) Elapsed() time.Duration {
	return time.Duration(e.ElapsedSinceStartNS)
}

// Validate checks the rules a replayable log has to follow: a known
// version, timestamps that never move backwards, exits and unwinds that
// stay within the recorded stack, no execution events while the engine
// is suspended, and a caller frame on the stack beneath every start
// marker for the new profile's ancestor to be seeded from.
func (l *Log) Validate() error {
	if l.Version != Version1 {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidLog, l.Version)
	}

	var (
		depth     int
		suspended bool
		lastNS    uint64
	)
	for i, ev := range l.Events {
		if ev.ElapsedSinceStartNS < lastNS {
			return fmt.Errorf("%w: event %d: timestamp moves backwards", ErrInvalidLog, i)
		}
		lastNS = ev.ElapsedSinceStartNS

		switch ev.Type {
		case EventEnter:
			if suspended {
				return fmt.Errorf("%w: event %d: enter while suspended", ErrInvalidLog, i)
			}
			if ev.Function == profiler.StartMarker && depth == 0 {
				return fmt.Errorf("%w: event %d: start marker without a caller frame", ErrInvalidLog, i)
			}
			depth++
		case EventExit:
			if suspended {
				return fmt.Errorf("%w: event %d: exit while suspended", ErrInvalidLog, i)
			}
			if depth == 0 {
				return fmt.Errorf("%w: event %d: exit without a matching enter", ErrInvalidLog, i)
			}
			depth--
		case EventUnwind:
			if suspended {
				return fmt.Errorf("%w: event %d: unwind while suspended", ErrInvalidLog, i)
			}
			if ev.Depth < 1 || ev.Depth > depth {
				return fmt.Errorf("%w: event %d: unwind to depth %d outside the stack", ErrInvalidLog, i, ev.Depth)
			}
			depth = ev.Depth
		case EventSuspend:
			if suspended {
				return fmt.Errorf("%w: event %d: already suspended", ErrInvalidLog, i)
			}
			suspended = true
		case EventResume:
			if !suspended {
				return fmt.Errorf("%w: event %d: resume without suspend", ErrInvalidLog, i)
			}
			suspended = false
		default:
			return fmt.Errorf("%w: event %d: unknown type %q", ErrInvalidLog, i, ev.Type)
		}
	}
	return nil
}
