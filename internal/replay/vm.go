package replay

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/treeprof/treeprof/internal/frame"
	"github.com/treeprof/treeprof/internal/profile"
	"github.com/treeprof/treeprof/internal/profiler"
	"github.com/treeprof/treeprof/internal/stopwatch"
)

// frameRef snapshots a stack slot. Slot numbers start at 1 and grow
// with call depth, so a deeper frame always compares at or below a
// shallower handler. Truncating the stack returns slot numbers to the
// pool, the way an engine reuses stack memory.
type frameRef int

func (r frameRef) Depth() int {
	return int(r)
}

// VM replays a recorded notification log against a fresh profiler. It
// rebuilds the engine's call stack as a shadow stack of frame entries
// and acts as the origin every replayed notification is attributed to.
type VM struct {
	log      Log
	profiler *profiler.Profiler
	sw       *stopwatch.Manual
	stack    []frame.Entry
	paused   time.Duration
	pausedAt time.Duration
	finished []*profile.Profile
}

func NewVM(l Log) (*VM, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &VM{
		log:      l,
		profiler: profiler.New(),
		sw:       new(stopwatch.Manual),
	}, nil
}

func (vm *VM) ProfileGroup() uint64 {
	return vm.log.ProfileGroup
}

// WalkStack enumerates the shadow stack innermost first.
func (vm *VM) WalkStack(visit func(frame.Entry) bool) {
	for i := len(vm.stack) - 1; i >= 0; i-- {
		if !visit(vm.stack[i]) {
			return
		}
	}
}

// Run replays the whole log and returns the finished profiles in the
// order they were stopped. Profiles still recording at the end of the
// log are stopped there. Validation cannot rule out every exit sequence
// the call tree refuses, so corrupt sequences surface here, reported as
// ErrInvalidLog.
func (vm *VM) Run() (profiles []*profile.Profile, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidLog, r)
		}
	}()

	for i, ev := range vm.log.Events {
		log.Trace().
			Int("event", i).
			Str("type", string(ev.Type)).
			Uint64("elapsed_since_start_ns", ev.ElapsedSinceStartNS).
			Msg("replaying event")
		vm.step(ev)
	}

	for {
		p := vm.profiler.StopProfiling(vm, "")
		if p == nil {
			break
		}
		vm.finished = append(vm.finished, p)
	}
	return vm.finished, nil
}

func (vm *VM) step(ev Event) {
	switch ev.Type {
	case EventEnter:
		vm.sw.Set(ev.Elapsed() - vm.paused)
		callerRef := vm.topRef()
		id := ev.ID()
		vm.stack = append(vm.stack, frame.Entry{ID: id, Ref: frameRef(len(vm.stack) + 1)})
		vm.profiler.WillExecute(vm, callerRef, id)
		// The start marker's native body runs after its entry has been
		// dispatched, so the generator it starts never records the
		// marker itself and seeds its ancestor from the frame beneath.
		if id.Function == profiler.StartMarker {
			vm.profiler.StartProfiling(vm, ev.Title, vm.sw)
		}
	case EventExit:
		vm.sw.Set(ev.Elapsed() - vm.paused)
		id := ev.ID()
		// The stop marker's native body runs before its exit is
		// dispatched, so the finished profile never records the exit
		// and ends with its cursor parked on the marker's caller.
		if id.Function == profiler.StopMarker {
			if p := vm.profiler.StopProfiling(vm, ev.Title); p != nil {
				vm.finished = append(vm.finished, p)
			}
		}
		vm.stack = vm.stack[:len(vm.stack)-1]
		vm.profiler.DidExecute(vm, vm.topRef(), id)
	case EventUnwind:
		vm.sw.Set(ev.Elapsed() - vm.paused)
		vm.profiler.ExceptionUnwind(vm, frameRef(ev.Depth))
		vm.stack = vm.stack[:ev.Depth]
	case EventSuspend:
		vm.sw.Set(ev.Elapsed() - vm.paused)
		vm.profiler.Suspend(vm)
		vm.pausedAt = ev.Elapsed()
	case EventResume:
		// The stopwatch does not advance during a pause, so replayed
		// timestamps exclude the time spent suspended.
		vm.paused += ev.Elapsed() - vm.pausedAt
		vm.profiler.Unsuspend(vm)
	}
}

func (vm *VM) topRef() frame.Ref {
	if len(vm.stack) == 0 {
		return nil
	}
	return vm.stack[len(vm.stack)-1].Ref
}
