package stopwatch

import "time"

type (
	// Stopwatch is the time source profiles are recorded against.
	// Elapsed never decreases.
	Stopwatch interface {
		Elapsed() time.Duration
	}

	// Monotonic measures real elapsed time using the runtime's
	// monotonic clock. Stop and Start suspend and resume accumulation
	// so that paused intervals never show up in recorded profiles.
	// Not safe for concurrent use.
	Monotonic struct {
		accumulated time.Duration
		startedAt   time.Time
		running     bool
	}

	// Manual is a Stopwatch advanced explicitly by the caller, used to
	// drive deterministic replays.
	Manual struct {
		elapsed time.Duration
	}
)

// NewMonotonic returns a running stopwatch.
func NewMonotonic() *Monotonic {
	m := new(Monotonic)
	m.Start()
	return m
}

func (m *Monotonic) Start() {
	if m.running {
		return
	}
	m.startedAt = time.Now()
	m.running = true
}

func (m *Monotonic) Stop() {
	if !m.running {
		return
	}
	m.accumulated += time.Since(m.startedAt)
	m.running = false
}

func (m *Monotonic) Running() bool {
	return m.running
}

func (m *Monotonic) Elapsed() time.Duration {
	if !m.running {
		return m.accumulated
	}
	return m.accumulated + time.Since(m.startedAt)
}

// Set moves the stopwatch to elapsed. It panics when asked to move
// backwards.
func (m *Manual) Set(elapsed time.Duration) {
	if elapsed < m.elapsed {
		panic("stopwatch: elapsed time cannot decrease")
	}
	m.elapsed = elapsed
}

// Advance moves the stopwatch forward by d.
func (m *Manual) Advance(d time.Duration) {
	if d < 0 {
		panic("stopwatch: elapsed time cannot decrease")
	}
	m.elapsed += d
}

func (m *Manual) Elapsed() time.Duration {
	return m.elapsed
}
