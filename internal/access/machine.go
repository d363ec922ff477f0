package access

import "time"

// Machine tracks whether an access is in progress and how long it has lasted.
// It is driven from a single goroutine: Start and Stop on button presses,
// Tick once per sampling interval.
type Machine struct {
	active  bool
	elapsed int
	tier    Tier
	counts  Counts
}

// NewMachine creates an idle machine.
func NewMachine() *Machine {
	return &Machine{tier: TierNone}
}

// Start opens an access period. Returns false and no record if one is
// already open.
func (m *Machine) Start(now time.Time) (Record, bool) {
	if m.active {
		return Record{}, false
	}
	m.active = true
	m.elapsed = 0
	m.tier = TierGreen
	m.counts.Started++
	return Started(now), true
}

// Stop closes the open access period and reports its elapsed seconds.
// Returns false and no record if the machine is idle.
func (m *Machine) Stop(now time.Time) (Record, bool) {
	if !m.active {
		return Record{}, false
	}
	rec := Stopped(now, m.elapsed)
	m.active = false
	m.tier = TierNone
	m.counts.Stopped++
	return rec, true
}

// Tick records one sample. While idle it does nothing. While active it
// returns a READING record, classifies the tier from the elapsed count
// before this tick, then advances the count by one second.
func (m *Machine) Tick(r Reading, now time.Time) (Record, bool) {
	if !m.active {
		return Record{}, false
	}
	m.tier = TierFor(m.elapsed)
	m.elapsed++
	m.counts.Readings++
	return ReadingAt(now, r), true
}

// Active reports whether an access period is open.
func (m *Machine) Active() bool {
	return m.active
}

// Elapsed returns the seconds counted in the open period, or 0 when idle.
func (m *Machine) Elapsed() int {
	if !m.active {
		return 0
	}
	return m.elapsed
}

// CurrentTier returns the warning tier for display.
func (m *Machine) CurrentTier() Tier {
	if !m.active {
		return TierNone
	}
	return m.tier
}

// Counts returns a copy of the per-kind record counts.
func (m *Machine) Counts() Counts {
	return m.counts
}
