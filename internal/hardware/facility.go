package hardware

import (
	"sync"
	"time"

	"github.com/idiarso/linux-park-sub001/internal/domain"
)

// facility holds the runtime state of one physical device. All state
// mutation goes through the methods below; the coordinator never touches
// the fields directly.
type facility struct {
	id     string
	kind   domain.FacilityKind
	gateID string // barrier facilities only

	slot fifoSlot

	mu                  sync.Mutex
	state               domain.FacilityState
	consecutiveFailures int
	lastError           string
	lastSuccessAt       *time.Time
	seq                 uint64
}

func newFacility(id string, kind domain.FacilityKind, gateID string) *facility {
	return &facility{
		id:     id,
		kind:   kind,
		gateID: gateID,
		state:  domain.FacilityUninitialized,
	}
}

// nextSeq returns the next command sequence number for this facility.
// Sequence numbers are strictly increasing so stale acknowledgments can be
// recognized and dropped.
func (f *facility) nextSeq() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return f.seq
}

func (f *facility) currentState() domain.FacilityState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// acceptsWork reports whether the facility may take a new operation.
// Degraded facilities still accept work best-effort.
func (f *facility) acceptsWork() bool {
	switch f.currentState() {
	case domain.FacilityReady, domain.FacilityBusy, domain.FacilityDegraded:
		return true
	default:
		return false
	}
}

// transition moves the facility to next and returns the previous state.
// The caller is responsible for broadcasting the change when prev != next.
func (f *facility) transition(next domain.FacilityState, reason string) (prev domain.FacilityState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev = f.state
	f.state = next
	if reason != "" {
		f.lastError = reason
	}
	return prev
}

// markBusy flips Ready to Busy for the duration of an operation. A degraded
// facility stays degraded so the warning remains visible while it works.
func (f *facility) markBusy() (prev, next domain.FacilityState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev = f.state
	if f.state == domain.FacilityReady {
		f.state = domain.FacilityBusy
	}
	return prev, f.state
}

// recordSuccess resets the failure streak and settles the facility back to
// Ready, including recovery out of Degraded.
func (f *facility) recordSuccess(now time.Time) (prev, next domain.FacilityState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev = f.state
	f.consecutiveFailures = 0
	f.lastError = ""
	f.lastSuccessAt = &now
	if f.state == domain.FacilityBusy || f.state == domain.FacilityDegraded {
		f.state = domain.FacilityReady
	}
	return prev, f.state
}

// recordFailure bumps the failure streak, degrading the facility and
// failing it outright once the streak reaches the threshold.
func (f *facility) recordFailure(reason string, threshold int) (prev, next domain.FacilityState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev = f.state
	f.consecutiveFailures++
	f.lastError = reason
	if f.consecutiveFailures >= threshold {
		f.state = domain.FacilityFailed
	} else {
		f.state = domain.FacilityDegraded
	}
	return prev, f.state
}

func (f *facility) status() domain.FacilityStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.FacilityStatus{
		ID:                  f.id,
		Kind:                f.kind,
		GateID:              f.gateID,
		State:               f.state,
		ConsecutiveFailures: f.consecutiveFailures,
		LastError:           f.lastError,
		LastSuccessAt:       f.lastSuccessAt,
	}
}
