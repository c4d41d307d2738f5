package application

import (
	"time"

	"transcribe-gateway/internal/domain"
)

// StoreStatus is the only view of the data store the gateway needs.
type StoreStatus interface {
	Connected() bool
}

type HealthReporter struct {
	store StoreStatus
	now   func() time.Time
}

func NewHealthReporter(store StoreStatus) *HealthReporter {
	return &HealthReporter{store: store, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (h *HealthReporter) WithClock(now func() time.Time) *HealthReporter {
	h.now = now
	return h
}

// Snapshot never fails: an unknown store state is reported as down.
// OK mirrors store connectivity.
func (h *HealthReporter) Snapshot() domain.HealthSnapshot {
	state := h.storeState()
	return domain.HealthSnapshot{
		OK:        state == domain.StoreUp,
		Store:     state,
		CheckedAt: h.now().UTC(),
	}
}

func (h *HealthReporter) storeState() (state domain.StoreState) {
	state = domain.StoreDown
	if h.store == nil {
		return state
	}
	defer func() {
		if recover() != nil {
			state = domain.StoreDown
		}
	}()
	if h.store.Connected() {
		state = domain.StoreUp
	}
	return state
}
