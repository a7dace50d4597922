package domain

import "time"

// SessionStateChanged is fanned out to dashboards and gate displays whenever
// a session advances. Delivery is at-least-once; consumers de-duplicate by
// (session_id, new_state).
type SessionStateChanged struct {
	Type          string        `json:"type"` // always "session_state_changed"
	SessionID     string        `json:"session_id"`
	Plate         string        `json:"plate,omitempty"`
	TicketCode    string        `json:"ticket_code,omitempty"`
	SpaceID       int64         `json:"space_id,omitempty"`
	PreviousState SessionStatus `json:"previous_state"`
	NewState      SessionStatus `json:"new_state"`
	Timestamp     time.Time     `json:"timestamp"`
}

// FacilityStateChanged announces hardware facility health transitions.
type FacilityStateChanged struct {
	Type          string        `json:"type"` // always "facility_state_changed"
	FacilityID    string        `json:"facility_id"`
	PreviousState FacilityState `json:"previous_state"`
	NewState      FacilityState `json:"new_state"`
	Reason        string        `json:"reason,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}
