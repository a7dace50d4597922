package domain

import (
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

type VehicleClass string

const (
	ClassMotorcycle VehicleClass = "motorcycle"
	ClassCar        VehicleClass = "car"
	ClassOther      VehicleClass = "other"
)

func (c VehicleClass) Valid() bool {
	switch c {
	case ClassMotorcycle, ClassCar, ClassOther:
		return true
	}
	return false
}

type SessionStatus string

const (
	SessionRequested       SessionStatus = "requested"
	SessionAllocating      SessionStatus = "allocating"
	SessionActive          SessionStatus = "active"
	SessionExitPending     SessionStatus = "exit_pending"
	SessionAwaitingPayment SessionStatus = "awaiting_payment"
	SessionCompleting      SessionStatus = "completing"
	SessionCompleted       SessionStatus = "completed"
	SessionRejected        SessionStatus = "rejected"
	SessionCancelled       SessionStatus = "cancelled"
)

// Terminal reports whether a session in this status can never advance again.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionCompleted, SessionRejected, SessionCancelled:
		return true
	}
	return false
}

// NonTerminalStatuses is the set used for the one-active-session-per-plate check.
var NonTerminalStatuses = []SessionStatus{
	SessionRequested, SessionAllocating, SessionActive,
	SessionExitPending, SessionAwaitingPayment, SessionCompleting,
}

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentWaived  = "waived"
)

type ParkingSession struct {
	ID             string        `json:"id"`
	Plate          string        `json:"plate"`
	VehicleClass   VehicleClass  `json:"vehicle_class"`
	SpaceID        null.Int      `json:"space_id"`
	TicketCode     string        `json:"ticket_code"`
	EntryTime      time.Time     `json:"entry_time"`
	ExitTime       null.Time     `json:"exit_time"`
	Status         SessionStatus `json:"status"`
	Fee            null.Int      `json:"fee"` // rupiah, whole units
	RateScheduleID null.Int      `json:"rate_schedule_id,omitempty"`
	PaymentStatus  string        `json:"payment_status"`
	PaymentMethod  null.String   `json:"payment_method,omitempty"`
	EntryImageRef  null.String   `json:"entry_image_ref,omitempty"`
	ExitImageRef   null.String   `json:"exit_image_ref,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// NormalizePlate canonicalizes a plate for uniqueness checks: trimmed,
// uppercased, inner whitespace removed ("b 1234 xy" -> "B1234XY").
func NormalizePlate(plate string) string {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	return strings.Join(strings.Fields(plate), "")
}

type EntryRequestDTO struct {
	Plate        string       `json:"plate" binding:"required"`
	VehicleClass VehicleClass `json:"vehicle_class" binding:"required"`
}

type ExitRequestDTO struct {
	TicketCode string `json:"ticket_code" binding:"required"`
}

type PaymentDTO struct {
	Amount int64  `json:"amount" binding:"required"`
	Method string `json:"method" binding:"required,oneof=cash card qris"`
}

type SessionFilterDTO struct {
	Status *string `form:"status"`
	Plate  *string `form:"plate"`
}

// FeeQuote is what RequestExit hands back to the lane terminal.
type FeeQuote struct {
	SessionID      string    `json:"session_id"`
	TicketCode     string    `json:"ticket_code"`
	Plate          string    `json:"plate"`
	EntryTime      time.Time `json:"entry_time"`
	ExitTime       time.Time `json:"exit_time"`
	BilledHours    int64     `json:"billed_hours"`
	Amount         int64     `json:"amount"`
	RateScheduleID int64     `json:"rate_schedule_id"`
	PenaltyApplied bool      `json:"penalty_applied"`
}
