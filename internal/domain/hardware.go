package domain

import (
	"encoding/json"
	"time"
)

type FacilityKind string

const (
	FacilityImaging FacilityKind = "imaging"
	FacilityBarrier FacilityKind = "barrier"
	FacilityPrinter FacilityKind = "printer"
)

type FacilityState string

const (
	FacilityUninitialized FacilityState = "uninitialized"
	FacilityInitializing  FacilityState = "initializing"
	FacilityReady         FacilityState = "ready"
	FacilityBusy          FacilityState = "busy"
	FacilityDegraded      FacilityState = "degraded"
	FacilityFailed        FacilityState = "failed"
)

type GateCommand string

const (
	GateOpen  GateCommand = "open"
	GateClose GateCommand = "close"
)

// FacilityStatus is the read-only snapshot exposed to the ops API.
type FacilityStatus struct {
	ID                  string        `json:"id"`
	Kind                FacilityKind  `json:"kind"`
	GateID              string        `json:"gate_id,omitempty"`
	State               FacilityState `json:"state"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastError           string        `json:"last_error,omitempty"`
	LastSuccessAt       *time.Time    `json:"last_success_at,omitempty"`
}

// DeviceCommandPayload is published to the lane controller command topic.
// The controller mirrors RequestID and Seq back in its acknowledgement so
// duplicate and out-of-order acks can be detected.
type DeviceCommandPayload struct {
	FacilityID  string `json:"facility_id"`
	Action      string `json:"action"` // "initialize", "capture", "open", "close", "print", "status"
	RequestID   string `json:"request_id"`
	Seq         uint64 `json:"seq"`
	SessionHint string `json:"session_hint,omitempty"`
	TicketText  string `json:"ticket_text,omitempty"`
}

// GenericDeviceEvent is the first-pass decode of anything arriving from the
// device event queue; message_type selects the concrete payload.
type GenericDeviceEvent struct {
	DeviceID          string          `json:"device_id"`
	MessageType       string          `json:"message_type"`
	Timestamp         string          `json:"timestamp"` // ISO 8601 UTC string from the controller
	ReceivedMqttTopic string          `json:"received_mqtt_topic,omitempty"`
	ClientIDFromIoT   string          `json:"client_id_iot,omitempty"`
	RawPayload        json.RawMessage `json:"-"`
}

// DeviceAckEvent acknowledges one DeviceCommandPayload.
type DeviceAckEvent struct {
	GenericDeviceEvent
	FacilityID string `json:"facility_id"`
	RequestID  string `json:"request_id"`
	Seq        uint64 `json:"seq"`
	Status     string `json:"status"` // "ok" or "error"
	Detail     string `json:"detail,omitempty"`
	ImageRef   string `json:"image_ref,omitempty"` // capture acks only
}

// DeviceBarrierStateEvent is an unsolicited barrier state report, used to
// reconcile the physical state after an actuation timeout.
type DeviceBarrierStateEvent struct {
	GenericDeviceEvent
	GateID       string `json:"gate_id"`
	BarrierState string `json:"barrier_state"` // "opened", "closed", "error", "unknown"
}

// DeviceErrorEvent is a fault report pushed by a lane controller.
type DeviceErrorEvent struct {
	GenericDeviceEvent
	FacilityID   string `json:"facility_id,omitempty"`
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// HardwareEventLog persists every raw device message for the audit trail.
type HardwareEventLog struct {
	ID              int64           `json:"id"`
	ReceivedAt      time.Time       `json:"received_at"`
	DeviceID        string          `json:"device_id"`
	MqttTopic       string          `json:"mqtt_topic"`
	MessageType     string          `json:"message_type"`
	Payload         json.RawMessage `json:"payload"`
	ProcessedStatus string          `json:"processed_status"` // "pending", "processed", "error"
	ProcessingNotes string          `json:"processing_notes,omitempty"`
}

// TicketContent is everything the entry printer needs for one ticket.
type TicketContent struct {
	TicketCode string    `json:"ticket_code"`
	Plate      string    `json:"plate"`
	LotName    string    `json:"lot_name"`
	EntryTime  time.Time `json:"entry_time"`
}

type ManualActuateDTO struct {
	GateID  string `json:"gate_id" binding:"required"`
	Command string `json:"command" binding:"required,oneof=open close"`
	Reason  string `json:"reason" binding:"required"`
}
