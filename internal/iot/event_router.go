package iot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/repository"
)

// HardwareSink is the coordinator surface the router feeds. Acks resolve
// pending commands; barrier state and error reports fold into facility
// health.
type HardwareSink interface {
	ResolveAck(event domain.DeviceAckEvent)
	ReconcileBarrierState(event domain.DeviceBarrierStateEvent)
	ReportDeviceError(event domain.DeviceErrorEvent)
}

// EventRouter decodes raw device messages off the queue, persists them to
// the audit log and dispatches them by message type.
type EventRouter struct {
	sink     HardwareSink
	eventLog repository.HardwareEventLogRepository
}

func NewEventRouter(sink HardwareSink, eventLog repository.HardwareEventLogRepository) *EventRouter {
	return &EventRouter{sink: sink, eventLog: eventLog}
}

func (r *EventRouter) HandleDeviceEvent(ctx context.Context, body string) error {
	var rawPayload json.RawMessage
	if err := json.Unmarshal([]byte(body), &rawPayload); err != nil {
		r.logEvent(domain.HardwareEventLog{
			Payload:         json.RawMessage(body),
			ProcessedStatus: "error",
			ProcessingNotes: fmt.Sprintf("unmarshal raw payload: %v", err),
		})
		return fmt.Errorf("unmarshal raw payload: %w", err)
	}

	var generic domain.GenericDeviceEvent
	if err := json.Unmarshal(rawPayload, &generic); err != nil {
		r.logEvent(domain.HardwareEventLog{
			Payload:         rawPayload,
			ProcessedStatus: "error",
			ProcessingNotes: fmt.Sprintf("unmarshal generic event: %v", err),
		})
		return fmt.Errorf("unmarshal generic event: %w", err)
	}
	generic.RawPayload = rawPayload

	entry := domain.HardwareEventLog{
		ReceivedAt:      time.Now().UTC(),
		DeviceID:        generic.DeviceID,
		MqttTopic:       generic.ReceivedMqttTopic,
		MessageType:     generic.MessageType,
		Payload:         rawPayload,
		ProcessedStatus: "processed",
	}

	switch generic.MessageType {
	case "command_ack":
		var event domain.DeviceAckEvent
		if err := json.Unmarshal(rawPayload, &event); err != nil {
			entry.ProcessedStatus = "error"
			entry.ProcessingNotes = fmt.Sprintf("unmarshal command_ack: %v", err)
			r.logEvent(entry)
			return err
		}
		event.GenericDeviceEvent = generic
		r.sink.ResolveAck(event)

	case "barrier_state":
		var event domain.DeviceBarrierStateEvent
		if err := json.Unmarshal(rawPayload, &event); err != nil {
			entry.ProcessedStatus = "error"
			entry.ProcessingNotes = fmt.Sprintf("unmarshal barrier_state: %v", err)
			r.logEvent(entry)
			return err
		}
		event.GenericDeviceEvent = generic
		r.sink.ReconcileBarrierState(event)

	case "device_error":
		var event domain.DeviceErrorEvent
		if err := json.Unmarshal(rawPayload, &event); err != nil {
			entry.ProcessedStatus = "error"
			entry.ProcessingNotes = fmt.Sprintf("unmarshal device_error: %v", err)
			r.logEvent(entry)
			return err
		}
		event.GenericDeviceEvent = generic
		r.sink.ReportDeviceError(event)

	default:
		log.Printf("EventRouter: unhandled message type '%s' from %s", generic.MessageType, generic.DeviceID)
		entry.ProcessingNotes = "unhandled message type"
	}

	r.logEvent(entry)
	return nil
}

// logEvent writes to the audit trail best-effort; a logging failure never
// blocks event processing.
func (r *EventRouter) logEvent(entry domain.HardwareEventLog) {
	if r.eventLog == nil {
		return
	}
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now().UTC()
	}
	if err := r.eventLog.Create(context.Background(), &entry); err != nil {
		log.Printf("EventRouter: writing event log: %v", err)
	}
}
