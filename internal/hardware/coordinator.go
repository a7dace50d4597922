package hardware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/idiarso/linux-park-sub001/internal/domain"
)

// CommandPublisher pushes one command payload to the lane controller
// command topic. Implemented over AWS IoT Data Plane in production and by
// fakes in tests.
type CommandPublisher interface {
	PublishCommand(ctx context.Context, cmd domain.DeviceCommandPayload) error
}

// Broadcaster receives facility health transitions for dashboard fan-out.
type Broadcaster interface {
	BroadcastFacilityEvent(event domain.FacilityStateChanged)
}

// Options carries the coordinator's tuning knobs. Zero values are replaced
// by the defaults below.
type Options struct {
	AckWindow        time.Duration // barrier acknowledgment window
	CaptureTimeout   time.Duration // camera needs longer than the barrier
	SlotWaitTimeout  time.Duration // max wait on a facility's queue
	RetryCount       int           // extra attempts for capture/print
	RetryBackoff     time.Duration // linear backoff unit between attempts
	FailureThreshold int           // consecutive failures before Failed
	VerifyPollDelay  time.Duration // delay before the post-timeout status poll
}

const (
	defaultAckWindow        = 1000 * time.Millisecond
	defaultCaptureTimeout   = 5 * time.Second
	defaultSlotWaitTimeout  = 10 * time.Second
	defaultRetryCount       = 2
	defaultRetryBackoff = 500 * time.Millisecond
	defaultFailureThreshold = 3
	defaultVerifyPollDelay  = 2 * time.Second
)

func (o *Options) fillDefaults() {
	if o.AckWindow <= 0 {
		o.AckWindow = defaultAckWindow
	}
	if o.CaptureTimeout <= 0 {
		o.CaptureTimeout = defaultCaptureTimeout
	}
	if o.SlotWaitTimeout <= 0 {
		o.SlotWaitTimeout = defaultSlotWaitTimeout
	}
	if o.RetryCount < 0 {
		o.RetryCount = defaultRetryCount
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = defaultFailureThreshold
	}
	if o.VerifyPollDelay <= 0 {
		o.VerifyPollDelay = defaultVerifyPollDelay
	}
}

// Coordinator owns exclusive access to every hardware facility. Session
// logic never talks to a device directly; it asks the coordinator, which
// serializes per-facility work while letting distinct facilities run
// concurrently.
type Coordinator struct {
	publisher   CommandPublisher
	broadcaster Broadcaster
	opts        Options

	initMu     sync.Mutex // serializes cold start against reconfiguration
	facilities map[string]*facility

	pendingMu sync.Mutex
	pending   map[string]chan domain.DeviceAckEvent // keyed by request id
	lastAcked map[string]uint64                     // highest acked seq per facility
}

func NewCoordinator(publisher CommandPublisher, broadcaster Broadcaster, opts Options) *Coordinator {
	opts.fillDefaults()
	return &Coordinator{
		publisher:   publisher,
		broadcaster: broadcaster,
		opts:        opts,
		facilities:  make(map[string]*facility),
		pending:     make(map[string]chan domain.DeviceAckEvent),
		lastAcked:   make(map[string]uint64),
	}
}

// Register adds a facility before the coordinator is put to work. Barrier
// facilities carry the physical gate id they actuate.
func (c *Coordinator) Register(id string, kind domain.FacilityKind, gateID string) {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	c.facilities[id] = newFacility(id, kind, gateID)
}

func (c *Coordinator) facility(id string) (*facility, error) {
	f, ok := c.facilities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFacility, id)
	}
	return f, nil
}

// facilityForGate resolves the barrier facility actuating the given gate.
func (c *Coordinator) facilityForGate(gateID string) (*facility, error) {
	for _, f := range c.facilities {
		if f.kind == domain.FacilityBarrier && f.gateID == gateID {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: no barrier for gate %s", ErrUnknownFacility, gateID)
}

// Facilities returns a health snapshot of every registered facility.
func (c *Coordinator) Facilities() []domain.FacilityStatus {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	out := make([]domain.FacilityStatus, 0, len(c.facilities))
	for _, f := range c.facilities {
		out = append(out, f.status())
	}
	return out
}

// Initialize brings one facility to Ready. Safe to call on a facility that
// is already Ready; a failed handshake leaves it Failed.
func (c *Coordinator) Initialize(ctx context.Context, facilityID string) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	f, err := c.facility(facilityID)
	if err != nil {
		return err
	}
	return c.initializeLocked(ctx, f)
}

// InitializeAll cold-starts every facility under the same init lock, so a
// full-system start cannot race a mid-flight reconfiguration.
func (c *Coordinator) InitializeAll(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	var firstErr error
	for _, f := range c.facilities {
		if err := c.initializeLocked(ctx, f); err != nil {
			log.Printf("Coordinator: init %s failed: %v", f.id, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (c *Coordinator) initializeLocked(ctx context.Context, f *facility) error {
	c.applyTransition(f, f.transition(domain.FacilityInitializing, ""), domain.FacilityInitializing, "initializing")

	ack, err := c.roundTrip(ctx, f, domain.DeviceCommandPayload{
		FacilityID: f.id,
		Action:     "initialize",
	}, c.opts.AckWindow)
	if err != nil || ack.Status != "ok" {
		detail := "no acknowledgment"
		if err != nil {
			detail = err.Error()
		} else if ack.Detail != "" {
			detail = ack.Detail
		}
		c.applyTransition(f, f.transition(domain.FacilityFailed, detail), domain.FacilityFailed, detail)
		return fmt.Errorf("%w: %s: %s", ErrHardwareUnavailable, f.id, detail)
	}

	prev, next := f.recordSuccess(time.Now().UTC())
	c.applyTransition(f, prev, next, "initialized")
	log.Printf("Coordinator: facility %s siap (ready)", f.id)
	return nil
}

// Capture grabs one frame from an imaging facility and returns the image
// reference reported by the controller. Transient failures are retried with
// linear backoff before surfacing.
func (c *Coordinator) Capture(ctx context.Context, facilityID, sessionHint string) (string, error) {
	f, err := c.facility(facilityID)
	if err != nil {
		return "", err
	}
	if f.kind != domain.FacilityImaging {
		return "", fmt.Errorf("%w: %s is not an imaging facility", ErrUnknownFacility, facilityID)
	}

	var imageRef string
	err = c.withRetry(ctx, f, func() error {
		ack, opErr := c.execute(ctx, f, domain.DeviceCommandPayload{
			FacilityID:  f.id,
			Action:      "capture",
			SessionHint: sessionHint,
		}, c.opts.CaptureTimeout)
		if opErr != nil {
			if errors.Is(opErr, errAckWindowExpired) {
				return ErrCaptureTimeout
			}
			return opErr
		}
		if ack.Status != "ok" {
			return fmt.Errorf("%w: %s", ErrCaptureFailed, ack.Detail)
		}
		imageRef = ack.ImageRef
		return nil
	})
	if err != nil {
		return "", err
	}
	return imageRef, nil
}

// Actuate drives one barrier gate. A timeout means the physical state is
// unknown: the command is never re-sent automatically, a verifying status
// poll is scheduled instead, and the caller decides what to do next.
func (c *Coordinator) Actuate(ctx context.Context, gateID string, command domain.GateCommand) error {
	f, err := c.facilityForGate(gateID)
	if err != nil {
		return err
	}

	ack, err := c.execute(ctx, f, domain.DeviceCommandPayload{
		FacilityID: f.id,
		Action:     string(command),
	}, c.opts.AckWindow)
	if err != nil {
		if errors.Is(err, errAckWindowExpired) {
			c.scheduleVerifyPoll(f)
			return fmt.Errorf("%w: gate %s command %s", ErrActuationTimeout, gateID, command)
		}
		return err
	}
	if ack.Status != "ok" {
		return fmt.Errorf("%w: gate %s: %s", ErrActuationFailed, gateID, ack.Detail)
	}
	return nil
}

// Print renders and prints one entry ticket. Retried like capture.
func (c *Coordinator) Print(ctx context.Context, facilityID string, content domain.TicketContent) error {
	f, err := c.facility(facilityID)
	if err != nil {
		return err
	}
	if f.kind != domain.FacilityPrinter {
		return fmt.Errorf("%w: %s is not a printer facility", ErrUnknownFacility, facilityID)
	}

	text := RenderTicketText(content)
	return c.withRetry(ctx, f, func() error {
		ack, opErr := c.execute(ctx, f, domain.DeviceCommandPayload{
			FacilityID:  f.id,
			Action:      "print",
			SessionHint: content.TicketCode,
			TicketText:  text,
		}, c.opts.AckWindow)
		if opErr != nil {
			if errors.Is(opErr, errAckWindowExpired) {
				return fmt.Errorf("%w: no acknowledgment", ErrPrinterOffline)
			}
			return opErr
		}
		if ack.Status != "ok" {
			return fmt.Errorf("%w: %s", ErrPrintFailed, ack.Detail)
		}
		return nil
	})
}

// errAckWindowExpired is internal; public errors carry the operation kind.
var errAckWindowExpired = errors.New("acknowledgment window expired")

// withRetry runs op up to 1+RetryCount times with linear backoff. Busy and
// unavailable conditions are not retried, they describe the facility rather
// than the attempt.
func (c *Coordinator) withRetry(ctx context.Context, f *facility, op func() error) error {
	var err error
	for attempt := 0; attempt <= c.opts.RetryCount; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * c.opts.RetryBackoff
			log.Printf("Coordinator: retrying %s after %v (attempt %d/%d)", f.id, backoff, attempt+1, c.opts.RetryCount+1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return err
			}
		}
		err = op()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrHardwareBusy) || errors.Is(err, ErrHardwareUnavailable) {
			return err
		}
	}
	return err
}

// execute is the single-operation path: gate on facility health, take the
// FIFO slot, round-trip one command, and settle the state machine on the
// outcome.
func (c *Coordinator) execute(ctx context.Context, f *facility, cmd domain.DeviceCommandPayload, ackWindow time.Duration) (*domain.DeviceAckEvent, error) {
	if !f.acceptsWork() {
		return nil, fmt.Errorf("%w: %s is %s", ErrHardwareUnavailable, f.id, f.currentState())
	}

	slotCtx, cancel := context.WithTimeout(ctx, c.opts.SlotWaitTimeout)
	defer cancel()
	if err := f.slot.acquire(slotCtx); err != nil {
		return nil, fmt.Errorf("%w: %s", err, f.id)
	}
	defer f.slot.release()

	prev, next := f.markBusy()
	c.applyTransition(f, prev, next, "")

	ack, err := c.roundTrip(ctx, f, cmd, ackWindow)
	now := time.Now().UTC()
	if err != nil || ack.Status != "ok" {
		detail := "controller reported error"
		if err != nil {
			detail = err.Error()
		} else if ack.Detail != "" {
			detail = ack.Detail
		}
		prev, next = f.recordFailure(detail, c.opts.FailureThreshold)
		c.applyTransition(f, prev, next, detail)
		if err != nil {
			return nil, err
		}
		return ack, nil
	}

	prev, next = f.recordSuccess(now)
	c.applyTransition(f, prev, next, "")
	return ack, nil
}

// roundTrip publishes one command and waits for its acknowledgment.
func (c *Coordinator) roundTrip(ctx context.Context, f *facility, cmd domain.DeviceCommandPayload, ackWindow time.Duration) (*domain.DeviceAckEvent, error) {
	cmd.RequestID = uuid.NewString()
	cmd.Seq = f.nextSeq()

	ackCh := make(chan domain.DeviceAckEvent, 1)
	c.pendingMu.Lock()
	c.pending[cmd.RequestID] = ackCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, cmd.RequestID)
		c.pendingMu.Unlock()
	}()

	if err := c.publisher.PublishCommand(ctx, cmd); err != nil {
		return nil, fmt.Errorf("publishing %s to %s: %w", cmd.Action, f.id, err)
	}

	timer := time.NewTimer(ackWindow)
	defer timer.Stop()
	select {
	case ack := <-ackCh:
		return &ack, nil
	case <-timer.C:
		return nil, errAckWindowExpired
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ResolveAck routes a controller acknowledgment to the operation waiting on
// it. Duplicate and out-of-order acks are detected by request id and
// sequence number and dropped.
func (c *Coordinator) ResolveAck(event domain.DeviceAckEvent) {
	c.pendingMu.Lock()
	if last, ok := c.lastAcked[event.FacilityID]; ok && event.Seq <= last {
		c.pendingMu.Unlock()
		log.Printf("Coordinator: dropping stale ack for %s (seq %d <= %d)", event.FacilityID, event.Seq, last)
		return
	}
	ch, waiting := c.pending[event.RequestID]
	if waiting {
		c.lastAcked[event.FacilityID] = event.Seq
		delete(c.pending, event.RequestID)
	}
	c.pendingMu.Unlock()

	if !waiting {
		log.Printf("Coordinator: dropping ack with no pending request (req %s, facility %s)", event.RequestID, event.FacilityID)
		return
	}
	ch <- event
}

// scheduleVerifyPoll asks the controller for the barrier's actual position
// after an unacknowledged actuation. The poll result arrives back as a
// barrier state event and is reconciled there.
func (c *Coordinator) scheduleVerifyPoll(f *facility) {
	go func() {
		time.Sleep(c.opts.VerifyPollDelay)
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.AckWindow)
		defer cancel()
		cmd := domain.DeviceCommandPayload{
			FacilityID: f.id,
			Action:     "status",
			RequestID:  uuid.NewString(),
			Seq:        f.nextSeq(),
		}
		if err := c.publisher.PublishCommand(ctx, cmd); err != nil {
			log.Printf("Coordinator: verify poll for %s failed: %v", f.id, err)
		}
	}()
}

// ReconcileBarrierState folds an unsolicited barrier position report into
// the owning facility. An error position degrades the facility; a clean
// position clears the streak.
func (c *Coordinator) ReconcileBarrierState(event domain.DeviceBarrierStateEvent) {
	f, err := c.facilityForGate(event.GateID)
	if err != nil {
		log.Printf("Coordinator: barrier state for unknown gate %s", event.GateID)
		return
	}
	log.Printf("Coordinator: gate %s reports barrier %s", event.GateID, event.BarrierState)
	switch event.BarrierState {
	case "opened", "closed":
		prev, next := f.recordSuccess(time.Now().UTC())
		c.applyTransition(f, prev, next, "")
	case "error", "unknown":
		prev, next := f.recordFailure("barrier position "+event.BarrierState, c.opts.FailureThreshold)
		c.applyTransition(f, prev, next, "barrier position "+event.BarrierState)
	}
}

// ReportDeviceError folds a controller fault report into the facility.
func (c *Coordinator) ReportDeviceError(event domain.DeviceErrorEvent) {
	if event.FacilityID == "" {
		log.Printf("Coordinator: controller %s error %d: %s", event.DeviceID, event.ErrorCode, event.ErrorMessage)
		return
	}
	f, err := c.facility(event.FacilityID)
	if err != nil {
		log.Printf("Coordinator: error report for unknown facility %s", event.FacilityID)
		return
	}
	detail := fmt.Sprintf("device error %d: %s", event.ErrorCode, event.ErrorMessage)
	prev, next := f.recordFailure(detail, c.opts.FailureThreshold)
	c.applyTransition(f, prev, next, detail)
}

// applyTransition broadcasts a state change when one actually happened.
func (c *Coordinator) applyTransition(f *facility, prev, next domain.FacilityState, reason string) {
	if prev == next || c.broadcaster == nil {
		return
	}
	c.broadcaster.BroadcastFacilityEvent(domain.FacilityStateChanged{
		Type:          "facility_state_changed",
		FacilityID:    f.id,
		PreviousState: prev,
		NewState:      next,
		Reason:        reason,
		Timestamp:     time.Now().UTC(),
	})
}
