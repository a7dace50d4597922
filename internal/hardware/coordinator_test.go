package hardware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/idiarso/linux-park-sub001/internal/domain"
)

// fakePublisher records every published command and can answer them with a
// scripted acknowledgment, as the lane controller would over the queue.
type fakePublisher struct {
	mu       sync.Mutex
	commands []domain.DeviceCommandPayload
	respond  func(cmd domain.DeviceCommandPayload) *domain.DeviceAckEvent
	resolver func(event domain.DeviceAckEvent)
}

func (p *fakePublisher) PublishCommand(_ context.Context, cmd domain.DeviceCommandPayload) error {
	p.mu.Lock()
	p.commands = append(p.commands, cmd)
	respond := p.respond
	p.mu.Unlock()
	if respond == nil {
		return nil
	}
	ack := respond(cmd)
	if ack == nil {
		return nil
	}
	go p.resolver(*ack)
	return nil
}

func (p *fakePublisher) published() []domain.DeviceCommandPayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.DeviceCommandPayload, len(p.commands))
	copy(out, p.commands)
	return out
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []domain.FacilityStateChanged
}

func (b *fakeBroadcaster) BroadcastFacilityEvent(event domain.FacilityStateChanged) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

func okAck(cmd domain.DeviceCommandPayload) *domain.DeviceAckEvent {
	return &domain.DeviceAckEvent{
		FacilityID: cmd.FacilityID,
		RequestID:  cmd.RequestID,
		Seq:        cmd.Seq,
		Status:     "ok",
		ImageRef:   "img-" + cmd.RequestID,
	}
}

func newTestCoordinator(t *testing.T, respond func(domain.DeviceCommandPayload) *domain.DeviceAckEvent, opts Options) (*Coordinator, *fakePublisher, *fakeBroadcaster) {
	t.Helper()
	pub := &fakePublisher{respond: respond}
	bc := &fakeBroadcaster{}
	c := NewCoordinator(pub, bc, opts)
	pub.resolver = c.ResolveAck
	c.Register("camera-entry", domain.FacilityImaging, "")
	c.Register("barrier-entry", domain.FacilityBarrier, "gate-entry")
	c.Register("barrier-exit", domain.FacilityBarrier, "gate-exit")
	c.Register("printer-entry", domain.FacilityPrinter, "")
	if err := c.InitializeAll(context.Background()); err != nil {
		t.Fatalf("InitializeAll: %v", err)
	}
	return c, pub, bc
}

func TestCaptureReturnsImageRef(t *testing.T) {
	c, _, _ := newTestCoordinator(t, okAck, Options{})
	ref, err := c.Capture(context.Background(), "camera-entry", "sess-1")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if ref == "" {
		t.Fatal("Capture returned empty image ref")
	}
}

func TestSlotGrantsInFIFOOrder(t *testing.T) {
	var s fifoSlot
	if err := s.acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	const waiters = 5
	order := make(chan int, waiters)
	var started sync.WaitGroup
	var done sync.WaitGroup
	for i := 0; i < waiters; i++ {
		started.Add(1)
		done.Add(1)
		go func(i int) {
			defer done.Done()
			// Stagger arrival so queue order is deterministic.
			started.Done()
			time.Sleep(time.Duration(i*20) * time.Millisecond)
			if err := s.acquire(context.Background()); err != nil {
				t.Errorf("waiter %d: %v", i, err)
				return
			}
			order <- i
			s.release()
		}(i)
	}
	started.Wait()
	time.Sleep(time.Duration(waiters*20+50) * time.Millisecond)
	s.release()
	done.Wait()
	close(order)

	want := 0
	for got := range order {
		if got != want {
			t.Fatalf("grant order: got waiter %d, want %d", got, want)
		}
		want++
	}
	if want != waiters {
		t.Fatalf("only %d waiters were granted", want)
	}
}

func TestSlotWaitTimeoutIsBusy(t *testing.T) {
	var s fifoSlot
	if err := s.acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := s.acquire(ctx); !errors.Is(err, ErrHardwareBusy) {
		t.Fatalf("err = %v, want ErrHardwareBusy", err)
	}
	// The abandoned waiter must not block the next one.
	s.release()
	if err := s.acquire(context.Background()); err != nil {
		t.Fatalf("acquire after timeout: %v", err)
	}
}

func TestActuationTimeoutIsNotRetried(t *testing.T) {
	silent := func(cmd domain.DeviceCommandPayload) *domain.DeviceAckEvent {
		if cmd.Action == "initialize" {
			return okAck(cmd)
		}
		return nil // swallow everything else
	}
	c, pub, _ := newTestCoordinator(t, silent, Options{
		AckWindow:       30 * time.Millisecond,
		VerifyPollDelay: 10 * time.Millisecond,
		RetryCount:      3,
	})

	err := c.Actuate(context.Background(), "gate-entry", domain.GateOpen)
	if !errors.Is(err, ErrActuationTimeout) {
		t.Fatalf("err = %v, want ErrActuationTimeout", err)
	}

	time.Sleep(50 * time.Millisecond)
	var opens, statusPolls int
	for _, cmd := range pub.published() {
		if cmd.FacilityID != "barrier-entry" {
			continue
		}
		switch cmd.Action {
		case "open":
			opens++
		case "status":
			statusPolls++
		}
	}
	if opens != 1 {
		t.Errorf("open command published %d times, want exactly 1", opens)
	}
	if statusPolls == 0 {
		t.Error("expected a verifying status poll after the timeout")
	}
}

func TestCaptureRetriesTransientFailure(t *testing.T) {
	var attempts int
	var mu sync.Mutex
	flaky := func(cmd domain.DeviceCommandPayload) *domain.DeviceAckEvent {
		if cmd.Action == "initialize" {
			return okAck(cmd)
		}
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		ack := okAck(cmd)
		if n == 1 {
			ack.Status = "error"
			ack.Detail = "sensor glitch"
		}
		return ack
	}
	c, _, _ := newTestCoordinator(t, flaky, Options{
		RetryCount:   2,
		RetryBackoff: 5 * time.Millisecond,
	})

	ref, err := c.Capture(context.Background(), "camera-entry", "sess-1")
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if ref == "" {
		t.Fatal("expected image ref after retry")
	}
	if attempts != 2 {
		t.Errorf("capture attempts = %d, want 2", attempts)
	}
}

func TestConsecutiveFailuresFailFacility(t *testing.T) {
	failing := func(cmd domain.DeviceCommandPayload) *domain.DeviceAckEvent {
		if cmd.Action == "initialize" {
			return okAck(cmd)
		}
		ack := okAck(cmd)
		ack.Status = "error"
		ack.Detail = "paper jam"
		return ack
	}
	c, _, _ := newTestCoordinator(t, failing, Options{
		RetryCount:       0,
		FailureThreshold: 3,
	})

	content := domain.TicketContent{TicketCode: "TKT1", Plate: "B1234XY", LotName: "Lot A", EntryTime: time.Now()}
	for i := 0; i < 3; i++ {
		if err := c.Print(context.Background(), "printer-entry", content); err == nil {
			t.Fatalf("print %d should have failed", i)
		}
	}

	// Third consecutive failure crossed the threshold: the facility now
	// rejects work until re-initialized.
	err := c.Print(context.Background(), "printer-entry", content)
	if !errors.Is(err, ErrHardwareUnavailable) {
		t.Fatalf("err = %v, want ErrHardwareUnavailable", err)
	}

	var printerState domain.FacilityState
	for _, st := range c.Facilities() {
		if st.ID == "printer-entry" {
			printerState = st.State
		}
	}
	if printerState != domain.FacilityFailed {
		t.Fatalf("printer state = %s, want failed", printerState)
	}

	// Re-initialization recovers it.
	c2 := c // same coordinator, publisher flips to healthy
	c2.publisher.(*fakePublisher).respond = okAck
	if err := c2.Initialize(context.Background(), "printer-entry"); err != nil {
		t.Fatalf("Initialize after failure: %v", err)
	}
	if err := c2.Print(context.Background(), "printer-entry", content); err != nil {
		t.Fatalf("Print after re-init: %v", err)
	}
}

func TestDuplicateAckIsDropped(t *testing.T) {
	c, _, _ := newTestCoordinator(t, okAck, Options{})

	// Complete one capture so the facility has an acked seq on record.
	if _, err := c.Capture(context.Background(), "camera-entry", "sess-1"); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	// Replay an ack with an already-seen sequence number; nothing should
	// be waiting and nothing should panic or hang.
	c.ResolveAck(domain.DeviceAckEvent{
		FacilityID: "camera-entry",
		RequestID:  "stale-request",
		Seq:        1,
		Status:     "ok",
	})

	// The facility still works afterwards.
	if _, err := c.Capture(context.Background(), "camera-entry", "sess-2"); err != nil {
		t.Fatalf("Capture after stale ack: %v", err)
	}
}

func TestDistinctFacilitiesDoNotBlockEachOther(t *testing.T) {
	block := make(chan struct{})
	gated := func(cmd domain.DeviceCommandPayload) *domain.DeviceAckEvent {
		if cmd.Action == "initialize" {
			return okAck(cmd)
		}
		if cmd.FacilityID == "camera-entry" {
			<-block // hold the camera ack hostage
		}
		return okAck(cmd)
	}
	c, _, _ := newTestCoordinator(t, gated, Options{CaptureTimeout: 2 * time.Second})

	done := make(chan error, 1)
	go func() {
		_, err := c.Capture(context.Background(), "camera-entry", "sess-1")
		done <- err
	}()

	// While the camera is busy the barrier must still actuate.
	time.Sleep(20 * time.Millisecond)
	if err := c.Actuate(context.Background(), "gate-entry", domain.GateOpen); err != nil {
		t.Fatalf("Actuate while camera busy: %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatalf("Capture: %v", err)
	}
}

func TestUnknownGate(t *testing.T) {
	c, _, _ := newTestCoordinator(t, okAck, Options{})
	err := c.Actuate(context.Background(), "gate-nowhere", domain.GateOpen)
	if !errors.Is(err, ErrUnknownFacility) {
		t.Fatalf("err = %v, want ErrUnknownFacility", err)
	}
}
