package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/idiarso/linux-park-sub001/internal/config"
	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/hardware"
	"github.com/idiarso/linux-park-sub001/internal/repository"
)

// ---- in-memory fakes ----

type memSessionRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.ParkingSession
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byID: make(map[string]*domain.ParkingSession)}
}

func (r *memSessionRepo) Create(_ context.Context, s *domain.ParkingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	r.byID[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) Update(_ context.Context, s *domain.ParkingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *s
	cp.UpdatedAt = time.Now().UTC()
	r.byID[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, id string) (*domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) FindByTicketCode(_ context.Context, code string) (*domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.TicketCode == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memSessionRepo) HasActiveSession(_ context.Context, plate string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.Plate == plate && !s.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSessionRepo) TicketCodeExists(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if s.TicketCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *memSessionRepo) Find(_ context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ParkingSession
	for _, s := range r.byID {
		if filter.Status != nil && string(s.Status) != *filter.Status {
			continue
		}
		if filter.Plate != nil && s.Plate != *filter.Plate {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *memSessionRepo) FindStuck(_ context.Context, statuses []domain.SessionStatus, cutoff time.Time) ([]domain.ParkingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ParkingSession
	for _, s := range r.byID {
		for _, st := range statuses {
			if s.Status == st && s.UpdatedAt.Before(cutoff) {
				out = append(out, *s)
			}
		}
	}
	return out, nil
}

func (r *memSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type memSpaceRepo struct {
	mu     sync.Mutex
	spaces []*domain.ParkingSpace
}

func newMemSpaceRepo(spaces ...*domain.ParkingSpace) *memSpaceRepo {
	return &memSpaceRepo{spaces: spaces}
}

func (r *memSpaceRepo) Create(_ context.Context, s *domain.ParkingSpace) (*domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = len(r.spaces) + 1
	r.spaces = append(r.spaces, s)
	return s, nil
}

func (r *memSpaceRepo) FindByID(_ context.Context, id int) (*domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.spaces {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memSpaceRepo) FindAll(_ context.Context) ([]domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ParkingSpace, 0, len(r.spaces))
	for _, s := range r.spaces {
		out = append(out, *s)
	}
	return out, nil
}

func (r *memSpaceRepo) ReserveFirstAvailable(_ context.Context, class domain.VehicleClass, source string) (*domain.ParkingSpace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.spaces {
		if s.Active && !s.Occupied && s.VehicleClass == class {
			s.Occupied = true
			s.LastChangeSource = source
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNoSpaceAvailable
}

func (r *memSpaceRepo) Release(_ context.Context, id int, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.spaces {
		if s.ID == id {
			s.Occupied = false
			s.LastChangeSource = source
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memSpaceRepo) SetActive(_ context.Context, id int, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.spaces {
		if s.ID == id {
			s.Active = active
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memSpaceRepo) occupiedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.spaces {
		if s.Occupied {
			n++
		}
	}
	return n
}

// fakeHW scripts hardware outcomes per operation.
type fakeHW struct {
	mu          sync.Mutex
	captureErr  error
	printErr    error
	actuateErr  error
	actuations  []string
	printedFor  []string
	capturedFor []string
}

func (h *fakeHW) Capture(_ context.Context, _ string, hint string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.captureErr != nil {
		return "", h.captureErr
	}
	h.capturedFor = append(h.capturedFor, hint)
	return "img-" + hint, nil
}

func (h *fakeHW) Actuate(_ context.Context, gateID string, command domain.GateCommand) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.actuateErr != nil {
		return h.actuateErr
	}
	h.actuations = append(h.actuations, gateID+":"+string(command))
	return nil
}

func (h *fakeHW) Print(_ context.Context, _ string, content domain.TicketContent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.printErr != nil {
		return h.printErr
	}
	h.printedFor = append(h.printedFor, content.TicketCode)
	return nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.SessionStateChanged
}

func (b *recordingBroadcaster) BroadcastSessionEvent(event domain.SessionStateChanged) {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
}

type staticResolver struct {
	schedule *domain.RateSchedule
	err      error
}

func (r *staticResolver) ActiveFor(_ context.Context, _ domain.VehicleClass, _ time.Time) (*domain.RateSchedule, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.schedule, nil
}

// ---- test setup ----

func testConfig() *config.Config {
	return &config.Config{
		LotName:             "PARKIR LINUX PARK",
		EntryCameraID:       "camera-entry",
		EntryPrinterID:      "printer-entry",
		EntryGateID:         "gate-entry",
		ExitGateID:          "gate-exit",
		StuckSessionTimeout: 15 * time.Minute,
	}
}

func carSpace(id int) *domain.ParkingSpace {
	return &domain.ParkingSpace{
		ID:              id,
		SpaceIdentifier: fmt.Sprintf("A-%02d", id),
		VehicleClass:    domain.ClassCar,
		Active:          true,
	}
}

func defaultSchedule() *domain.RateSchedule {
	return &domain.RateSchedule{
		ID:            1,
		VehicleClass:  domain.ClassCar,
		BaseRate:      5000,
		HourlyRate:    5000,
		EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:        true,
	}
}

func newTestService(sessions *memSessionRepo, spaces *memSpaceRepo, hw *fakeHW, resolver ScheduleResolver) *SessionService {
	svc := NewSessionService(sessions, spaces, resolver, hw, &recordingBroadcaster{}, testConfig())
	return svc
}

// ---- tests ----

func TestEntryExitPaymentHappyPath(t *testing.T) {
	sessions := newMemSessionRepo()
	spaces := newMemSpaceRepo(carSpace(1), carSpace(2))
	hw := &fakeHW{}
	svc := newTestService(sessions, spaces, hw, &staticResolver{schedule: defaultSchedule()})

	entryAt := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return entryAt }

	session, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "b 1234 xy", VehicleClass: domain.ClassCar,
	})
	if err != nil {
		t.Fatalf("RequestEntry: %v", err)
	}
	if session.Status != domain.SessionActive {
		t.Fatalf("status = %s, want active", session.Status)
	}
	if session.Plate != "B1234XY" {
		t.Errorf("plate = %s, want B1234XY", session.Plate)
	}
	if !session.SpaceID.Valid || session.SpaceID.Int64 != 1 {
		t.Errorf("space id = %v, want 1 (lowest id wins)", session.SpaceID)
	}
	if spaces.occupiedCount() != 1 {
		t.Errorf("occupied spaces = %d, want 1", spaces.occupiedCount())
	}
	if len(hw.actuations) != 1 || hw.actuations[0] != "gate-entry:open" {
		t.Errorf("actuations = %v, want [gate-entry:open]", hw.actuations)
	}

	// Exit 1h05m later: 2 billed hours, base covers the first.
	svc.now = func() time.Time { return entryAt.Add(65 * time.Minute) }
	quote, err := svc.RequestExit(context.Background(), domain.ExitRequestDTO{TicketCode: session.TicketCode})
	if err != nil {
		t.Fatalf("RequestExit: %v", err)
	}
	if quote.Amount != 10000 {
		t.Errorf("fee = %d, want 10000", quote.Amount)
	}
	if quote.BilledHours != 2 {
		t.Errorf("billed hours = %d, want 2", quote.BilledHours)
	}

	// Wrong amount is refused without advancing the session.
	if _, err := svc.ConfirmPayment(context.Background(), session.ID, domain.PaymentDTO{Amount: 5000, Method: "cash"}); !errors.Is(err, ErrPaymentMismatch) {
		t.Fatalf("err = %v, want ErrPaymentMismatch", err)
	}

	completed, err := svc.ConfirmPayment(context.Background(), session.ID, domain.PaymentDTO{Amount: 10000, Method: "cash"})
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if completed.Status != domain.SessionCompleted {
		t.Errorf("status = %s, want completed", completed.Status)
	}
	if completed.PaymentStatus != domain.PaymentPaid {
		t.Errorf("payment status = %s, want paid", completed.PaymentStatus)
	}
	if spaces.occupiedCount() != 0 {
		t.Error("space not released at completion")
	}

	// Re-presenting the ticket after completion is rejected.
	if _, err := svc.RequestExit(context.Background(), domain.ExitRequestDTO{TicketCode: session.TicketCode}); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestConcurrentSamePlateEntrySingleWinner(t *testing.T) {
	sessions := newMemSessionRepo()
	spaces := newMemSpaceRepo(carSpace(1), carSpace(2))
	hw := &fakeHW{}
	svc := newTestService(sessions, spaces, hw, &staticResolver{schedule: defaultSchedule()})

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
				Plate: "B 9999 ZZ", VehicleClass: domain.ClassCar,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, dups int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, repository.ErrDuplicateActiveSession):
			dups++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want exactly 1", wins)
	}
	if dups != racers-1 {
		t.Errorf("duplicate rejections = %d, want %d", dups, racers-1)
	}
	if spaces.occupiedCount() != 1 {
		t.Errorf("occupied spaces = %d, want 1", spaces.occupiedCount())
	}
}

func TestEntryActuationTimeoutRollsBack(t *testing.T) {
	sessions := newMemSessionRepo()
	spaces := newMemSpaceRepo(carSpace(1))
	hw := &fakeHW{actuateErr: hardware.ErrActuationTimeout}
	svc := newTestService(sessions, spaces, hw, &staticResolver{schedule: defaultSchedule()})

	_, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "B1111AA", VehicleClass: domain.ClassCar,
	})
	if !errors.Is(err, hardware.ErrActuationTimeout) {
		t.Fatalf("err = %v, want ErrActuationTimeout", err)
	}
	if spaces.occupiedCount() != 0 {
		t.Error("space reservation not rolled back after gate timeout")
	}
	if sessions.count() != 0 {
		t.Error("session persisted despite failed entry")
	}
	// The issued ticket code must not resolve to anything.
	for _, code := range hw.printedFor {
		if _, err := svc.RequestExit(context.Background(), domain.ExitRequestDTO{TicketCode: code}); !errors.Is(err, ErrInvalidTicket) {
			t.Errorf("ticket %s from a failed entry resolved, want ErrInvalidTicket", code)
		}
	}
}

func TestEntryCaptureFailureRollsBack(t *testing.T) {
	sessions := newMemSessionRepo()
	spaces := newMemSpaceRepo(carSpace(1))
	hw := &fakeHW{captureErr: hardware.ErrCaptureFailed}
	svc := newTestService(sessions, spaces, hw, &staticResolver{schedule: defaultSchedule()})

	_, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "B2222BB", VehicleClass: domain.ClassCar,
	})
	if !errors.Is(err, hardware.ErrCaptureFailed) {
		t.Fatalf("err = %v, want ErrCaptureFailed", err)
	}
	if spaces.occupiedCount() != 0 {
		t.Error("space reservation not rolled back after capture failure")
	}
	if len(hw.actuations) != 0 {
		t.Error("gate actuated despite failed capture")
	}
}

func TestExitUnknownTicketMutatesNothing(t *testing.T) {
	sessions := newMemSessionRepo()
	spaces := newMemSpaceRepo(carSpace(1))
	hw := &fakeHW{}
	svc := newTestService(sessions, spaces, hw, &staticResolver{schedule: defaultSchedule()})

	if _, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "B3333CC", VehicleClass: domain.ClassCar,
	}); err != nil {
		t.Fatalf("RequestEntry: %v", err)
	}
	before := spaces.occupiedCount()

	_, err := svc.RequestExit(context.Background(), domain.ExitRequestDTO{TicketCode: "TKT00000000000000000"})
	if !errors.Is(err, ErrInvalidTicket) {
		t.Fatalf("err = %v, want ErrInvalidTicket", err)
	}
	if spaces.occupiedCount() != before {
		t.Error("unknown ticket changed space occupancy")
	}
	list, _ := sessions.Find(context.Background(), domain.SessionFilterDTO{})
	for _, s := range list {
		if s.Status != domain.SessionActive {
			t.Errorf("session %s moved to %s on unknown ticket", s.ID, s.Status)
		}
	}
}

func TestNoSpaceAvailable(t *testing.T) {
	sessions := newMemSessionRepo()
	spaces := newMemSpaceRepo(carSpace(1))
	hw := &fakeHW{}
	svc := newTestService(sessions, spaces, hw, &staticResolver{schedule: defaultSchedule()})

	if _, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "B4444DD", VehicleClass: domain.ClassCar,
	}); err != nil {
		t.Fatalf("first entry: %v", err)
	}
	_, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "B5555EE", VehicleClass: domain.ClassCar,
	})
	if !errors.Is(err, repository.ErrNoSpaceAvailable) {
		t.Fatalf("err = %v, want ErrNoSpaceAvailable", err)
	}
}

func TestMissingScheduleHoldsExitPending(t *testing.T) {
	sessions := newMemSessionRepo()
	spaces := newMemSpaceRepo(carSpace(1))
	hw := &fakeHW{}
	resolver := &staticResolver{err: repository.ErrNoActiveSchedule}
	svc := newTestService(sessions, spaces, hw, resolver)

	session, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "B6666FF", VehicleClass: domain.ClassCar,
	})
	if err != nil {
		t.Fatalf("RequestEntry: %v", err)
	}

	_, err = svc.RequestExit(context.Background(), domain.ExitRequestDTO{TicketCode: session.TicketCode})
	if !errors.Is(err, repository.ErrNoActiveSchedule) {
		t.Fatalf("err = %v, want ErrNoActiveSchedule", err)
	}
	held, _ := sessions.FindByID(context.Background(), session.ID)
	if held.Status != domain.SessionExitPending {
		t.Fatalf("status = %s, want exit_pending", held.Status)
	}

	// Operator fixes the tariff; the next scan prices the exit.
	resolver.err = nil
	resolver.schedule = defaultSchedule()
	quote, err := svc.RequestExit(context.Background(), domain.ExitRequestDTO{TicketCode: session.TicketCode})
	if err != nil {
		t.Fatalf("RequestExit after fix: %v", err)
	}
	if quote.Amount == 0 {
		t.Error("expected a non-zero fee after schedule fix")
	}
}

func TestCancelReleasesSpace(t *testing.T) {
	sessions := newMemSessionRepo()
	spaces := newMemSpaceRepo(carSpace(1))
	hw := &fakeHW{}
	svc := newTestService(sessions, spaces, hw, &staticResolver{schedule: defaultSchedule()})

	session, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "B7777GG", VehicleClass: domain.ClassCar,
	})
	if err != nil {
		t.Fatalf("RequestEntry: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), session.ID, "test")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != domain.SessionCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if spaces.occupiedCount() != 0 {
		t.Error("space not released on cancel")
	}
	if _, err := svc.Cancel(context.Background(), session.ID, "again"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("second cancel err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestConcurrentDistinctPlatesNoDoubleAssignment(t *testing.T) {
	sessions := newMemSessionRepo()
	spaces := newMemSpaceRepo(carSpace(1), carSpace(2), carSpace(3))
	hw := &fakeHW{}
	svc := newTestService(sessions, spaces, hw, &staticResolver{schedule: defaultSchedule()})

	const racers = 6
	var wg sync.WaitGroup
	assigned := make(chan int64, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
				Plate: fmt.Sprintf("B%04dXX", i), VehicleClass: domain.ClassCar,
			})
			if err == nil {
				assigned <- session.SpaceID.Int64
			} else if !errors.Is(err, repository.ErrNoSpaceAvailable) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	close(assigned)

	seen := make(map[int64]bool)
	for id := range assigned {
		if seen[id] {
			t.Fatalf("space %d assigned twice", id)
		}
		seen[id] = true
	}
	if len(seen) != 3 {
		t.Errorf("spaces assigned = %d, want 3", len(seen))
	}
}

func TestForceCompleteAfterStuckActuation(t *testing.T) {
	sessions := newMemSessionRepo()
	spaces := newMemSpaceRepo(carSpace(1))
	hw := &fakeHW{}
	svc := newTestService(sessions, spaces, hw, &staticResolver{schedule: defaultSchedule()})

	session, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "B8888HH", VehicleClass: domain.ClassCar,
	})
	if err != nil {
		t.Fatalf("RequestEntry: %v", err)
	}
	if _, err := svc.RequestExit(context.Background(), domain.ExitRequestDTO{TicketCode: session.TicketCode}); err != nil {
		t.Fatalf("RequestExit: %v", err)
	}

	// Exit barrier stops acknowledging mid-payment.
	hw.mu.Lock()
	hw.actuateErr = hardware.ErrActuationTimeout
	hw.mu.Unlock()

	stored, _ := sessions.FindByID(context.Background(), session.ID)
	if _, err := svc.ConfirmPayment(context.Background(), session.ID, domain.PaymentDTO{Amount: stored.Fee.Int64, Method: "cash"}); !errors.Is(err, hardware.ErrActuationTimeout) {
		t.Fatalf("err = %v, want ErrActuationTimeout", err)
	}
	stuck, _ := sessions.FindByID(context.Background(), session.ID)
	if stuck.Status != domain.SessionCompleting {
		t.Fatalf("status = %s, want completing", stuck.Status)
	}
	if spaces.occupiedCount() != 1 {
		t.Error("space released before completion")
	}

	completed, err := svc.ForceComplete(context.Background(), session.ID, "op-1")
	if err != nil {
		t.Fatalf("ForceComplete: %v", err)
	}
	if completed.Status != domain.SessionCompleted {
		t.Errorf("status = %s, want completed", completed.Status)
	}
	if completed.PaymentStatus != domain.PaymentPaid {
		t.Errorf("payment status = %s, want paid (method was recorded)", completed.PaymentStatus)
	}
	if spaces.occupiedCount() != 0 {
		t.Error("space not released on force complete")
	}
}

func TestCancelExpiredSweepsStuckSessions(t *testing.T) {
	sessions := newMemSessionRepo()
	spaces := newMemSpaceRepo(carSpace(1))
	hw := &fakeHW{}
	svc := newTestService(sessions, spaces, hw, &staticResolver{schedule: defaultSchedule()})

	session, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "B1212JJ", VehicleClass: domain.ClassCar,
	})
	if err != nil {
		t.Fatalf("RequestEntry: %v", err)
	}

	// Strand the session in completing well past the timeout.
	sessions.mu.Lock()
	stuck := sessions.byID[session.ID]
	stuck.Status = domain.SessionCompleting
	stuck.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	sessions.mu.Unlock()

	svc.CancelExpired(context.Background())

	swept, _ := sessions.FindByID(context.Background(), session.ID)
	if swept.Status != domain.SessionCancelled {
		t.Fatalf("status = %s, want cancelled", swept.Status)
	}
	if spaces.occupiedCount() != 0 {
		t.Error("space not released by the sweep")
	}
}

func TestTicketCodeFormat(t *testing.T) {
	sessions := newMemSessionRepo()
	spaces := newMemSpaceRepo(carSpace(1))
	hw := &fakeHW{}
	svc := newTestService(sessions, spaces, hw, &staticResolver{schedule: defaultSchedule()})

	session, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{
		Plate: "B0001AB", VehicleClass: domain.ClassCar,
	})
	if err != nil {
		t.Fatalf("RequestEntry: %v", err)
	}
	pattern := regexp.MustCompile(`^TKT\d{18}$`)
	if !pattern.MatchString(session.TicketCode) {
		t.Errorf("ticket code %q does not match TKT + timestamp + 4 digits", session.TicketCode)
	}
}

func TestEntryValidation(t *testing.T) {
	svc := newTestService(newMemSessionRepo(), newMemSpaceRepo(), &fakeHW{}, &staticResolver{schedule: defaultSchedule()})

	if _, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{Plate: "   ", VehicleClass: domain.ClassCar}); !errors.Is(err, ErrInvalidPlate) {
		t.Errorf("err = %v, want ErrInvalidPlate", err)
	}
	if _, err := svc.RequestEntry(context.Background(), domain.EntryRequestDTO{Plate: "B1C", VehicleClass: "tank"}); !errors.Is(err, ErrInvalidVehicleClass) {
		t.Errorf("err = %v, want ErrInvalidVehicleClass", err)
	}
}
