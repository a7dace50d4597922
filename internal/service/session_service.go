package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"

	"github.com/idiarso/linux-park-sub001/internal/config"
	"github.com/idiarso/linux-park-sub001/internal/domain"
	"github.com/idiarso/linux-park-sub001/internal/rate"
	"github.com/idiarso/linux-park-sub001/internal/repository"
)

// HardwareGateway is the slice of the hardware coordinator the session
// flow needs. Kept as an interface so tests run against a fake.
type HardwareGateway interface {
	Capture(ctx context.Context, facilityID, sessionHint string) (string, error)
	Actuate(ctx context.Context, gateID string, command domain.GateCommand) error
	Print(ctx context.Context, facilityID string, content domain.TicketContent) error
}

// SessionBroadcaster fans session transitions out to dashboards.
type SessionBroadcaster interface {
	BroadcastSessionEvent(event domain.SessionStateChanged)
}

// ScheduleResolver resolves the tariff in effect for a class at an instant.
type ScheduleResolver interface {
	ActiveFor(ctx context.Context, class domain.VehicleClass, at time.Time) (*domain.RateSchedule, error)
}

// SessionService drives the per-vehicle lifecycle: entry, exit, payment,
// completion. It is the only component that mutates session rows and space
// occupancy; hardware access goes through the gateway, never directly.
type SessionService struct {
	sessions  repository.ParkingSessionRepository
	spaces    repository.ParkingSpaceRepository
	schedules ScheduleResolver
	hw        HardwareGateway
	events    SessionBroadcaster
	cfg       *config.Config

	plateLocks   *keyedMutex
	sessionLocks *keyedMutex

	now func() time.Time // swapped in tests
}

func NewSessionService(
	sessions repository.ParkingSessionRepository,
	spaces repository.ParkingSpaceRepository,
	schedules ScheduleResolver,
	hw HardwareGateway,
	events SessionBroadcaster,
	cfg *config.Config,
) *SessionService {
	return &SessionService{
		sessions:     sessions,
		spaces:       spaces,
		schedules:    schedules,
		hw:           hw,
		events:       events,
		cfg:          cfg,
		plateLocks:   newKeyedMutex(),
		sessionLocks: newKeyedMutex(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RequestEntry runs the full entry flow for one vehicle: duplicate check,
// space reservation, ticket issuance, image capture, ticket print, gate
// actuation, persistence. The session is persisted as active only after
// every step succeeded; any failure after the reservation rolls the space
// back so it cannot leak.
//
// The plate lock is held for the whole flow. It only serializes requests
// for the same plate, which cannot legitimately be at two lanes at once,
// so hardware waits under it are harmless.
func (s *SessionService) RequestEntry(ctx context.Context, dto domain.EntryRequestDTO) (*domain.ParkingSession, error) {
	plate := domain.NormalizePlate(dto.Plate)
	if plate == "" {
		return nil, ErrInvalidPlate
	}
	if !dto.VehicleClass.Valid() {
		return nil, ErrInvalidVehicleClass
	}

	s.plateLocks.lock(plate)
	defer s.plateLocks.unlock(plate)

	hasActive, err := s.sessions.HasActiveSession(ctx, plate)
	if err != nil {
		return nil, fmt.Errorf("checking active session for %s: %w", plate, err)
	}
	if hasActive {
		return nil, repository.ErrDuplicateActiveSession
	}

	now := s.now()
	session := &domain.ParkingSession{
		ID:            uuid.NewString(),
		Plate:         plate,
		VehicleClass:  dto.VehicleClass,
		EntryTime:     now,
		Status:        domain.SessionRequested,
		PaymentStatus: domain.PaymentPending,
	}
	s.announce(session, domain.SessionAllocating)

	space, err := s.spaces.ReserveFirstAvailable(ctx, session.VehicleClass, "entry:"+session.ID)
	if err != nil {
		s.announce(session, domain.SessionRejected)
		return nil, err
	}
	session.SpaceID = null.IntFrom(int64(space.ID))

	reject := func(cause error) (*domain.ParkingSession, error) {
		if relErr := s.spaces.Release(ctx, space.ID, "entry_rollback:"+session.ID); relErr != nil {
			log.Printf("SessionService: rollback of space %d failed: %v", space.ID, relErr)
		}
		s.announce(session, domain.SessionRejected)
		return nil, cause
	}

	ticketCode, err := s.generateTicketCode(ctx, now)
	if err != nil {
		return reject(err)
	}
	session.TicketCode = ticketCode

	// Capture and print ride different facility slots, so they run in
	// parallel. The gate only opens after both finished, because the
	// printed ticket must exist before the vehicle is let in.
	var imageRef string
	var captureErr, printErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		printErr = s.hw.Print(ctx, s.cfg.EntryPrinterID, domain.TicketContent{
			TicketCode: ticketCode,
			Plate:      plate,
			LotName:    s.cfg.LotName,
			EntryTime:  now,
		})
	}()
	imageRef, captureErr = s.hw.Capture(ctx, s.cfg.EntryCameraID, session.ID)
	<-done

	if captureErr != nil {
		return reject(fmt.Errorf("entry capture: %w", captureErr))
	}
	if printErr != nil {
		return reject(fmt.Errorf("ticket print: %w", printErr))
	}
	session.EntryImageRef = null.StringFrom(imageRef)

	if err := s.hw.Actuate(ctx, s.cfg.EntryGateID, domain.GateOpen); err != nil {
		return reject(fmt.Errorf("entry gate: %w", err))
	}

	session.Status = domain.SessionActive
	if err := s.sessions.Create(ctx, session); err != nil {
		// The gate already opened; the vehicle may be inside without a
		// record. Roll the space back and leave a loud trail.
		log.Printf("SessionService: PERSISTENCE FAILED after gate open, plate %s ticket %s: %v", plate, ticketCode, err)
		session.Status = domain.SessionAllocating
		return reject(fmt.Errorf("persisting session: %w", err))
	}

	s.broadcast(session, domain.SessionAllocating, domain.SessionActive)
	log.Printf("SessionService: plate %s masuk, tiket %s, space %s", plate, ticketCode, space.SpaceIdentifier)
	return session, nil
}

// RequestExit turns a presented ticket into a fee quote and moves the
// session to awaiting_payment. An unknown ticket mutates nothing. A missing
// tariff leaves the session parked in exit_pending for an operator.
func (s *SessionService) RequestExit(ctx context.Context, dto domain.ExitRequestDTO) (*domain.FeeQuote, error) {
	code := strings.ToUpper(strings.TrimSpace(dto.TicketCode))
	found, err := s.sessions.FindByTicketCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidTicket
		}
		return nil, err
	}

	s.sessionLocks.lock(found.ID)
	defer s.sessionLocks.unlock(found.ID)

	// Re-read under the lock; another lane may have advanced it.
	session, err := s.sessions.FindByID(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, ErrAlreadyCompleted
	}

	switch session.Status {
	case domain.SessionActive:
		prev := session.Status
		session.Status = domain.SessionExitPending
		session.ExitTime = null.TimeFrom(s.now())
		if err := s.sessions.Update(ctx, session); err != nil {
			return nil, err
		}
		s.broadcast(session, prev, session.Status)
		return s.priceExit(ctx, session)
	case domain.SessionExitPending:
		// Operator may have fixed the tariff since the last attempt.
		return s.priceExit(ctx, session)
	case domain.SessionAwaitingPayment:
		return s.quoteFrom(session), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrWrongSessionState, session.Status)
	}
}

// priceExit resolves the tariff active at entry time, computes the fee and
// advances the session to awaiting_payment.
func (s *SessionService) priceExit(ctx context.Context, session *domain.ParkingSession) (*domain.FeeQuote, error) {
	schedule, err := s.schedules.ActiveFor(ctx, session.VehicleClass, session.EntryTime)
	if err != nil {
		// Held in exit_pending until an operator sorts the schedule out.
		return nil, err
	}

	result, err := rate.Compute(session.EntryTime, session.ExitTime.Time, toRateSchedule(schedule))
	if err != nil {
		return nil, err
	}

	prev := session.Status
	session.Status = domain.SessionAwaitingPayment
	session.Fee = null.IntFrom(result.Amount)
	session.RateScheduleID = null.IntFrom(int64(schedule.ID))
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	s.broadcast(session, prev, session.Status)

	quote := s.quoteFrom(session)
	quote.BilledHours = result.BilledHours
	quote.PenaltyApplied = result.PenaltyApplied
	return quote, nil
}

func (s *SessionService) quoteFrom(session *domain.ParkingSession) *domain.FeeQuote {
	quote := &domain.FeeQuote{
		SessionID:      session.ID,
		TicketCode:     session.TicketCode,
		Plate:          session.Plate,
		EntryTime:      session.EntryTime,
		ExitTime:       session.ExitTime.Time,
		Amount:         session.Fee.Int64,
		RateScheduleID: session.RateScheduleID.Int64,
	}
	return quote
}

// ConfirmPayment verifies the tendered amount, opens the exit gate and
// completes the session. The space is freed only at the completed
// transition, never earlier: a vehicle that paid but has not physically
// left still holds its space.
func (s *SessionService) ConfirmPayment(ctx context.Context, sessionID string, dto domain.PaymentDTO) (*domain.ParkingSession, error) {
	s.sessionLocks.lock(sessionID)
	defer s.sessionLocks.unlock(sessionID)

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, ErrAlreadyCompleted
	}
	if session.Status != domain.SessionAwaitingPayment {
		return nil, fmt.Errorf("%w: %s", ErrWrongSessionState, session.Status)
	}
	if !session.Fee.Valid || dto.Amount != session.Fee.Int64 {
		return nil, ErrPaymentMismatch
	}

	prev := session.Status
	session.Status = domain.SessionCompleting
	session.PaymentMethod = null.StringFrom(dto.Method)
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	s.broadcast(session, prev, session.Status)

	if err := s.hw.Actuate(ctx, s.cfg.ExitGateID, domain.GateOpen); err != nil {
		// Stays in completing; an operator overrides via ForceComplete
		// once the barrier is confirmed open.
		log.Printf("SessionService: exit gate for session %s: %v", sessionID, err)
		return nil, fmt.Errorf("exit gate: %w", err)
	}

	return s.complete(ctx, session, domain.PaymentPaid)
}

// ForceComplete is the operator override for a session stuck after an
// unacknowledged exit actuation, or a manual waiver.
func (s *SessionService) ForceComplete(ctx context.Context, sessionID string, operator string) (*domain.ParkingSession, error) {
	s.sessionLocks.lock(sessionID)
	defer s.sessionLocks.unlock(sessionID)

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, ErrAlreadyCompleted
	}
	switch session.Status {
	case domain.SessionCompleting, domain.SessionAwaitingPayment, domain.SessionExitPending:
	default:
		return nil, fmt.Errorf("%w: %s", ErrWrongSessionState, session.Status)
	}

	paymentStatus := domain.PaymentWaived
	if session.PaymentMethod.Valid {
		paymentStatus = domain.PaymentPaid
	}
	log.Printf("SessionService: operator %s force-completing session %s from %s", operator, sessionID, session.Status)
	return s.complete(ctx, session, paymentStatus)
}

func (s *SessionService) complete(ctx context.Context, session *domain.ParkingSession, paymentStatus string) (*domain.ParkingSession, error) {
	prev := session.Status
	session.Status = domain.SessionCompleted
	session.PaymentStatus = paymentStatus
	if !session.ExitTime.Valid {
		session.ExitTime = null.TimeFrom(s.now())
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	if session.SpaceID.Valid {
		if err := s.spaces.Release(ctx, int(session.SpaceID.Int64), "exit:"+session.ID); err != nil {
			log.Printf("SessionService: releasing space %d for session %s: %v", session.SpaceID.Int64, session.ID, err)
		}
	}
	s.broadcast(session, prev, domain.SessionCompleted)
	return session, nil
}

// Cancel aborts a non-terminal session and releases its space.
func (s *SessionService) Cancel(ctx context.Context, sessionID string, reason string) (*domain.ParkingSession, error) {
	s.sessionLocks.lock(sessionID)
	defer s.sessionLocks.unlock(sessionID)

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, ErrAlreadyCompleted
	}

	prev := session.Status
	session.Status = domain.SessionCancelled
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	if session.SpaceID.Valid {
		if err := s.spaces.Release(ctx, int(session.SpaceID.Int64), "cancel:"+session.ID); err != nil {
			log.Printf("SessionService: releasing space %d on cancel: %v", session.SpaceID.Int64, err)
		}
	}
	log.Printf("SessionService: session %s cancelled (%s)", sessionID, reason)
	s.broadcast(session, prev, domain.SessionCancelled)
	return session, nil
}

// CancelExpired sweeps sessions stuck mid-transition longer than the
// configured timeout. Runs on a ticker from main.
func (s *SessionService) CancelExpired(ctx context.Context) {
	cutoff := s.now().Add(-s.cfg.StuckSessionTimeout)
	stuck, err := s.sessions.FindStuck(ctx, []domain.SessionStatus{domain.SessionAllocating, domain.SessionCompleting}, cutoff)
	if err != nil {
		log.Printf("SessionService: stuck-session scan failed: %v", err)
		return
	}
	for i := range stuck {
		if _, err := s.Cancel(ctx, stuck[i].ID, "stuck past timeout"); err != nil {
			log.Printf("SessionService: sweeping session %s: %v", stuck[i].ID, err)
		}
	}
}

func (s *SessionService) Get(ctx context.Context, id string) (*domain.ParkingSession, error) {
	return s.sessions.FindByID(ctx, id)
}

func (s *SessionService) List(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.ParkingSession, error) {
	return s.sessions.Find(ctx, filter)
}

// generateTicketCode builds TKT + timestamp + 4 random digits, re-rolling
// on the rare collision.
func (s *SessionService) generateTicketCode(ctx context.Context, now time.Time) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code := fmt.Sprintf("TKT%s%04d", now.Format("20060102150405"), rand.Intn(10000))
		exists, err := s.sessions.TicketCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("checking ticket code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique ticket code")
}

// announce advances the in-memory status and broadcasts the transition.
func (s *SessionService) announce(session *domain.ParkingSession, next domain.SessionStatus) {
	prev := session.Status
	session.Status = next
	s.broadcast(session, prev, next)
}

func (s *SessionService) broadcast(session *domain.ParkingSession, prev, next domain.SessionStatus) {
	if s.events == nil {
		return
	}
	s.events.BroadcastSessionEvent(domain.SessionStateChanged{
		Type:          "session_state_changed",
		SessionID:     session.ID,
		Plate:         session.Plate,
		TicketCode:    session.TicketCode,
		SpaceID:       session.SpaceID.Int64,
		PreviousState: prev,
		NewState:      next,
		Timestamp:     s.now(),
	})
}

func toRateSchedule(schedule *domain.RateSchedule) rate.Schedule {
	return rate.Schedule{
		BaseRate:            schedule.BaseRate,
		HourlyRate:          schedule.HourlyRate,
		AdditionalHourRate:  schedule.AdditionalHourRate,
		AdditionalHourAfter: schedule.AdditionalHourAfter,
		DailyCap:            schedule.DailyCap,
		WeeklyRate:          schedule.WeeklyRate,
		MonthlyRate:         schedule.MonthlyRate,
		PenaltyRate:         schedule.PenaltyRate,
		MaxStayHours:        schedule.MaxStayHours,
	}
}
