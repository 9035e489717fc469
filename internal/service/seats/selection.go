package seats

import (
	"context"
	"log"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
)

type Locker interface {
	AcquireSeatLock(ctx context.Context, flightID, seatID int64, owner string, ttl time.Duration) (bool, error)
	ReleaseSeatLock(ctx context.Context, flightID, seatID int64, owner string) error
}

type SelectInput struct {
	PassengerDocument string `json:"passenger_document"`
	FlightID          int64  `json:"flight_id"`
	SeatID            *int64 `json:"seat_id"`
}

type Progress struct {
	RemainingPerFlight map[int64]int  `json:"remaining_per_flight"`
	AssignedForFlight  map[int64]bool `json:"all_assigned_for_flight"`
	Complete           bool           `json:"all_assigned_for_itinerary"`
}

type Outcome struct {
	FlightID       int64
	SeatID         *int64
	PreviousSeatID *int64
	// Changed is false when the passenger re-selected the seat they already had.
	Changed  bool
	Progress Progress
}

// Selector applies one seat (de)selection to a staged session.
type Selector struct {
	locker  Locker
	holdTTL time.Duration
	now     func() time.Time
}

type SelectorOption func(*Selector)

func WithLocker(l Locker) SelectorOption {
	return func(s *Selector) {
		s.locker = l
	}
}

func WithSelectorClock(now func() time.Time) SelectorOption {
	return func(s *Selector) {
		s.now = now
	}
}

func NewSelector(holdTTL time.Duration, opts ...SelectorOption) *Selector {
	if holdTTL <= 0 {
		holdTTL = domain.DefaultHoldTTL
	}
	s := &Selector{holdTTL: holdTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select validates in against the staged grids and mutates session in place.
// owner identifies the session for the advisory seat locks. The caller persists
// the session.
func (s *Selector) Select(ctx context.Context, session *domain.StagingSession, owner string, in SelectInput) (*Outcome, error) {
	if !session.HasPassenger(in.PassengerDocument) {
		return nil, domain.Validationf("passenger %s is not part of this booking", in.PassengerDocument)
	}
	flight := session.Flight(in.FlightID)
	if flight == nil {
		return nil, domain.Validationf("flight %d is not part of this booking", in.FlightID)
	}

	prev := session.SeatFor(in.PassengerDocument, in.FlightID)
	var target *domain.SeatCell
	if in.SeatID != nil {
		target = flight.SeatMap.Find(*in.SeatID)
		if target == nil {
			return nil, domain.Validationf("seat %d does not exist on flight %d", *in.SeatID, in.FlightID)
		}
		ownSeat := prev != nil && *prev == *in.SeatID
		if target.Status != domain.SeatAvailable && !ownSeat {
			return nil, domain.SeatConflict(in.FlightID, *in.SeatID, flight.SeatMap.Label(*in.SeatID))
		}
		if err := s.lock(ctx, in.FlightID, *in.SeatID, owner, flight.SeatMap.Label(*in.SeatID)); err != nil {
			return nil, err
		}
	}

	changed := !sameSeat(prev, in.SeatID)
	setSelection(session, in)

	now := s.now()
	if prev != nil && changed {
		if cell := flight.SeatMap.Find(*prev); cell != nil && cell.Status == domain.SeatHeld {
			cell.Status = domain.SeatAvailable
		}
		s.unlock(ctx, in.FlightID, *prev, owner)
		removeLock(session, in.FlightID, *prev)
	}
	if target != nil {
		target.Status = domain.SeatHeld
		upsertLock(session, domain.SeatLock{FlightID: in.FlightID, SeatID: target.ID, HeldUntil: now.Add(s.holdTTL)})
	}
	if changed {
		flight.SeatMap.Version++
		flight.SeatMap.UpdatedAt = now
	}

	FillMissing(session)
	return &Outcome{
		FlightID:       in.FlightID,
		SeatID:         in.SeatID,
		PreviousSeatID: prev,
		Changed:        changed,
		Progress:       ComputeProgress(session),
	}, nil
}

func (s *Selector) lock(ctx context.Context, flightID, seatID int64, owner, label string) error {
	if s.locker == nil || owner == "" {
		return nil
	}
	ok, err := s.locker.AcquireSeatLock(ctx, flightID, seatID, owner, s.holdTTL)
	if err != nil {
		log.Printf("[seats] WARNING: seat lock %d/%d not taken: %v", flightID, seatID, err)
		return nil
	}
	if !ok {
		return domain.SeatConflict(flightID, seatID, label)
	}
	return nil
}

func (s *Selector) unlock(ctx context.Context, flightID, seatID int64, owner string) {
	if s.locker == nil || owner == "" {
		return
	}
	if err := s.locker.ReleaseSeatLock(ctx, flightID, seatID, owner); err != nil {
		log.Printf("[seats] WARNING: seat lock %d/%d not released: %v", flightID, seatID, err)
	}
}

func sameSeat(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func setSelection(session *domain.StagingSession, in SelectInput) {
	rows := session.Selections[:0]
	for _, sel := range session.Selections {
		if sel.PassengerDocument == in.PassengerDocument && sel.FlightID == in.FlightID {
			continue
		}
		rows = append(rows, sel)
	}
	var seat *int64
	if in.SeatID != nil {
		id := *in.SeatID
		seat = &id
	}
	session.Selections = append(rows, domain.SelectionRow{
		PassengerDocument: in.PassengerDocument,
		FlightID:          in.FlightID,
		SeatID:            seat,
	})
}

func upsertLock(session *domain.StagingSession, lock domain.SeatLock) {
	for i := range session.Locks {
		if session.Locks[i].FlightID == lock.FlightID && session.Locks[i].SeatID == lock.SeatID {
			session.Locks[i] = lock
			return
		}
	}
	session.Locks = append(session.Locks, lock)
	sortLocks(session.Locks)
}

func removeLock(session *domain.StagingSession, flightID, seatID int64) {
	locks := session.Locks[:0]
	for _, l := range session.Locks {
		if l.FlightID == flightID && l.SeatID == seatID {
			continue
		}
		locks = append(locks, l)
	}
	session.Locks = locks
}

// FillMissing adds a null selection for every passenger and flight pair that has none.
func FillMissing(session *domain.StagingSession) {
	seen := make(map[string]map[int64]bool)
	for _, sel := range session.Selections {
		if seen[sel.PassengerDocument] == nil {
			seen[sel.PassengerDocument] = make(map[int64]bool)
		}
		seen[sel.PassengerDocument][sel.FlightID] = true
	}
	for _, doc := range session.PassengerDocuments() {
		for _, f := range session.Flights {
			if !seen[doc][f.ID] {
				session.Selections = append(session.Selections, domain.SelectionRow{PassengerDocument: doc, FlightID: f.ID})
			}
		}
	}
}

// ComputeProgress counts assigned seats per staged flight.
func ComputeProgress(session *domain.StagingSession) Progress {
	FillMissing(session)
	total := len(session.PassengerDocuments())
	p := Progress{
		RemainingPerFlight: make(map[int64]int, len(session.Flights)),
		AssignedForFlight:  make(map[int64]bool, len(session.Flights)),
		Complete:           len(session.Flights) > 0,
	}
	for _, f := range session.Flights {
		assigned := 0
		for _, sel := range session.Selections {
			if sel.FlightID == f.ID && sel.SeatID != nil && session.HasPassenger(sel.PassengerDocument) {
				assigned++
			}
		}
		remaining := max(0, total-assigned)
		p.RemainingPerFlight[f.ID] = remaining
		p.AssignedForFlight[f.ID] = remaining == 0
		if remaining > 0 {
			p.Complete = false
		}
	}
	return p
}
