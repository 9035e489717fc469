package seats

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
)

var Legend = map[domain.SeatStatus]string{
	domain.SeatAvailable: "Available",
	domain.SeatHeld:      "Held",
	domain.SeatConfirmed: "Taken",
}

type SeatCatalog interface {
	ListByAirplane(ctx context.Context, airplaneID int64) ([]domain.Seat, error)
	SegmentStates(ctx context.Context, flightIDs []int64) ([]domain.SegmentState, error)
}

// LockLister reports the advisory locks other sessions hold.
type LockLister interface {
	SeatLocks(ctx context.Context, flightID int64) ([]domain.SeatLock, error)
}

// StatusSets is the durable occupancy of a set of flights.
type StatusSets struct {
	Confirmed map[int64]map[int64]bool
	Held      map[int64]map[int64]time.Time
}

func (s StatusSets) Status(flightID, seatID int64) domain.SeatStatus {
	if s.Confirmed[flightID][seatID] {
		return domain.SeatConfirmed
	}
	if _, ok := s.Held[flightID][seatID]; ok {
		return domain.SeatHeld
	}
	return domain.SeatAvailable
}

// Locks flattens the held seats into lock rows.
func (s StatusSets) Locks() []domain.SeatLock {
	locks := make([]domain.SeatLock, 0)
	for flightID, held := range s.Held {
		for seatID, until := range held {
			locks = append(locks, domain.SeatLock{FlightID: flightID, SeatID: seatID, HeldUntil: until})
		}
	}
	sortLocks(locks)
	return locks
}

type Reader struct {
	catalog SeatCatalog
	locks   LockLister
	holdTTL time.Duration
	now     func() time.Time
}

type ReaderOption func(*Reader)

// WithLockLister overlays cross-session locks on staged grids.
func WithLockLister(l LockLister) ReaderOption {
	return func(r *Reader) {
		r.locks = l
	}
}

func WithClock(now func() time.Time) ReaderOption {
	return func(r *Reader) {
		r.now = now
	}
}

func NewReader(catalog SeatCatalog, holdTTL time.Duration, opts ...ReaderOption) *Reader {
	if holdTTL <= 0 {
		holdTTL = domain.DefaultHoldTTL
	}
	r := &Reader{catalog: catalog, holdTTL: holdTTL, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StatusSets classifies every seated segment of the flights. A seat is held
// while its "reserved" segment is younger than the hold TTL; any other
// segment makes it confirmed.
func (r *Reader) StatusSets(ctx context.Context, flightIDs []int64) (StatusSets, error) {
	sets := StatusSets{
		Confirmed: make(map[int64]map[int64]bool),
		Held:      make(map[int64]map[int64]time.Time),
	}
	states, err := r.catalog.SegmentStates(ctx, flightIDs)
	if err != nil {
		return sets, fmt.Errorf("load segment states: %w", err)
	}
	now := r.now()
	for _, st := range states {
		if until, ok := st.HeldUntil(r.holdTTL); ok && until.After(now) {
			if sets.Held[st.FlightID] == nil {
				sets.Held[st.FlightID] = make(map[int64]time.Time)
			}
			sets.Held[st.FlightID][st.SeatID] = until
			continue
		}
		if sets.Confirmed[st.FlightID] == nil {
			sets.Confirmed[st.FlightID] = make(map[int64]bool)
		}
		sets.Confirmed[st.FlightID][st.SeatID] = true
	}
	return sets, nil
}

// BuildSeatMap lays seats out by row then column, each tagged with its status.
func BuildSeatMap(flightID int64, seats []domain.Seat, sets StatusSets, version int64, now time.Time) domain.SeatMap {
	byRow := make(map[int][]domain.SeatCell)
	for _, s := range seats {
		byRow[s.Row] = append(byRow[s.Row], domain.SeatCell{
			ID:     s.ID,
			Column: s.Column,
			Number: s.Label(),
			Status: sets.Status(flightID, s.ID),
		})
	}
	rowNumbers := make([]int, 0, len(byRow))
	for row := range byRow {
		rowNumbers = append(rowNumbers, row)
	}
	sort.Ints(rowNumbers)

	rows := make([]domain.SeatRow, 0, len(rowNumbers))
	for _, row := range rowNumbers {
		cells := byRow[row]
		sort.Slice(cells, func(i, j int) bool { return cells[i].Column < cells[j].Column })
		rows = append(rows, domain.SeatRow{Row: row, Seats: cells})
	}
	return domain.SeatMap{Rows: rows, Legend: Legend, Version: version, UpdatedAt: now}
}

// Stage rebuilds the seat grids of session from durable state. Seats locked by
// other sessions and the session's own selections show as held, and all of them
// are listed in session.Locks. Grid versions continue from what the session already had.
func (r *Reader) Stage(ctx context.Context, session *domain.StagingSession, flights []domain.Flight, owner string) error {
	ids := make([]int64, 0, len(flights))
	for _, f := range flights {
		ids = append(ids, f.ID)
	}
	sets, err := r.StatusSets(ctx, ids)
	if err != nil {
		return err
	}

	now := r.now()
	locks := sets.Locks()
	ownUntil := make(map[[2]int64]time.Time, len(session.Locks))
	for _, l := range session.Locks {
		ownUntil[[2]int64{l.FlightID, l.SeatID}] = l.HeldUntil
	}
	rows := make([]domain.FlightStagingRow, 0, len(flights))
	for _, f := range flights {
		seats, err := r.catalog.ListByAirplane(ctx, f.AirplaneID)
		if err != nil {
			return fmt.Errorf("load seats of airplane %d: %w", f.AirplaneID, err)
		}
		version := int64(1)
		if prev := session.Flight(f.ID); prev != nil {
			version = prev.SeatMap.Version + 1
		}
		seatMap := BuildSeatMap(f.ID, seats, sets, version, now)

		for _, l := range r.foreignLocks(ctx, f.ID, owner) {
			markHeld(&seatMap, l.SeatID)
			locks = append(locks, l)
		}
		for _, sel := range session.Selections {
			if sel.FlightID != f.ID || sel.SeatID == nil || !session.HasPassenger(sel.PassengerDocument) {
				continue
			}
			markHeld(&seatMap, *sel.SeatID)
			if cell := seatMap.Find(*sel.SeatID); cell != nil && cell.Status == domain.SeatHeld && !hasLock(locks, f.ID, *sel.SeatID) {
				until, ok := ownUntil[[2]int64{f.ID, *sel.SeatID}]
				if !ok {
					until = now.Add(r.holdTTL)
				}
				locks = append(locks, domain.SeatLock{FlightID: f.ID, SeatID: *sel.SeatID, HeldUntil: until})
			}
		}
		rows = append(rows, domain.FlightStagingRow{ID: f.ID, Code: FlightCode(f), SeatMap: seatMap})
	}

	sortLocks(locks)
	session.Flights = rows
	session.Locks = locks
	session.Phase = domain.PhaseSeating
	FillMissing(session)
	return nil
}

func (r *Reader) foreignLocks(ctx context.Context, flightID int64, owner string) []domain.SeatLock {
	if r.locks == nil {
		return nil
	}
	all, err := r.locks.SeatLocks(ctx, flightID)
	if err != nil {
		log.Printf("[seats] WARNING: seat locks of flight %d unavailable: %v", flightID, err)
		return nil
	}
	foreign := make([]domain.SeatLock, 0, len(all))
	for _, l := range all {
		if l.Owner != owner {
			foreign = append(foreign, l)
		}
	}
	return foreign
}

func hasLock(locks []domain.SeatLock, flightID, seatID int64) bool {
	for _, l := range locks {
		if l.FlightID == flightID && l.SeatID == seatID {
			return true
		}
	}
	return false
}

func markHeld(m *domain.SeatMap, seatID int64) {
	if cell := m.Find(seatID); cell != nil && cell.Status == domain.SeatAvailable {
		cell.Status = domain.SeatHeld
	}
}

// FlightCode is the public flight number shown to passengers.
func FlightCode(f domain.Flight) string {
	return fmt.Sprintf("SK%04d", f.ID)
}

func sortLocks(locks []domain.SeatLock) {
	sort.Slice(locks, func(i, j int) bool {
		if locks[i].FlightID != locks[j].FlightID {
			return locks[i].FlightID < locks[j].FlightID
		}
		return locks[i].SeatID < locks[j].SeatID
	})
}
