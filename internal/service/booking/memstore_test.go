package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/Domenick1991/itinerary-booking/internal/repository"
)

// memStore is a serialized in-memory stand-in for Postgres. Transactions work
// on copies and only publish them on success, and (flight, seat) is unique.
type memStore struct {
	mu sync.Mutex

	routes  []domain.Route
	flights map[int64]domain.Flight
	seats   []domain.Seat

	passengers  []domain.Passenger
	itineraries []domain.Itinerary
	segments    []domain.FlightSegment
	tickets     []domain.Ticket

	nextID      int64
	rejectCodes int
}

var (
	aep = domain.Airport{ID: 1, Code: "AEP", Name: "Aeroparque", City: "Buenos Aires", Country: "Argentina"}
	cor = domain.Airport{ID: 2, Code: "COR", Name: "Pajas Blancas", City: "Cordoba", Country: "Argentina"}
	brc = domain.Airport{ID: 3, Code: "BRC", Name: "Bariloche", City: "Bariloche", Country: "Argentina"}

	travelDay = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
)

func newMemStore() *memStore {
	aepCor := domain.Route{ID: 1, Origin: aep, Destination: cor, EstimatedDuration: 85}
	corBrc := domain.Route{ID: 4, Origin: cor, Destination: brc, EstimatedDuration: 120}
	corAep := domain.Route{ID: 6, Origin: cor, Destination: aep, EstimatedDuration: 85}

	m := &memStore{
		routes:  []domain.Route{aepCor, corBrc, corAep},
		flights: map[int64]domain.Flight{},
		nextID:  1000,
	}
	m.flights[10] = domain.Flight{
		ID: 10, AirplaneID: 1, Route: aepCor,
		DepartureTime: travelDay.Add(8 * time.Hour), ArrivalTime: travelDay.Add(8*time.Hour + 85*time.Minute),
		Status: domain.FlightStatusActive, BasePrice: domain.Cents(10000),
	}
	m.flights[40] = domain.Flight{
		ID: 40, AirplaneID: 1, Route: corBrc,
		DepartureTime: travelDay.Add(11 * time.Hour), ArrivalTime: travelDay.Add(13 * time.Hour),
		Status: domain.FlightStatusActive, BasePrice: domain.Cents(15050),
	}
	for _, row := range []int{1, 2} {
		for i, col := range []string{"A", "B"} {
			id := int64(row*100 + i + 1)
			m.seats = append(m.seats, domain.Seat{ID: id, AirplaneID: 1, Row: row, Column: col, Number: domain.SeatLabel(row, col)})
		}
	}
	return m
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) setFlightStatus(id int64, status domain.FlightStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.flights[id]
	f.Status = status
	m.flights[id] = f
}

func (m *memStore) addSegment(seg domain.FlightSegment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seg.ItineraryID == 0 {
		it := domain.Itinerary{ID: m.id(), PassengerID: 1, ReservationCode: "SEEDED"}
		m.itineraries = append(m.itineraries, it)
		seg.ItineraryID = it.ID
	}
	seg.ID = m.id()
	m.segments = append(m.segments, seg)
}

type counts struct {
	passengers, itineraries, segments, tickets int
}

func (m *memStore) counts() counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counts{len(m.passengers), len(m.itineraries), len(m.segments), len(m.tickets)}
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx repository.BookingTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		m:           m,
		passengers:  append([]domain.Passenger(nil), m.passengers...),
		itineraries: append([]domain.Itinerary(nil), m.itineraries...),
		segments:    append([]domain.FlightSegment(nil), m.segments...),
		tickets:     append([]domain.Ticket(nil), m.tickets...),
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.passengers, m.itineraries, m.segments, m.tickets = tx.passengers, tx.itineraries, tx.segments, tx.tickets
	return nil
}

func (m *memStore) ExpireHolds(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	touched := map[int64]bool{}
	kept := m.segments[:0]
	for _, s := range m.segments {
		if s.Status == domain.SegmentStatusReserved && s.ReservedAt != nil && !s.ReservedAt.After(cutoff) {
			removed++
			touched[s.ItineraryID] = true
			continue
		}
		kept = append(kept, s)
	}
	m.segments = kept

	remaining := map[int64]bool{}
	for _, s := range m.segments {
		remaining[s.ItineraryID] = true
	}
	its := m.itineraries[:0]
	for _, it := range m.itineraries {
		if touched[it.ID] && !remaining[it.ID] {
			continue
		}
		its = append(its, it)
	}
	m.itineraries = its
	return removed, nil
}

func (m *memStore) FindDepartures(_ context.Context, routeID int64, from, to time.Time) ([]domain.Flight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Flight
	for _, f := range m.flights {
		if f.Route.ID == routeID && f.IsActive() && !f.DepartureTime.Before(from) && f.DepartureTime.Before(to) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime.Before(out[j].DepartureTime) })
	return out, nil
}

func (m *memStore) ListByAirplane(_ context.Context, airplaneID int64) ([]domain.Seat, error) {
	var out []domain.Seat
	for _, s := range m.seats {
		if s.AirplaneID == airplaneID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) SegmentStates(_ context.Context, flightIDs []int64) ([]domain.SegmentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[int64]bool{}
	for _, id := range flightIDs {
		want[id] = true
	}
	var out []domain.SegmentState
	for _, s := range m.segments {
		if want[s.FlightID] && s.SeatID != nil {
			out = append(out, domain.SegmentState{FlightID: s.FlightID, SeatID: *s.SeatID, Status: s.Status, ReservedAt: s.ReservedAt})
		}
	}
	return out, nil
}

type routeGraph struct{ m *memStore }

func (g routeGraph) RoutesFrom(_ context.Context, code string) ([]domain.Route, error) {
	var out []domain.Route
	for _, r := range g.m.routes {
		if r.Origin.Code == code {
			out = append(out, r)
		}
	}
	return out, nil
}

func (g routeGraph) GetByIDs(_ context.Context, ids []int64) ([]domain.Route, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Route
	for _, r := range g.m.routes {
		if want[r.ID] {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g routeGraph) AirportByCode(_ context.Context, code string) (*domain.Airport, error) {
	for _, a := range []domain.Airport{aep, cor, brc} {
		if a.Code == code {
			found := a
			return &found, nil
		}
	}
	return nil, domain.NotFoundf("airport %s not found", code)
}

type flightCatalog struct{ m *memStore }

func (c flightCatalog) GetByIDs(_ context.Context, ids []int64) ([]domain.Flight, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	var out []domain.Flight
	for _, id := range ids {
		if f, ok := c.m.flights[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

type memTx struct {
	m           *memStore
	passengers  []domain.Passenger
	itineraries []domain.Itinerary
	segments    []domain.FlightSegment
	tickets     []domain.Ticket
}

func (t *memTx) FindPassengerByDocument(_ context.Context, document string) (*domain.Passenger, error) {
	for _, p := range t.passengers {
		if p.Document == document {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memTx) CreatePassenger(_ context.Context, p *domain.Passenger) error {
	for _, existing := range t.passengers {
		if existing.Document == p.Document {
			return domain.Integrityf("document %s exists", p.Document)
		}
	}
	p.ID = t.m.id()
	t.passengers = append(t.passengers, *p)
	return nil
}

func (t *memTx) CreateItinerary(_ context.Context, it *domain.Itinerary) error {
	if t.m.rejectCodes > 0 {
		t.m.rejectCodes--
		return domain.Integrityf("reservation code %s already exists", it.ReservationCode)
	}
	for _, existing := range t.itineraries {
		if existing.ReservationCode == it.ReservationCode {
			return domain.Integrityf("reservation code %s already exists", it.ReservationCode)
		}
	}
	it.ID = t.m.id()
	it.CreatedAt = time.Now()
	t.itineraries = append(t.itineraries, *it)
	return nil
}

func (t *memTx) GetFlight(_ context.Context, flightID int64) (*domain.Flight, error) {
	f, ok := t.m.flights[flightID]
	if !ok {
		return nil, domain.NotFoundf("flight %d not found", flightID)
	}
	return &f, nil
}

func (t *memTx) GetSeat(_ context.Context, seatID, airplaneID int64) (*domain.Seat, error) {
	for _, s := range t.m.seats {
		if s.ID == seatID && s.AirplaneID == airplaneID {
			found := s
			return &found, nil
		}
	}
	return nil, domain.NotFoundf("seat %d not found", seatID)
}

func (t *memTx) SegmentExists(_ context.Context, flightID, seatID int64) (bool, error) {
	for _, s := range t.segments {
		if s.FlightID == flightID && s.SeatID != nil && *s.SeatID == seatID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateSegment(ctx context.Context, seg *domain.FlightSegment) error {
	if exists, _ := t.SegmentExists(ctx, seg.FlightID, *seg.SeatID); exists {
		return domain.SeatConflict(seg.FlightID, *seg.SeatID, "")
	}
	seg.ID = t.m.id()
	t.segments = append(t.segments, *seg)
	return nil
}

func (t *memTx) UpdateItineraryTotal(_ context.Context, itineraryID int64, total domain.Cents) error {
	for i := range t.itineraries {
		if t.itineraries[i].ID == itineraryID {
			t.itineraries[i].TotalPrice = total
			return nil
		}
	}
	return domain.NotFoundf("itinerary %d not found", itineraryID)
}

func (t *memTx) CreateTicket(_ context.Context, ticket *domain.Ticket) error {
	for _, existing := range t.tickets {
		if existing.Barcode == ticket.Barcode {
			return domain.Integrityf("barcode %s exists", ticket.Barcode)
		}
	}
	ticket.ID = t.m.id()
	ticket.IssuedAt = time.Now()
	t.tickets = append(t.tickets, *ticket)
	return nil
}

var _ repository.BookingRepository = (*memStore)(nil)
var _ repository.BookingTx = (*memTx)(nil)
