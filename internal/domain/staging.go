package domain

import (
	"fmt"
	"time"
)

type ActorKind string

const (
	ActorUser      ActorKind = "user"
	ActorAnonymous ActorKind = "anonymous"
)

// Namespace scopes a staging session to the actor that created it.
type Namespace struct {
	Kind ActorKind
	ID   string
}

func (n Namespace) Valid() bool {
	return (n.Kind == ActorUser || n.Kind == ActorAnonymous) && n.ID != ""
}

func (n Namespace) String() string {
	return fmt.Sprintf("%s:%s", n.Kind, n.ID)
}

type SessionPhase string

const (
	PhaseSearched   SessionPhase = "searched"
	PhaseChosen     SessionPhase = "chosen"
	PhasePassengers SessionPhase = "passengers_loaded"
	PhaseSeating    SessionPhase = "seating"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatHeld      SeatStatus = "held"
	SeatConfirmed SeatStatus = "confirmed"
)

type SearchCriteria struct {
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	Date           string `json:"date"`
	PassengerCount int    `json:"passenger_count"`
}

type ItineraryOption struct {
	ID              int     `json:"id"`
	RouteSummary    string  `json:"route_summary"`
	DurationMinutes int     `json:"duration"`
	TotalPrice      Cents   `json:"total_price"`
	RouteIDs        []int64 `json:"route_ids"`
	FlightIDs       []int64 `json:"flight_ids"`
}

type PassengerRecord struct {
	Name         string       `json:"name"`
	Document     string       `json:"document"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone,omitempty"`
	BirthDate    string       `json:"birth_date,omitempty"`
	DocumentType DocumentType `json:"document_type,omitempty"`
}

type SeatCell struct {
	ID     int64      `json:"id"`
	Column string     `json:"col"`
	Number string     `json:"num"`
	Status SeatStatus `json:"status"`
}

type SeatRow struct {
	Row   int        `json:"row"`
	Seats []SeatCell `json:"seats"`
}

type SeatMap struct {
	Rows      []SeatRow             `json:"rows"`
	Legend    map[SeatStatus]string `json:"legend,omitempty"`
	Version   int64                 `json:"version"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Find returns a pointer into the grid so callers can flip statuses in place.
func (m *SeatMap) Find(seatID int64) *SeatCell {
	for r := range m.Rows {
		for s := range m.Rows[r].Seats {
			if m.Rows[r].Seats[s].ID == seatID {
				return &m.Rows[r].Seats[s]
			}
		}
	}
	return nil
}

// Label returns the seat code for seatID, or "" if the grid does not have it.
func (m *SeatMap) Label(seatID int64) string {
	for _, row := range m.Rows {
		for _, s := range row.Seats {
			if s.ID == seatID {
				if s.Number != "" {
					return s.Number
				}
				return SeatLabel(row.Row, s.Column)
			}
		}
	}
	return ""
}

type FlightStagingRow struct {
	ID      int64   `json:"id"`
	Code    string  `json:"code"`
	SeatMap SeatMap `json:"seat_map"`
}

type SelectionRow struct {
	PassengerDocument string `json:"passenger_document"`
	FlightID          int64  `json:"flight_id"`
	SeatID            *int64 `json:"seat_id"`
}

type SeatLock struct {
	FlightID  int64     `json:"flight_id"`
	SeatID    int64     `json:"seat_id"`
	HeldUntil time.Time `json:"held_until"`
	Owner     string    `json:"-"`
}

// StagingSession is the whole in-progress booking kept in the staging store.
type StagingSession struct {
	Phase          SessionPhase       `json:"phase"`
	Search         SearchCriteria     `json:"search"`
	Options        []ItineraryOption  `json:"options,omitempty"`
	Itinerary      *ItineraryOption   `json:"itinerary,omitempty"`
	PassengerCount int                `json:"passenger_count"`
	Passengers     []PassengerRecord  `json:"passengers"`
	Flights        []FlightStagingRow `json:"flights"`
	Selections     []SelectionRow     `json:"selections"`
	Locks          []SeatLock         `json:"locks"`
}

func (s *StagingSession) PassengerDocuments() []string {
	docs := make([]string, 0, len(s.Passengers))
	for _, p := range s.Passengers {
		if p.Document != "" {
			docs = append(docs, p.Document)
		}
	}
	return docs
}

func (s *StagingSession) HasPassenger(document string) bool {
	for _, p := range s.Passengers {
		if p.Document == document {
			return true
		}
	}
	return false
}

func (s *StagingSession) Flight(id int64) *FlightStagingRow {
	for i := range s.Flights {
		if s.Flights[i].ID == id {
			return &s.Flights[i]
		}
	}
	return nil
}

// SeatFor returns the staged seat of a passenger on a flight, nil when unassigned.
func (s *StagingSession) SeatFor(document string, flightID int64) *int64 {
	for _, sel := range s.Selections {
		if sel.PassengerDocument == document && sel.FlightID == flightID {
			return sel.SeatID
		}
	}
	return nil
}
