package booking

import (
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/Domenick1991/itinerary-booking/internal/service/seats"
)

type SearchInput struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
	Passengers  int    `json:"passengers"`
}

type SearchResult struct {
	Token          string                   `json:"token"`
	Origin         string                   `json:"origin"`
	Destination    string                   `json:"destination"`
	SearchDate     string                   `json:"search_date"`
	PassengerCount int                      `json:"passenger_count"`
	Itineraries    []domain.ItineraryOption `json:"itineraries"`
}

// ItineraryView is the staged itinerary and the passengers loaded so far.
type ItineraryView struct {
	Token          string                   `json:"token"`
	Itinerary      *domain.ItineraryOption  `json:"itinerary"`
	PassengerCount int                      `json:"passenger_count"`
	Passengers     []domain.PassengerRecord `json:"passengers"`
}

type SeatView struct {
	Token      string                    `json:"token"`
	Itinerary  *domain.ItineraryOption   `json:"itinerary"`
	Passengers []domain.PassengerRecord  `json:"passengers"`
	Flights    []domain.FlightStagingRow `json:"flights"`
	Selections []domain.SelectionRow     `json:"selections"`
	Locks      []domain.SeatLock         `json:"locks"`
	Progress   seats.Progress            `json:"progress"`
}

type SelectResult struct {
	OK       bool   `json:"ok"`
	FlightID int64  `json:"flight_id"`
	SeatID   *int64 `json:"seat_id"`
	SeatView
}

type PassengerContact struct {
	Name      string `json:"name"`
	Document  string `json:"document"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
}

type FlightLine struct {
	FlightID      int64        `json:"flight_id"`
	FlightNumber  string       `json:"flight_number"`
	Origin        string       `json:"origin"`
	Destination   string       `json:"destination"`
	DepartureTime time.Time    `json:"departure_time"`
	ArrivalTime   time.Time    `json:"arrival_time"`
	Duration      int          `json:"duration"`
	SeatID        *int64       `json:"seat_id"`
	Seat          string       `json:"seat"`
	Price         domain.Cents `json:"price"`
}

type TicketView struct {
	Barcode string              `json:"barcode"`
	Status  domain.TicketStatus `json:"status"`
}

type GroupItinerary struct {
	ID              *int64           `json:"id"`
	ReservationCode string           `json:"reservation_code"`
	Passenger       PassengerContact `json:"passenger"`
	Flights         []FlightLine     `json:"flights"`
	TotalPrice      domain.Cents     `json:"total_price"`
	Ticket          *TicketView      `json:"ticket"`
}

type Confirmation struct {
	GroupItineraries []GroupItinerary `json:"group_itineraries"`
	Preview          bool             `json:"preview"`
	Token            string           `json:"token,omitempty"`
}

// TTLs is how long a staged session lives after each step.
type TTLs struct {
	Search     time.Duration
	Chosen     time.Duration
	Passengers time.Duration
	Seating    time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Search:     10 * time.Minute,
		Chosen:     30 * time.Minute,
		Passengers: 30 * time.Minute,
		Seating:    10 * time.Minute,
	}
}

const notAssigned = "Not assigned"

func contactOf(p domain.PassengerRecord) PassengerContact {
	return PassengerContact{Name: p.Name, Document: p.Document, Email: p.Email, Phone: p.Phone, BirthDate: p.BirthDate}
}

func lineFor(f domain.Flight) FlightLine {
	return FlightLine{
		FlightID:      f.ID,
		FlightNumber:  seats.FlightCode(f),
		Origin:        f.Route.Origin.Label(),
		Destination:   f.Route.Destination.Label(),
		DepartureTime: f.DepartureTime,
		ArrivalTime:   f.ArrivalTime,
		Duration:      f.DurationMinutes(),
		Price:         f.BasePrice,
	}
}
