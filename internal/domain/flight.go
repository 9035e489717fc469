package domain

import "time"

type FlightStatus string

const (
	FlightStatusActive    FlightStatus = "active"
	FlightStatusCancelled FlightStatus = "cancelled"
	FlightStatusDelayed   FlightStatus = "delayed"
)

type Airport struct {
	ID      int64
	Code    string
	Name    string
	City    string
	Country string
}

// Label renders an airport the way itinerary summaries show it.
func (a Airport) Label() string {
	if a.City == "" {
		return a.Name
	}
	return a.Name + " - " + a.City
}

type Route struct {
	ID                int64
	Origin            Airport
	Destination       Airport
	EstimatedDuration int
}

type Airplane struct {
	ID      int64
	Model   string
	Rows    int
	Columns int
}

type Seat struct {
	ID         int64
	AirplaneID int64
	Row        int
	Column     string
	Number     string
}

// Label is the human seat code, e.g. "12C".
func (s Seat) Label() string {
	if s.Number != "" {
		return s.Number
	}
	return SeatLabel(s.Row, s.Column)
}

type Flight struct {
	ID            int64
	AirplaneID    int64
	Route         Route
	DepartureTime time.Time
	ArrivalTime   time.Time
	Status        FlightStatus
	BasePrice     Cents
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (f Flight) IsActive() bool {
	return f.Status == FlightStatusActive
}

// DurationMinutes prefers the route estimate and falls back to the scheduled block time.
func (f Flight) DurationMinutes() int {
	if f.Route.EstimatedDuration > 0 {
		return f.Route.EstimatedDuration
	}
	if f.ArrivalTime.After(f.DepartureTime) {
		return int(f.ArrivalTime.Sub(f.DepartureTime) / time.Minute)
	}
	return 0
}
