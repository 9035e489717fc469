package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
)

const EventItineraryConfirmed = "itinerary_confirmed"

type EventLeg struct {
	FlightNumber  string    `json:"flight_number"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	Seat          string    `json:"seat"`
}

type ItineraryEvent struct {
	Type              string       `json:"type"`
	ItineraryID       int64        `json:"itinerary_id"`
	ReservationCode   string       `json:"reservation_code"`
	PassengerName     string       `json:"passenger_name"`
	PassengerDocument string       `json:"passenger_document"`
	Email             string       `json:"email"`
	Barcode           string       `json:"barcode"`
	TotalPrice        domain.Cents `json:"total_price"`
	Legs              []EventLeg   `json:"legs"`
	OccurredAt        time.Time    `json:"occurred_at"`
}

func (e ItineraryEvent) EventType() string {
	return e.Type
}

func DecodeItineraryEvent(data []byte) (ItineraryEvent, error) {
	var event ItineraryEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return ItineraryEvent{}, fmt.Errorf("failed to decode itinerary event: %w", err)
	}
	return event, nil
}
