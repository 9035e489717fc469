package domain

import (
	"fmt"
	"time"
)

type SegmentStatus string

const (
	SegmentStatusReserved  SegmentStatus = "reserved"
	SegmentStatusConfirmed SegmentStatus = "confirmed"
	SegmentStatusCancelled SegmentStatus = "cancelled"
)

type TicketStatus string

const (
	TicketStatusIssued TicketStatus = "issued"
)

type DocumentType string

const (
	DocumentTypeDNI      DocumentType = "dni"
	DocumentTypePassport DocumentType = "passport"
)

// DefaultHoldTTL is how long a "reserved" segment blocks its seat.
const DefaultHoldTTL = 5 * time.Minute

type Passenger struct {
	ID           int64
	Name         string
	Document     string
	Email        string
	Phone        string
	BirthDate    string
	DocumentType DocumentType
}

type Itinerary struct {
	ID              int64
	PassengerID     int64
	ReservationCode string
	TotalPrice      Cents
	CreatedAt       time.Time
}

type FlightSegment struct {
	ID          int64
	ItineraryID int64
	FlightID    int64
	SeatID      *int64
	Price       Cents
	Status      SegmentStatus
	ReservedAt  *time.Time
}

type Ticket struct {
	ID          int64
	ItineraryID int64
	Barcode     string
	Status      TicketStatus
	IssuedAt    time.Time
}

// SegmentState is the slice of a FlightSegment the availability reader needs.
type SegmentState struct {
	FlightID   int64
	SeatID     int64
	Status     SegmentStatus
	ReservedAt *time.Time
}

// HeldUntil reports when a reserved segment stops blocking its seat.
// ok is false for anything that is not an unexpired-able hold.
func (s SegmentState) HeldUntil(ttl time.Duration) (time.Time, bool) {
	if s.Status != SegmentStatusReserved || s.ReservedAt == nil {
		return time.Time{}, false
	}
	return s.ReservedAt.Add(ttl), true
}

func SeatLabel(row int, column string) string {
	return fmt.Sprintf("%d%s", row, column)
}
