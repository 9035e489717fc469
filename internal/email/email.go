package email

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Domenick1991/itinerary-booking/internal/kafka"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender turns confirmed itineraries into ticket e-mails. Delivery is a log line.
type Sender struct {
	from string
}

func NewSender(from string) *Sender {
	return &Sender{from: from}
}

func (s *Sender) Compose(event kafka.ItineraryEvent) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", event.PassengerName)
	fmt.Fprintf(&b, "Your reservation %s is confirmed.\n", event.ReservationCode)
	for _, leg := range event.Legs {
		fmt.Fprintf(&b, "  %s  %s → %s  %s  seat %s\n",
			leg.FlightNumber, leg.Origin, leg.Destination, leg.DepartureTime.Format("2006-01-02 15:04"), leg.Seat)
	}
	fmt.Fprintf(&b, "Total: %s\n", event.TotalPrice)
	fmt.Fprintf(&b, "Ticket: %s\n", event.Barcode)

	return Message{
		To:      event.Email,
		Subject: fmt.Sprintf("Ticket %s for reservation %s", event.Barcode, event.ReservationCode),
		Body:    b.String(),
	}
}

func (s *Sender) Send(ctx context.Context, event kafka.ItineraryEvent) error {
	if event.Email == "" {
		return fmt.Errorf("itinerary %s has no recipient", event.ReservationCode)
	}
	msg := s.Compose(event)
	log.Printf("[email] from=%s to=%s subject=%q", s.from, msg.To, msg.Subject)
	return nil
}
