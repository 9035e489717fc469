package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/Domenick1991/itinerary-booking/internal/kafka"
	"github.com/Domenick1991/itinerary-booking/internal/repository"
	"github.com/Domenick1991/itinerary-booking/internal/service/seats"
	"github.com/google/uuid"
)

// Summary previews what Confirm would issue, computed from the staged session only.
func (s *BookingService) Summary(ctx context.Context, ns domain.Namespace, token string) (*Confirmation, error) {
	session, err := s.load(ctx, ns, token)
	if err != nil {
		return nil, err
	}
	if err := requirePassengers(session); err != nil {
		return nil, err
	}
	flights, err := s.itineraryFlights(ctx, session)
	if err != nil {
		return nil, err
	}
	seats.FillMissing(session)

	preview := &Confirmation{Preview: true, Token: token, GroupItineraries: make([]GroupItinerary, 0, len(session.Passengers))}
	for _, p := range session.Passengers {
		group := GroupItinerary{
			ReservationCode: token,
			Passenger:       contactOf(p),
			Flights:         make([]FlightLine, 0, len(flights)),
		}
		for _, f := range flights {
			line := lineFor(f)
			line.Seat = notAssigned
			if seatID := session.SeatFor(p.Document, f.ID); seatID != nil {
				line.SeatID = seatID
				if staged := session.Flight(f.ID); staged != nil {
					if label := staged.SeatMap.Label(*seatID); label != "" {
						line.Seat = label
					}
				}
			}
			group.Flights = append(group.Flights, line)
			group.TotalPrice += line.Price
		}
		preview.GroupItineraries = append(preview.GroupItineraries, group)
	}
	return preview, nil
}

type seatKey struct {
	flightID int64
	seatID   int64
}

// checkAssignments rejects a batch with a missing seat or two passengers on one seat.
func checkAssignments(session *domain.StagingSession) error {
	if len(session.Passengers) == 0 || len(session.Flights) == 0 {
		return domain.Validationf("nothing to confirm: passengers and seats must be staged first")
	}
	taken := make(map[seatKey]string)
	for _, p := range session.Passengers {
		for _, f := range session.Flights {
			seatID := session.SeatFor(p.Document, f.ID)
			if seatID == nil {
				return &domain.BookingError{
					Kind:              domain.ErrValidation,
					Message:           fmt.Sprintf("passenger %s has no seat on flight %d", p.Document, f.ID),
					PassengerDocument: p.Document,
					FlightID:          f.ID,
				}
			}
			key := seatKey{flightID: f.ID, seatID: *seatID}
			if other, dup := taken[key]; dup {
				return &domain.BookingError{
					Kind:              domain.ErrConflict,
					Message:           fmt.Sprintf("seat %s on flight %d is selected by both %s and %s", f.SeatMap.Label(*seatID), f.ID, other, p.Document),
					PassengerDocument: p.Document,
					FlightID:          f.ID,
					SeatID:            *seatID,
				}
			}
			taken[key] = p.Document
		}
	}
	return nil
}

// Confirm commits the staged booking: one itinerary, its segments and a ticket
// per passenger, all in one transaction. Any failure leaves nothing behind.
func (s *BookingService) Confirm(ctx context.Context, ns domain.Namespace, token string) (*Confirmation, error) {
	session, err := s.load(ctx, ns, token)
	if err != nil {
		return nil, err
	}
	seats.FillMissing(session)
	if err := checkAssignments(session); err != nil {
		return nil, err
	}
	if err := s.sweep(ctx); err != nil {
		return nil, err
	}

	var result *Confirmation
	err = s.bookings.WithinTx(ctx, func(tx repository.BookingTx) error {
		var err error
		result, err = s.commit(ctx, tx, session)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.staging.Delete(ctx, ns, token); err != nil {
		log.Printf("[booking] WARNING: failed to burn staging token %s: %v", token, err)
	}
	s.releaseOwnLocks(ctx, session, token)
	s.publishConfirmed(ctx, result)
	return result, nil
}

func (s *BookingService) commit(ctx context.Context, tx repository.BookingTx, session *domain.StagingSession) (*Confirmation, error) {
	flights := make(map[int64]*domain.Flight, len(session.Flights))
	result := &Confirmation{GroupItineraries: make([]GroupItinerary, 0, len(session.Passengers))}

	for _, p := range session.Passengers {
		group, err := s.commitPassenger(ctx, tx, session, p, flights)
		if err != nil {
			return nil, forPassenger(err, p.Document)
		}
		result.GroupItineraries = append(result.GroupItineraries, *group)
	}
	return result, nil
}

func (s *BookingService) commitPassenger(ctx context.Context, tx repository.BookingTx, session *domain.StagingSession, p domain.PassengerRecord, flights map[int64]*domain.Flight) (*GroupItinerary, error) {
	passenger, err := tx.FindPassengerByDocument(ctx, p.Document)
	if err != nil {
		return nil, err
	}
	if passenger == nil {
		passenger = &domain.Passenger{
			Name:         p.Name,
			Document:     p.Document,
			Email:        p.Email,
			Phone:        p.Phone,
			BirthDate:    p.BirthDate,
			DocumentType: p.DocumentType,
		}
		if err := tx.CreatePassenger(ctx, passenger); err != nil {
			return nil, err
		}
	}

	itinerary := &domain.Itinerary{PassengerID: passenger.ID}
	if err := retryOnIntegrity(func() error {
		itinerary.ReservationCode = newReservationCode()
		return tx.CreateItinerary(ctx, itinerary)
	}); err != nil {
		return nil, err
	}

	group := &GroupItinerary{
		ID:              &itinerary.ID,
		ReservationCode: itinerary.ReservationCode,
		Passenger: PassengerContact{
			Name:      passenger.Name,
			Document:  passenger.Document,
			Email:     passenger.Email,
			Phone:     passenger.Phone,
			BirthDate: passenger.BirthDate,
		},
		Flights: make([]FlightLine, 0, len(session.Flights)),
	}

	for _, staged := range session.Flights {
		flight, err := resolveFlight(ctx, tx, flights, staged.ID)
		if err != nil {
			return nil, err
		}
		seatID := session.SeatFor(p.Document, flight.ID)
		seat, err := tx.GetSeat(ctx, *seatID, flight.AirplaneID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, &domain.BookingError{
					Kind:     domain.ErrValidation,
					Message:  fmt.Sprintf("seat %d does not belong to flight %d", *seatID, flight.ID),
					FlightID: flight.ID,
					SeatID:   *seatID,
				}
			}
			return nil, err
		}

		exists, err := tx.SegmentExists(ctx, flight.ID, seat.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.SeatConflict(flight.ID, seat.ID, seat.Label())
		}

		segment := &domain.FlightSegment{
			ItineraryID: itinerary.ID,
			FlightID:    flight.ID,
			SeatID:      &seat.ID,
			Price:       flight.BasePrice,
			Status:      domain.SegmentStatusConfirmed,
		}
		if err := tx.CreateSegment(ctx, segment); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, domain.SeatConflict(flight.ID, seat.ID, seat.Label())
			}
			return nil, err
		}

		line := lineFor(*flight)
		line.SeatID = &seat.ID
		line.Seat = seat.Label()
		group.Flights = append(group.Flights, line)
		group.TotalPrice += segment.Price
	}

	if err := tx.UpdateItineraryTotal(ctx, itinerary.ID, group.TotalPrice); err != nil {
		return nil, err
	}
	itinerary.TotalPrice = group.TotalPrice

	ticket := &domain.Ticket{ItineraryID: itinerary.ID, Status: domain.TicketStatusIssued}
	if err := retryOnIntegrity(func() error {
		ticket.Barcode = newBarcode(itinerary.ReservationCode)
		return tx.CreateTicket(ctx, ticket)
	}); err != nil {
		return nil, err
	}
	group.Ticket = &TicketView{Barcode: ticket.Barcode, Status: ticket.Status}
	return group, nil
}

func resolveFlight(ctx context.Context, tx repository.BookingTx, cache map[int64]*domain.Flight, flightID int64) (*domain.Flight, error) {
	if f, ok := cache[flightID]; ok {
		return f, nil
	}
	f, err := tx.GetFlight(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if !f.IsActive() {
		return nil, &domain.BookingError{
			Kind:     domain.ErrValidation,
			Message:  fmt.Sprintf("flight %d is %s and can no longer be booked", f.ID, f.Status),
			FlightID: f.ID,
		}
	}
	cache[flightID] = f
	return f, nil
}

// retryOnIntegrity runs fn again, once, when it hits a duplicate generated identifier.
func retryOnIntegrity(fn func() error) error {
	err := fn()
	if errors.Is(err, domain.ErrIntegrity) {
		err = fn()
	}
	return err
}

func newReservationCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

func newBarcode(reservationCode string) string {
	return reservationCode + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

func forPassenger(err error, document string) error {
	be, ok := domain.AsBookingError(err)
	if !ok || be.PassengerDocument != "" {
		return err
	}
	tagged := *be
	tagged.PassengerDocument = document
	return &tagged
}

func (s *BookingService) publishConfirmed(ctx context.Context, result *Confirmation) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	now := s.now()
	for _, group := range result.GroupItineraries {
		event := kafka.ItineraryEvent{
			Type:              kafka.EventItineraryConfirmed,
			ReservationCode:   group.ReservationCode,
			PassengerName:     group.Passenger.Name,
			PassengerDocument: group.Passenger.Document,
			Email:             group.Passenger.Email,
			TotalPrice:        group.TotalPrice,
			Legs:              make([]kafka.EventLeg, 0, len(group.Flights)),
			OccurredAt:        now,
		}
		if group.ID != nil {
			event.ItineraryID = *group.ID
		}
		if group.Ticket != nil {
			event.Barcode = group.Ticket.Barcode
		}
		for _, f := range group.Flights {
			event.Legs = append(event.Legs, kafka.EventLeg{
				FlightNumber:  f.FlightNumber,
				Origin:        f.Origin,
				Destination:   f.Destination,
				DepartureTime: f.DepartureTime,
				Seat:          f.Seat,
			})
		}
		if err := s.producer.Publish(ctx, s.bookingTopic, group.ReservationCode, event); err != nil {
			log.Printf("[booking] WARNING: failed to publish %s for %s: %v", event.Type, group.ReservationCode, err)
			continue
		}
		if s.notificationsTopic != "" {
			if err := s.producer.Publish(ctx, s.notificationsTopic, group.ReservationCode, event); err != nil {
				log.Printf("[booking] WARNING: failed to publish notification for %s: %v", group.ReservationCode, err)
			}
		}
	}
}
