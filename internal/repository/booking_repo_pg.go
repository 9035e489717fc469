package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type BookingRepository interface {
	// WithinTx runs fn in one transaction. Any error from fn rolls everything back.
	WithinTx(ctx context.Context, fn func(tx BookingTx) error) error
	// ExpireHolds deletes "reserved" segments reserved at or before cutoff and
	// any itinerary left without segments. It returns the number of segments removed.
	ExpireHolds(ctx context.Context, cutoff time.Time) (int64, error)
}

// BookingTx is the write side of a confirmation, bound to an open transaction.
type BookingTx interface {
	FindPassengerByDocument(ctx context.Context, document string) (*domain.Passenger, error)
	CreatePassenger(ctx context.Context, p *domain.Passenger) error
	CreateItinerary(ctx context.Context, it *domain.Itinerary) error
	GetFlight(ctx context.Context, flightID int64) (*domain.Flight, error)
	GetSeat(ctx context.Context, seatID, airplaneID int64) (*domain.Seat, error)
	SegmentExists(ctx context.Context, flightID, seatID int64) (bool, error)
	CreateSegment(ctx context.Context, seg *domain.FlightSegment) error
	UpdateItineraryTotal(ctx context.Context, itineraryID int64, total domain.Cents) error
	CreateTicket(ctx context.Context, ticket *domain.Ticket) error
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) WithinTx(ctx context.Context, fn func(tx BookingTx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgBookingTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PGBookingRepository) ExpireHolds(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `DELETE FROM flight_segments WHERE status = $1 AND reserved_at <= $2 RETURNING itinerary_id`,
		string(domain.SegmentStatusReserved), cutoff)
	if err != nil {
		return 0, err
	}
	var (
		removed     int64
		itineraries []int64
	)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		removed++
		itineraries = append(itineraries, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM itineraries i WHERE i.id = ANY($1)
		AND NOT EXISTS (SELECT 1 FROM flight_segments s WHERE s.itinerary_id = i.id)`, itineraries); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return removed, nil
}

type pgBookingTx struct {
	tx pgx.Tx
}

func (t *pgBookingTx) FindPassengerByDocument(ctx context.Context, document string) (*domain.Passenger, error) {
	row := t.tx.QueryRow(ctx, `SELECT id, name, document, email, COALESCE(phone, ''), COALESCE(to_char(birth_date, 'YYYY-MM-DD'), ''), COALESCE(document_type, '')
		FROM passengers WHERE document = $1`, document)
	var (
		p       domain.Passenger
		docType string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Document, &p.Email, &p.Phone, &p.BirthDate, &docType); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find passenger: %w", err)
	}
	p.DocumentType = domain.DocumentType(docType)
	return &p, nil
}

// CreatePassenger inserts p, or adopts the row a concurrent booking created for the same document.
func (t *pgBookingTx) CreatePassenger(ctx context.Context, p *domain.Passenger) error {
	var birthDate *string
	if p.BirthDate != "" {
		birthDate = &p.BirthDate
	}
	err := t.tx.QueryRow(ctx, `INSERT INTO passengers (name, document, email, phone, birth_date, document_type)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5::date, NULLIF($6, ''))
		ON CONFLICT (document) DO UPDATE SET document = EXCLUDED.document
		RETURNING id`, p.Name, p.Document, p.Email, p.Phone, birthDate, string(p.DocumentType)).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create passenger: %w", err)
	}
	return nil
}

func (t *pgBookingTx) CreateItinerary(ctx context.Context, it *domain.Itinerary) error {
	return t.savepoint(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `INSERT INTO itineraries (passenger_id, reservation_code, total_cents)
			VALUES ($1, $2, $3) RETURNING id, created_at`, it.PassengerID, it.ReservationCode, int64(it.TotalPrice)).
			Scan(&it.ID, &it.CreatedAt)
	}, reservationCodeKey, func() error {
		return domain.Integrityf("reservation code %s already exists", it.ReservationCode)
	})
}

func (t *pgBookingTx) GetFlight(ctx context.Context, flightID int64) (*domain.Flight, error) {
	return getFlight(ctx, t.tx, flightID)
}

func (t *pgBookingTx) GetSeat(ctx context.Context, seatID, airplaneID int64) (*domain.Seat, error) {
	row := t.tx.QueryRow(ctx, `SELECT id, airplane_id, row_number, col, number FROM seats WHERE id = $1 AND airplane_id = $2`, seatID, airplaneID)
	var s domain.Seat
	if err := row.Scan(&s.ID, &s.AirplaneID, &s.Row, &s.Column, &s.Number); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundf("seat %d not found on airplane %d", seatID, airplaneID)
		}
		return nil, fmt.Errorf("get seat %d: %w", seatID, err)
	}
	return &s, nil
}

func (t *pgBookingTx) SegmentExists(ctx context.Context, flightID, seatID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM flight_segments WHERE flight_id = $1 AND seat_id = $2)`, flightID, seatID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check segment: %w", err)
	}
	return exists, nil
}

func (t *pgBookingTx) CreateSegment(ctx context.Context, seg *domain.FlightSegment) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO flight_segments (itinerary_id, flight_id, seat_id, status, price_cents, reserved_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		seg.ItineraryID, seg.FlightID, seg.SeatID, string(seg.Status), int64(seg.Price), seg.ReservedAt).Scan(&seg.ID)
	if err == nil {
		return nil
	}
	if name, ok := uniqueViolationOn(err); ok && name == segmentSeatKey && seg.SeatID != nil {
		return domain.SeatConflict(seg.FlightID, *seg.SeatID, "")
	}
	return fmt.Errorf("create segment: %w", err)
}

func (t *pgBookingTx) UpdateItineraryTotal(ctx context.Context, itineraryID int64, total domain.Cents) error {
	tag, err := t.tx.Exec(ctx, `UPDATE itineraries SET total_cents = $1 WHERE id = $2`, int64(total), itineraryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("itinerary %d not found", itineraryID)
	}
	return nil
}

func (t *pgBookingTx) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	return t.savepoint(ctx, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `INSERT INTO tickets (itinerary_id, barcode, status) VALUES ($1, $2, $3) RETURNING id, issued_at`,
			ticket.ItineraryID, ticket.Barcode, string(ticket.Status)).Scan(&ticket.ID, &ticket.IssuedAt)
	}, ticketBarcodeKey, func() error {
		return domain.Integrityf("ticket barcode %s already exists", ticket.Barcode)
	})
}

// savepoint runs fn in a nested transaction so a violation of constraint can be
// retried without aborting the outer one. Other unique violations pass through.
func (t *pgBookingTx) savepoint(ctx context.Context, fn func(tx pgx.Tx) error, constraint string, onUnique func() error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		if name, ok := uniqueViolationOn(err); ok && name == constraint {
			return onUnique()
		}
		return fmt.Errorf("savepoint: %w", err)
	}
	return sp.Commit(ctx)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
var _ BookingTx = (*pgBookingTx)(nil)
