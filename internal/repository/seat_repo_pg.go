package repository

import (
	"context"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
)

type SeatRepository interface {
	ListByAirplane(ctx context.Context, airplaneID int64) ([]domain.Seat, error)
	// SegmentStates lists every seated segment on the given flights, whatever its status.
	SegmentStates(ctx context.Context, flightIDs []int64) ([]domain.SegmentState, error)
}

type PGSeatRepository struct {
	db DB
}

func NewSeatRepository(db DB) SeatRepository {
	return &PGSeatRepository{db: db}
}

func (r *PGSeatRepository) ListByAirplane(ctx context.Context, airplaneID int64) ([]domain.Seat, error) {
	rows, err := r.db.Query(ctx, `SELECT id, airplane_id, row_number, col, number FROM seats WHERE airplane_id = $1 ORDER BY row_number, col`, airplaneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.ID, &s.AirplaneID, &s.Row, &s.Column, &s.Number); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func (r *PGSeatRepository) SegmentStates(ctx context.Context, flightIDs []int64) ([]domain.SegmentState, error) {
	if len(flightIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT flight_id, seat_id, status, reserved_at FROM flight_segments
		WHERE flight_id = ANY($1) AND seat_id IS NOT NULL`, flightIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make([]domain.SegmentState, 0)
	for rows.Next() {
		var (
			s      domain.SegmentState
			status string
		)
		if err := rows.Scan(&s.FlightID, &s.SeatID, &status, &s.ReservedAt); err != nil {
			return nil, err
		}
		s.Status = domain.SegmentStatus(status)
		states = append(states, s)
	}
	return states, rows.Err()
}

var _ SeatRepository = (*PGSeatRepository)(nil)
