package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Flight, error)
	// FindDepartures returns active flights on a route departing in [from, to), earliest first.
	FindDepartures(ctx context.Context, routeID int64, from, to time.Time) ([]domain.Flight, error)
}

type PGFlightRepository struct {
	db DB
}

func NewFlightRepository(db DB) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightSelect = `SELECT f.id, f.airplane_id, f.departure_time, f.arrival_time, f.status, f.price_cents, f.created_at, f.updated_at, ` +
	routeColumns + ` FROM flights f
	JOIN routes r ON r.id = f.route_id
	JOIN airports o ON o.id = r.origin_airport_id
	JOIN airports d ON d.id = r.destination_airport_id`

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, flightSelect+` ORDER BY f.departure_time`)
	if err != nil {
		return nil, err
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return getFlight(ctx, r.db, id)
}

func (r *PGFlightRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Flight, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, flightSelect+` WHERE f.id = ANY($1) ORDER BY f.id`, ids)
	if err != nil {
		return nil, err
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) FindDepartures(ctx context.Context, routeID int64, from, to time.Time) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, flightSelect+`
		WHERE f.route_id = $1 AND f.status = $2 AND f.departure_time >= $3 AND f.departure_time < $4
		ORDER BY f.departure_time, f.id`, routeID, string(domain.FlightStatusActive), from, to)
	if err != nil {
		return nil, err
	}
	return collectFlights(rows)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getFlight(ctx context.Context, q queryRower, id int64) (*domain.Flight, error) {
	f, err := scanFlight(q.QueryRow(ctx, flightSelect+` WHERE f.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundf("flight %d not found", id)
		}
		return nil, fmt.Errorf("get flight %d: %w", id, err)
	}
	return &f, nil
}

func collectFlights(rows pgx.Rows) ([]domain.Flight, error) {
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func scanFlight(row rowScanner) (domain.Flight, error) {
	var (
		f      domain.Flight
		status string
		price  int64
	)
	route, err := scanRoute(row, &f.ID, &f.AirplaneID, &f.DepartureTime, &f.ArrivalTime, &status, &price, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return domain.Flight{}, err
	}
	f.Route = route
	f.Status = domain.FlightStatus(status)
	f.BasePrice = domain.Cents(price)
	return f, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
