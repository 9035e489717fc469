package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type RouteRepository interface {
	// RoutesFrom lists every route leaving the airport with the given code.
	RoutesFrom(ctx context.Context, originCode string) ([]domain.Route, error)
	// GetByIDs returns the routes in storage order, not in the order of ids.
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Route, error)
	AirportByCode(ctx context.Context, code string) (*domain.Airport, error)
}

type PGRouteRepository struct {
	db DB
}

func NewRouteRepository(db DB) RouteRepository {
	return &PGRouteRepository{db: db}
}

const routeColumns = `r.id, r.estimated_duration,
	o.id, o.code, o.name, o.city, o.country,
	d.id, d.code, d.name, d.city, d.country`

const routeFrom = `FROM routes r
	JOIN airports o ON o.id = r.origin_airport_id
	JOIN airports d ON d.id = r.destination_airport_id`

func (r *PGRouteRepository) RoutesFrom(ctx context.Context, originCode string) ([]domain.Route, error) {
	rows, err := r.db.Query(ctx, `SELECT `+routeColumns+` `+routeFrom+` WHERE o.code = $1 ORDER BY r.id`, originCode)
	if err != nil {
		return nil, err
	}
	return collectRoutes(rows)
}

func (r *PGRouteRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Route, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+routeColumns+` `+routeFrom+` WHERE r.id = ANY($1) ORDER BY r.id`, ids)
	if err != nil {
		return nil, err
	}
	return collectRoutes(rows)
}

func (r *PGRouteRepository) AirportByCode(ctx context.Context, code string) (*domain.Airport, error) {
	row := r.db.QueryRow(ctx, `SELECT id, code, name, city, country FROM airports WHERE code = $1`, code)
	var a domain.Airport
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.City, &a.Country); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFoundf("airport %s not found", code)
		}
		return nil, fmt.Errorf("get airport %s: %w", code, err)
	}
	return &a, nil
}

func collectRoutes(rows pgx.Rows) ([]domain.Route, error) {
	defer rows.Close()

	routes := make([]domain.Route, 0)
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

func scanRoute(row rowScanner, extra ...any) (domain.Route, error) {
	var route domain.Route
	dest := []any{
		&route.ID, &route.EstimatedDuration,
		&route.Origin.ID, &route.Origin.Code, &route.Origin.Name, &route.Origin.City, &route.Origin.Country,
		&route.Destination.ID, &route.Destination.Code, &route.Destination.Name, &route.Destination.City, &route.Destination.Country,
	}
	if err := row.Scan(append(extra, dest...)...); err != nil {
		return domain.Route{}, err
	}
	return route, nil
}

var _ RouteRepository = (*PGRouteRepository)(nil)
