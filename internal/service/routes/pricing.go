package routes

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
)

// OrderByIDs lays routes out in the order of ids. ok is false when any id is missing.
func OrderByIDs(routes []domain.Route, ids []int64) ([]domain.Route, bool) {
	byID := make(map[int64]domain.Route, len(routes))
	for _, r := range routes {
		byID[r.ID] = r
	}
	ordered := make([]domain.Route, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, false
		}
		ordered = append(ordered, r)
	}
	return ordered, len(ordered) > 0
}

// Summary joins the origin of every leg and the final destination, e.g. "AEP → COR → BRC".
func Summary(routes []domain.Route) string {
	if len(routes) == 0 {
		return ""
	}
	codes := make([]string, 0, len(routes)+1)
	for _, r := range routes {
		codes = append(codes, r.Origin.Code)
	}
	codes = append(codes, routes[len(routes)-1].Destination.Code)
	return strings.Join(codes, summarySeparator)
}

// BuildOptions prices each chain for a departure day. Chains whose routes
// cannot be resolved, or that have no bookable flight for some leg, are dropped.
func (s *RouteService) BuildOptions(ctx context.Context, chains [][]int64, day time.Time) ([]domain.ItineraryOption, error) {
	options := make([]domain.ItineraryOption, 0, len(chains))
	for _, chain := range chains {
		if len(chain) == 0 {
			continue
		}
		fetched, err := s.graph.GetByIDs(ctx, chain)
		if err != nil {
			return nil, fmt.Errorf("load routes %v: %w", chain, err)
		}
		routes, ok := OrderByIDs(fetched, chain)
		if !ok {
			log.Printf("[routes] dropping chain %v: unresolved routes", chain)
			continue
		}
		flights, err := s.pickFlights(ctx, routes, day)
		if err != nil {
			return nil, err
		}
		if flights == nil {
			continue
		}

		option := domain.ItineraryOption{
			ID:           len(options) + 1,
			RouteSummary: Summary(routes),
			RouteIDs:     append([]int64(nil), chain...),
			FlightIDs:    make([]int64, 0, len(flights)),
		}
		for _, f := range flights {
			option.DurationMinutes += f.DurationMinutes()
			option.TotalPrice += f.BasePrice
			option.FlightIDs = append(option.FlightIDs, f.ID)
		}
		options = append(options, option)
	}
	return options, nil
}

// pickFlights takes the earliest active departure on day for the first leg and,
// for every later leg, the earliest one leaving after the previous arrival
// within the connection window. It returns nil if some leg has no flight.
func (s *RouteService) pickFlights(ctx context.Context, routes []domain.Route, day time.Time) ([]domain.Flight, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	picked := make([]domain.Flight, 0, len(routes))
	for i, route := range routes {
		if i > 0 {
			from = picked[i-1].ArrivalTime
			to = from.Add(s.connectionWindow)
		}
		departures, err := s.schedule.FindDepartures(ctx, route.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("departures for route %d: %w", route.ID, err)
		}
		if len(departures) == 0 {
			return nil, nil
		}
		picked = append(picked, departures[0])
	}
	return picked, nil
}
