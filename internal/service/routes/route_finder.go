package routes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
)

const (
	DefaultMaxDepth         = 4
	DefaultConnectionWindow = 24 * time.Hour
	summarySeparator        = " → "
)

type RouteGraph interface {
	RoutesFrom(ctx context.Context, originCode string) ([]domain.Route, error)
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Route, error)
}

type FlightSchedule interface {
	FindDepartures(ctx context.Context, routeID int64, from, to time.Time) ([]domain.Flight, error)
}

type RouteService struct {
	graph            RouteGraph
	schedule         FlightSchedule
	maxDepth         int
	connectionWindow time.Duration
}

type RouteServiceOption func(*RouteService)

func WithMaxDepth(depth int) RouteServiceOption {
	return func(s *RouteService) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

func WithConnectionWindow(window time.Duration) RouteServiceOption {
	return func(s *RouteService) {
		if window > 0 {
			s.connectionWindow = window
		}
	}
}

func NewRouteService(graph RouteGraph, schedule FlightSchedule, opts ...RouteServiceOption) *RouteService {
	s := &RouteService{
		graph:            graph,
		schedule:         schedule,
		maxDepth:         DefaultMaxDepth,
		connectionWindow: DefaultConnectionWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type queueEntry struct {
	code string
	path []domain.Route
}

// FindRouteChains enumerates every cycle-free chain of routes from origin to
// destination, breadth first, so chains with fewer stops come first.
// It returns nil when no chain exists.
func (s *RouteService) FindRouteChains(ctx context.Context, origin, destination string) ([][]int64, error) {
	origin = strings.ToUpper(strings.TrimSpace(origin))
	destination = strings.ToUpper(strings.TrimSpace(destination))
	if origin == "" || destination == "" || origin == destination {
		return nil, nil
	}

	outbound := make(map[string][]domain.Route)
	routesFrom := func(code string) ([]domain.Route, error) {
		if routes, ok := outbound[code]; ok {
			return routes, nil
		}
		routes, err := s.graph.RoutesFrom(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("routes from %s: %w", code, err)
		}
		outbound[code] = routes
		return routes, nil
	}

	var chains [][]int64
	queue := []queueEntry{{code: origin}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.code == destination && len(current.path) > 0 {
			chains = append(chains, routeIDs(current.path))
			continue
		}
		if len(current.path) >= s.maxDepth {
			continue
		}

		next, err := routesFrom(current.code)
		if err != nil {
			return nil, err
		}
		for _, route := range next {
			hop := route.Destination.Code
			if hop == origin || visited(current.path, hop) {
				continue
			}
			path := make([]domain.Route, len(current.path), len(current.path)+1)
			copy(path, current.path)
			queue = append(queue, queueEntry{code: hop, path: append(path, route)})
		}
	}
	return chains, nil
}

func visited(path []domain.Route, code string) bool {
	for _, r := range path {
		if r.Origin.Code == code || r.Destination.Code == code {
			return true
		}
	}
	return false
}

func routeIDs(path []domain.Route) []int64 {
	ids := make([]int64, len(path))
	for i, r := range path {
		ids[i] = r.ID
	}
	return ids
}
