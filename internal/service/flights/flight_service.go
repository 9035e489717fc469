package flights

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/Domenick1991/itinerary-booking/internal/repository"
	"github.com/Domenick1991/itinerary-booking/internal/service/seats"
)

type FlightUseCase interface {
	List(ctx context.Context, filter Filter) ([]FlightView, error)
	GetByID(ctx context.Context, id int64) (*FlightView, error)
}

// Filter narrows the catalog. Zero fields match everything.
type Filter struct {
	Origin      string `form:"origin" json:"origin,omitempty"`
	Destination string `form:"destination" json:"destination,omitempty"`
	Date        string `form:"date" json:"date,omitempty"`
	ActiveOnly  bool   `form:"active" json:"active,omitempty"`
}

func (f Filter) matcher() (func(domain.Flight) bool, error) {
	origin := strings.ToUpper(strings.TrimSpace(f.Origin))
	destination := strings.ToUpper(strings.TrimSpace(f.Destination))
	var day time.Time
	if f.Date != "" {
		parsed, err := time.Parse("2006-01-02", f.Date)
		if err != nil {
			return nil, domain.FieldErrors(map[string]string{"date": "must be a date in YYYY-MM-DD format"})
		}
		day = parsed
	}
	return func(fl domain.Flight) bool {
		if origin != "" && fl.Route.Origin.Code != origin {
			return false
		}
		if destination != "" && fl.Route.Destination.Code != destination {
			return false
		}
		if f.ActiveOnly && !fl.IsActive() {
			return false
		}
		if !day.IsZero() {
			dep := fl.DepartureTime.UTC()
			if dep.Before(day) || !dep.Before(day.AddDate(0, 0, 1)) {
				return false
			}
		}
		return true
	}, nil
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

// FlightView is a catalog entry as the API shows it.
type FlightView struct {
	ID            int64               `json:"id"`
	Code          string              `json:"code"`
	Origin        string              `json:"origin"`
	Destination   string              `json:"destination"`
	OriginName    string              `json:"origin_name"`
	DestName      string              `json:"destination_name"`
	DepartureTime time.Time           `json:"departure_time"`
	ArrivalTime   time.Time           `json:"arrival_time"`
	Duration      int                 `json:"duration"`
	Status        domain.FlightStatus `json:"status"`
	Price         domain.Cents        `json:"price"`
}

func ViewOf(f domain.Flight) FlightView {
	return FlightView{
		ID:            f.ID,
		Code:          seats.FlightCode(f),
		Origin:        f.Route.Origin.Code,
		Destination:   f.Route.Destination.Code,
		OriginName:    f.Route.Origin.Label(),
		DestName:      f.Route.Destination.Label(),
		DepartureTime: f.DepartureTime,
		ArrivalTime:   f.ArrivalTime,
		Duration:      f.DurationMinutes(),
		Status:        f.Status,
		Price:         f.BasePrice,
	}
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
}

func NewFlightService(repo repository.FlightRepository, cache FlightCache) *FlightService {
	return &FlightService{repo: repo, cache: cache}
}

func (s *FlightService) List(ctx context.Context, filter Filter) ([]FlightView, error) {
	match, err := filter.matcher()
	if err != nil {
		return nil, err
	}
	flights, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]FlightView, 0, len(flights))
	for _, f := range flights {
		if match(f) {
			views = append(views, ViewOf(f))
		}
	}
	return views, nil
}

func (s *FlightService) load(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil {
			log.Printf("[flights] WARNING: flights cache read failed: %v", err)
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			log.Printf("[flights] WARNING: flights cache write failed: %v", err)
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*FlightView, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := ViewOf(*f)
	return &view, nil
}

var _ FlightUseCase = (*FlightService)(nil)
