package booking

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/Domenick1991/itinerary-booking/internal/repository"
	"github.com/Domenick1991/itinerary-booking/internal/service/seats"
	"github.com/go-playground/validator/v10"
)

type BookingUseCase interface {
	Search(ctx context.Context, ns domain.Namespace, input SearchInput) (*SearchResult, error)
	Choose(ctx context.Context, ns domain.Namespace, token string, optionID int) (*ItineraryView, error)
	Passengers(ctx context.Context, ns domain.Namespace, token string) (*ItineraryView, error)
	LoadPassengers(ctx context.Context, ns domain.Namespace, token string, passengers []domain.PassengerRecord) (*ItineraryView, error)
	SeatMap(ctx context.Context, ns domain.Namespace, token string) (*SeatView, error)
	SelectSeat(ctx context.Context, ns domain.Namespace, token string, input seats.SelectInput) (*SelectResult, error)
	Summary(ctx context.Context, ns domain.Namespace, token string) (*Confirmation, error)
	Confirm(ctx context.Context, ns domain.Namespace, token string) (*Confirmation, error)
	ExpireHolds(ctx context.Context) (int64, error)
}

type Staging interface {
	Save(ctx context.Context, ns domain.Namespace, session *domain.StagingSession, ttl time.Duration) (string, error)
	Put(ctx context.Context, ns domain.Namespace, token string, session *domain.StagingSession, ttl time.Duration) error
	Get(ctx context.Context, ns domain.Namespace, token string) (*domain.StagingSession, error)
	Delete(ctx context.Context, ns domain.Namespace, token string) error
}

type RouteFinder interface {
	FindRouteChains(ctx context.Context, origin, destination string) ([][]int64, error)
	BuildOptions(ctx context.Context, chains [][]int64, day time.Time) ([]domain.ItineraryOption, error)
}

type AirportLookup interface {
	AirportByCode(ctx context.Context, code string) (*domain.Airport, error)
}

type FlightReader interface {
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Flight, error)
}

type SeatStager interface {
	Stage(ctx context.Context, session *domain.StagingSession, flights []domain.Flight, owner string) error
}

type SeatSelector interface {
	Select(ctx context.Context, session *domain.StagingSession, owner string, in seats.SelectInput) (*seats.Outcome, error)
}

type SeatLockReleaser interface {
	ReleaseSeatLock(ctx context.Context, flightID, seatID int64, owner string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	staging            Staging
	finder             RouteFinder
	flights            FlightReader
	bookings           repository.BookingRepository
	stager             SeatStager
	selector           SeatSelector
	locks              SeatLockReleaser
	airports           AirportLookup
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	ttls               TTLs
	holdTTL            time.Duration
	now                func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithProducer(producer Producer, bookingTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithSeatLocks(locks SeatLockReleaser) BookingServiceOption {
	return func(s *BookingService) {
		s.locks = locks
	}
}

// WithAirports makes Search reject unknown airport codes as not found.
func WithAirports(airports AirportLookup) BookingServiceOption {
	return func(s *BookingService) {
		s.airports = airports
	}
}

func WithTTLs(ttls TTLs) BookingServiceOption {
	return func(s *BookingService) {
		s.ttls = ttls
	}
}

func WithHoldTTL(ttl time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if ttl > 0 {
			s.holdTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	staging Staging,
	finder RouteFinder,
	flights FlightReader,
	bookings repository.BookingRepository,
	stager SeatStager,
	selector SeatSelector,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		staging:  staging,
		finder:   finder,
		flights:  flights,
		bookings: bookings,
		stager:   stager,
		selector: selector,
		ttls:     DefaultTTLs(),
		holdTTL:  domain.DefaultHoldTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

var (
	airportCode = regexp.MustCompile(`^[A-Z]{3}$`)
	validate    = validator.New()
)

const dateLayout = "2006-01-02"

func (s *BookingService) Search(ctx context.Context, ns domain.Namespace, input SearchInput) (*SearchResult, error) {
	origin := strings.ToUpper(strings.TrimSpace(input.Origin))
	destination := strings.ToUpper(strings.TrimSpace(input.Destination))

	fields := map[string]string{}
	if !airportCode.MatchString(origin) {
		fields["origin"] = "must be a 3-letter airport code"
	}
	if !airportCode.MatchString(destination) {
		fields["destination"] = "must be a 3-letter airport code"
	}
	if len(fields) == 0 && origin == destination {
		fields["destination"] = "must differ from origin"
	}
	day, err := time.Parse(dateLayout, strings.TrimSpace(input.Date))
	if err != nil {
		fields["date"] = "must be a date in YYYY-MM-DD format"
	}
	if input.Passengers < 1 {
		fields["passengers"] = "must be at least 1"
	}
	if len(fields) > 0 {
		return nil, domain.FieldErrors(fields)
	}

	if s.airports != nil {
		for _, code := range []string{origin, destination} {
			if _, err := s.airports.AirportByCode(ctx, code); err != nil {
				return nil, err
			}
		}
	}

	chains, err := s.finder.FindRouteChains(ctx, origin, destination)
	if err != nil {
		return nil, err
	}
	options, err := s.finder.BuildOptions(ctx, chains, day)
	if err != nil {
		return nil, err
	}

	criteria := domain.SearchCriteria{Origin: origin, Destination: destination, Date: day.Format(dateLayout), PassengerCount: input.Passengers}
	session := &domain.StagingSession{
		Phase:          domain.PhaseSearched,
		Search:         criteria,
		Options:        options,
		PassengerCount: input.Passengers,
	}
	token, err := s.staging.Save(ctx, ns, session, s.ttls.Search)
	if err != nil {
		return nil, err
	}

	return &SearchResult{
		Token:          token,
		Origin:         criteria.Origin,
		Destination:    criteria.Destination,
		SearchDate:     criteria.Date,
		PassengerCount: criteria.PassengerCount,
		Itineraries:    options,
	}, nil
}

func (s *BookingService) Choose(ctx context.Context, ns domain.Namespace, token string, optionID int) (*ItineraryView, error) {
	session, err := s.load(ctx, ns, token)
	if err != nil {
		return nil, err
	}

	var chosen *domain.ItineraryOption
	for i := range session.Options {
		if session.Options[i].ID == optionID {
			opt := session.Options[i]
			chosen = &opt
			break
		}
	}
	if chosen == nil {
		return nil, domain.Validationf("itinerary option %d is not part of this search", optionID)
	}

	s.releaseOwnLocks(ctx, session, token)
	session.Itinerary = chosen
	session.Phase = domain.PhaseChosen
	session.Passengers = nil
	session.Flights = nil
	session.Selections = nil
	session.Locks = nil
	if err := s.staging.Put(ctx, ns, token, session, s.ttls.Chosen); err != nil {
		return nil, err
	}
	return viewOf(token, session), nil
}

func (s *BookingService) Passengers(ctx context.Context, ns domain.Namespace, token string) (*ItineraryView, error) {
	session, err := s.load(ctx, ns, token)
	if err != nil {
		return nil, err
	}
	if session.Itinerary == nil {
		return nil, domain.Validationf("choose an itinerary first")
	}
	return viewOf(token, session), nil
}

func (s *BookingService) LoadPassengers(ctx context.Context, ns domain.Namespace, token string, passengers []domain.PassengerRecord) (*ItineraryView, error) {
	session, err := s.load(ctx, ns, token)
	if err != nil {
		return nil, err
	}
	if session.Itinerary == nil {
		return nil, domain.Validationf("choose an itinerary first")
	}
	if len(passengers) != session.PassengerCount {
		return nil, domain.Validationf("expected %d passengers, got %d", session.PassengerCount, len(passengers))
	}
	records, err := normalizePassengers(passengers)
	if err != nil {
		return nil, err
	}

	kept := make(map[string]bool, len(records))
	for _, p := range records {
		kept[p.Document] = true
	}
	selections := make([]domain.SelectionRow, 0, len(session.Selections))
	for _, sel := range session.Selections {
		if kept[sel.PassengerDocument] {
			selections = append(selections, sel)
			continue
		}
		if sel.SeatID != nil {
			s.releaseLock(ctx, sel.FlightID, *sel.SeatID, token)
		}
	}

	session.Passengers = records
	session.Selections = selections
	if session.Phase != domain.PhaseSeating {
		session.Phase = domain.PhasePassengers
	}
	if err := s.staging.Put(ctx, ns, token, session, s.ttls.Passengers); err != nil {
		return nil, err
	}
	return viewOf(token, session), nil
}

func normalizePassengers(in []domain.PassengerRecord) ([]domain.PassengerRecord, error) {
	fields := map[string]string{}
	seen := map[string]int{}
	out := make([]domain.PassengerRecord, 0, len(in))
	for i, p := range in {
		p.Name = strings.TrimSpace(p.Name)
		p.Document = strings.TrimSpace(p.Document)
		p.Email = strings.TrimSpace(p.Email)
		p.Phone = strings.TrimSpace(p.Phone)
		p.BirthDate = strings.TrimSpace(p.BirthDate)
		if p.DocumentType == "" {
			p.DocumentType = domain.DocumentTypeDNI
		}

		prefix := fmt.Sprintf("passengers[%d].", i)
		if p.Name == "" {
			fields[prefix+"name"] = "is required"
		}
		if p.Document == "" {
			fields[prefix+"document"] = "is required"
		} else if first, dup := seen[p.Document]; dup {
			fields[prefix+"document"] = fmt.Sprintf("duplicates passengers[%d]", first)
		} else {
			seen[p.Document] = i
		}
		if err := validate.Var(p.Email, "required,email"); err != nil {
			fields[prefix+"email"] = "must be a valid e-mail address"
		}
		if err := validate.Var(p.BirthDate, "omitempty,datetime=2006-01-02"); err != nil {
			fields[prefix+"birth_date"] = "must be a date in YYYY-MM-DD format"
		}
		if err := validate.Var(p.Phone, "omitempty,max=20"); err != nil {
			fields[prefix+"phone"] = "must be at most 20 characters"
		}
		if p.DocumentType != domain.DocumentTypeDNI && p.DocumentType != domain.DocumentTypePassport {
			fields[prefix+"document_type"] = "must be dni or passport"
		}
		out = append(out, p)
	}
	if len(fields) > 0 {
		return nil, domain.FieldErrors(fields)
	}
	return out, nil
}

func (s *BookingService) SeatMap(ctx context.Context, ns domain.Namespace, token string) (*SeatView, error) {
	session, err := s.load(ctx, ns, token)
	if err != nil {
		return nil, err
	}
	if err := requirePassengers(session); err != nil {
		return nil, err
	}
	if err := s.sweep(ctx); err != nil {
		return nil, err
	}

	flights, err := s.itineraryFlights(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := s.stager.Stage(ctx, session, flights, token); err != nil {
		return nil, err
	}
	if err := s.staging.Put(ctx, ns, token, session, s.ttls.Seating); err != nil {
		return nil, err
	}
	view := seatViewOf(token, session)
	return &view, nil
}

func (s *BookingService) SelectSeat(ctx context.Context, ns domain.Namespace, token string, input seats.SelectInput) (*SelectResult, error) {
	session, err := s.load(ctx, ns, token)
	if err != nil {
		return nil, err
	}
	if len(session.Flights) == 0 {
		return nil, domain.Validationf("seat maps are not loaded for this booking")
	}
	if err := s.sweep(ctx); err != nil {
		return nil, err
	}

	out, err := s.selector.Select(ctx, session, token, input)
	if err != nil {
		return nil, err
	}
	if err := s.staging.Put(ctx, ns, token, session, s.ttls.Seating); err != nil {
		return nil, err
	}
	return &SelectResult{
		OK:       true,
		FlightID: out.FlightID,
		SeatID:   out.SeatID,
		SeatView: seatViewOf(token, session),
	}, nil
}

func (s *BookingService) ExpireHolds(ctx context.Context) (int64, error) {
	return (&Sweeper{bookings: s.bookings, holdTTL: s.holdTTL, now: s.now}).ExpireHolds(ctx)
}

// Sweeper deletes "reserved" segments older than the hold TTL. The worker runs
// it on a ticker; BookingService runs it before reading seat state.
type Sweeper struct {
	bookings repository.BookingRepository
	holdTTL  time.Duration
	now      func() time.Time
}

func NewSweeper(bookings repository.BookingRepository, holdTTL time.Duration) *Sweeper {
	if holdTTL <= 0 {
		holdTTL = domain.DefaultHoldTTL
	}
	return &Sweeper{bookings: bookings, holdTTL: holdTTL, now: time.Now}
}

func (s *Sweeper) ExpireHolds(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.holdTTL)
	removed, err := s.bookings.ExpireHolds(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire holds: %w", err)
	}
	if removed > 0 {
		log.Printf("[booking] expired %d seat holds reserved before %s", removed, cutoff.Format(time.RFC3339))
	}
	return removed, nil
}

func (s *BookingService) sweep(ctx context.Context) error {
	_, err := s.ExpireHolds(ctx)
	return err
}

func (s *BookingService) load(ctx context.Context, ns domain.Namespace, token string) (*domain.StagingSession, error) {
	session, err := s.staging.Get(ctx, ns, token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func requirePassengers(session *domain.StagingSession) error {
	if session.Itinerary == nil {
		return domain.Validationf("choose an itinerary first")
	}
	if len(session.Passengers) == 0 || len(session.Passengers) != session.PassengerCount {
		return domain.Validationf("load %d passengers first", session.PassengerCount)
	}
	return nil
}

// itineraryFlights resolves the chosen option's flights in leg order.
func (s *BookingService) itineraryFlights(ctx context.Context, session *domain.StagingSession) ([]domain.Flight, error) {
	ids := session.Itinerary.FlightIDs
	if len(ids) == 0 {
		return nil, domain.Validationf("itinerary %d has no flights", session.Itinerary.ID)
	}
	found, err := s.flights.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Flight, len(found))
	for _, f := range found {
		byID[f.ID] = f
	}
	ordered := make([]domain.Flight, 0, len(ids))
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			return nil, domain.NotFoundf("flight %d not found", id)
		}
		ordered = append(ordered, f)
	}
	return ordered, nil
}

func (s *BookingService) releaseOwnLocks(ctx context.Context, session *domain.StagingSession, token string) {
	for _, sel := range session.Selections {
		if sel.SeatID != nil {
			s.releaseLock(ctx, sel.FlightID, *sel.SeatID, token)
		}
	}
}

func (s *BookingService) releaseLock(ctx context.Context, flightID, seatID int64, token string) {
	if s.locks == nil {
		return
	}
	if err := s.locks.ReleaseSeatLock(ctx, flightID, seatID, token); err != nil {
		log.Printf("[booking] WARNING: failed to release seat lock %d/%d: %v", flightID, seatID, err)
	}
}

func viewOf(token string, session *domain.StagingSession) *ItineraryView {
	return &ItineraryView{
		Token:          token,
		Itinerary:      session.Itinerary,
		PassengerCount: session.PassengerCount,
		Passengers:     session.Passengers,
	}
}

func seatViewOf(token string, session *domain.StagingSession) SeatView {
	return SeatView{
		Token:      token,
		Itinerary:  session.Itinerary,
		Passengers: session.Passengers,
		Flights:    session.Flights,
		Selections: session.Selections,
		Locks:      session.Locks,
		Progress:   seats.ComputeProgress(session),
	}
}

var _ BookingUseCase = (*BookingService)(nil)
