package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/itinerary-booking/internal/cache"
	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/Domenick1991/itinerary-booking/internal/kafka"
	"github.com/Domenick1991/itinerary-booking/internal/service/routes"
	"github.com/Domenick1991/itinerary-booking/internal/service/seats"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var (
	nsA = domain.Namespace{Kind: domain.ActorAnonymous, ID: "a"}
	nsB = domain.Namespace{Kind: domain.ActorUser, ID: "42"}

	ana  = domain.PassengerRecord{Name: "Ana Perez", Document: "30111222", Email: "ana@example.com"}
	luis = domain.PassengerRecord{Name: "Luis Gomez", Document: "28999000", Email: "luis@example.com"}
)

type harness struct {
	mr      *miniredis.Miniredis
	store   *memStore
	staging *cache.StagingStore
	svc     *BookingService
}

func newHarness(t *testing.T, withLocks bool, opts ...BookingServiceOption) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newMemStore()
	staging := cache.NewStagingStore(client)
	finder := routes.NewRouteService(routeGraph{store}, store)

	var readerOpts []seats.ReaderOption
	var selectorOpts []seats.SelectorOption
	var serviceOpts []BookingServiceOption
	if withLocks {
		locks := cache.NewRedisCache(client, time.Minute)
		readerOpts = append(readerOpts, seats.WithLockLister(locks))
		selectorOpts = append(selectorOpts, seats.WithLocker(locks))
		serviceOpts = append(serviceOpts, WithSeatLocks(locks))
	}
	reader := seats.NewReader(store, domain.DefaultHoldTTL, readerOpts...)
	selector := seats.NewSelector(domain.DefaultHoldTTL, selectorOpts...)

	serviceOpts = append(serviceOpts, WithAirports(routeGraph{store}))
	svc := NewBookingService(staging, finder, flightCatalog{store}, store, reader, selector, append(serviceOpts, opts...)...)
	return &harness{mr: mr, store: store, staging: staging, svc: svc}
}

// stage walks a session up to the seat map for the AEP → COR → BRC itinerary.
func (h *harness) stage(t *testing.T, ns domain.Namespace, passengers ...domain.PassengerRecord) string {
	t.Helper()
	ctx := context.Background()

	res, err := h.svc.Search(ctx, ns, SearchInput{Origin: "aep", Destination: "BRC", Date: "2026-03-01", Passengers: len(passengers)})
	require.NoError(t, err)
	require.Len(t, res.Itineraries, 1)

	_, err = h.svc.Choose(ctx, ns, res.Token, res.Itineraries[0].ID)
	require.NoError(t, err)
	_, err = h.svc.LoadPassengers(ctx, ns, res.Token, passengers)
	require.NoError(t, err)
	_, err = h.svc.SeatMap(ctx, ns, res.Token)
	require.NoError(t, err)
	return res.Token
}

func (h *harness) pick(t *testing.T, ns domain.Namespace, token, document string, flightID, seatID int64) *SelectResult {
	t.Helper()
	res, err := h.svc.SelectSeat(context.Background(), ns, token, seats.SelectInput{PassengerDocument: document, FlightID: flightID, SeatID: &seatID})
	require.NoError(t, err)
	return res
}

func kindOf(t *testing.T, err error) *domain.BookingError {
	t.Helper()
	be, ok := domain.AsBookingError(err)
	require.True(t, ok, "expected a booking error, got %v", err)
	return be
}

func TestSearch_BuildsOptions(t *testing.T) {
	h := newHarness(t, true)

	res, err := h.svc.Search(context.Background(), nsA, SearchInput{Origin: " aep", Destination: "brc", Date: "2026-03-01", Passengers: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "AEP", res.Origin)
	assert.Equal(t, "BRC", res.Destination)
	assert.Equal(t, 2, res.PassengerCount)
	require.Len(t, res.Itineraries, 1)

	opt := res.Itineraries[0]
	assert.Equal(t, 1, opt.ID)
	assert.Equal(t, []int64{1, 4}, opt.RouteIDs)
	assert.Equal(t, []int64{10, 40}, opt.FlightIDs)
	assert.Equal(t, domain.Cents(25050), opt.TotalPrice)
	assert.Equal(t, 205, opt.DurationMinutes)
	assert.True(t, strings.HasPrefix(opt.RouteSummary, "AEP"))
}

func TestSearch_Validation(t *testing.T) {
	h := newHarness(t, true)

	_, err := h.svc.Search(context.Background(), nsA, SearchInput{Origin: "A1", Destination: "", Date: "01/03/2026", Passengers: 0})
	require.ErrorIs(t, err, domain.ErrValidation)
	be := kindOf(t, err)
	assert.Contains(t, be.Fields, "origin")
	assert.Contains(t, be.Fields, "destination")
	assert.Contains(t, be.Fields, "date")
	assert.Contains(t, be.Fields, "passengers")

	_, err = h.svc.Search(context.Background(), nsA, SearchInput{Origin: "AEP", Destination: "aep", Date: "2026-03-01", Passengers: 1})
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "must differ from origin", kindOf(t, err).Fields["destination"])
}

func TestSearch_NoRouteGivesEmptyList(t *testing.T) {
	h := newHarness(t, true)

	res, err := h.svc.Search(context.Background(), nsA, SearchInput{Origin: "BRC", Destination: "AEP", Date: "2026-03-01", Passengers: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Itineraries)
	assert.NotEmpty(t, res.Token)
}

func TestSearch_UnknownAirport(t *testing.T) {
	h := newHarness(t, true)

	_, err := h.svc.Search(context.Background(), nsA, SearchInput{Origin: "AEP", Destination: "XXX", Date: "2026-03-01", Passengers: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChoose_UnknownOption(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	res, err := h.svc.Search(ctx, nsA, SearchInput{Origin: "AEP", Destination: "BRC", Date: "2026-03-01", Passengers: 1})
	require.NoError(t, err)

	_, err = h.svc.Choose(ctx, nsA, res.Token, 7)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSession_ScopedToNamespace(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	res, err := h.svc.Search(ctx, nsA, SearchInput{Origin: "AEP", Destination: "BRC", Date: "2026-03-01", Passengers: 1})
	require.NoError(t, err)

	_, err = h.svc.Choose(ctx, nsB, res.Token, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.svc.Summary(ctx, nsA, "missing-token")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLoadPassengers_Validation(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	res, err := h.svc.Search(ctx, nsA, SearchInput{Origin: "AEP", Destination: "BRC", Date: "2026-03-01", Passengers: 2})
	require.NoError(t, err)
	_, err = h.svc.Choose(ctx, nsA, res.Token, 1)
	require.NoError(t, err)

	_, err = h.svc.LoadPassengers(ctx, nsA, res.Token, []domain.PassengerRecord{ana})
	assert.ErrorIs(t, err, domain.ErrValidation)

	dup := luis
	dup.Document = ana.Document
	dup.Email = "not-an-email"
	_, err = h.svc.LoadPassengers(ctx, nsA, res.Token, []domain.PassengerRecord{ana, dup})
	require.ErrorIs(t, err, domain.ErrValidation)
	be := kindOf(t, err)
	assert.Contains(t, be.Fields, "passengers[1].document")
	assert.Contains(t, be.Fields, "passengers[1].email")

	view, err := h.svc.LoadPassengers(ctx, nsA, res.Token, []domain.PassengerRecord{ana, luis})
	require.NoError(t, err)
	require.Len(t, view.Passengers, 2)
	assert.Equal(t, domain.DocumentTypeDNI, view.Passengers[0].DocumentType)
}

func TestSeatMap_RequiresPassengers(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	res, err := h.svc.Search(ctx, nsA, SearchInput{Origin: "AEP", Destination: "BRC", Date: "2026-03-01", Passengers: 1})
	require.NoError(t, err)
	_, err = h.svc.Choose(ctx, nsA, res.Token, 1)
	require.NoError(t, err)

	_, err = h.svc.SeatMap(ctx, nsA, res.Token)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSeatMap_GridsInLegOrder(t *testing.T) {
	h := newHarness(t, true)
	token := h.stage(t, nsA, ana)

	view, err := h.svc.SeatMap(context.Background(), nsA, token)
	require.NoError(t, err)
	require.Len(t, view.Flights, 2)
	assert.Equal(t, int64(10), view.Flights[0].ID)
	assert.Equal(t, "SK0010", view.Flights[0].Code)
	assert.Equal(t, int64(40), view.Flights[1].ID)
	assert.Equal(t, int64(2), view.Flights[0].SeatMap.Version)
	assert.Len(t, view.Selections, 2)
	assert.False(t, view.Progress.Complete)
}

func TestSelectSeat_ReselectRefreshesSessionOnly(t *testing.T) {
	h := newHarness(t, true)
	token := h.stage(t, nsA, ana)

	first := h.pick(t, nsA, token, ana.Document, 10, 101)
	version := first.Flights[0].SeatMap.Version

	h.mr.FastForward(4 * time.Minute)
	again := h.pick(t, nsA, token, ana.Document, 10, 101)

	assert.Equal(t, version, again.Flights[0].SeatMap.Version)
	assert.Equal(t, DefaultTTLs().Seating, h.mr.TTL("staging:anonymous:a:"+token))
}

func TestSelectSeat_LockedBySessionStagedEarlier(t *testing.T) {
	h := newHarness(t, true)
	tokenA := h.stage(t, nsA, ana)
	tokenB := h.stage(t, nsB, luis)

	h.pick(t, nsA, tokenA, ana.Document, 10, 101)

	seat := int64(101)
	_, err := h.svc.SelectSeat(context.Background(), nsB, tokenB, seats.SelectInput{PassengerDocument: luis.Document, FlightID: 10, SeatID: &seat})
	require.ErrorIs(t, err, domain.ErrConflict)
	be := kindOf(t, err)
	assert.Equal(t, int64(10), be.FlightID)
	assert.Equal(t, int64(101), be.SeatID)

	view, err := h.svc.SeatMap(context.Background(), nsB, tokenB)
	require.NoError(t, err)
	assert.Equal(t, domain.SeatHeld, view.Flights[0].SeatMap.Find(101).Status)
}

func TestSummary_Preview(t *testing.T) {
	h := newHarness(t, true)
	token := h.stage(t, nsA, ana, luis)
	h.pick(t, nsA, token, ana.Document, 10, 101)

	preview, err := h.svc.Summary(context.Background(), nsA, token)
	require.NoError(t, err)

	assert.True(t, preview.Preview)
	require.Len(t, preview.GroupItineraries, 2)

	first := preview.GroupItineraries[0]
	assert.Nil(t, first.ID)
	assert.Nil(t, first.Ticket)
	assert.Equal(t, token, first.ReservationCode)
	assert.Equal(t, "1A", first.Flights[0].Seat)
	assert.Equal(t, notAssigned, first.Flights[1].Seat)
	assert.Equal(t, domain.Cents(25050), first.TotalPrice)
	assert.Equal(t, "Aeroparque - Buenos Aires", first.Flights[0].Origin)

	for _, line := range preview.GroupItineraries[1].Flights {
		assert.Equal(t, notAssigned, line.Seat)
		assert.Nil(t, line.SeatID)
	}
	assert.Equal(t, counts{}, h.store.counts())
}

func TestConfirm_EndToEnd(t *testing.T) {
	producer := new(MockProducer)
	producer.On("Publish", mock.Anything, "itinerary-events", mock.Anything, mock.MatchedBy(func(e kafka.ItineraryEvent) bool {
		return e.Type == kafka.EventItineraryConfirmed && len(e.Legs) == 2 && e.Barcode != ""
	})).Return(nil)
	producer.On("Publish", mock.Anything, "notifications", mock.Anything, mock.Anything).Return(nil)

	h := newHarness(t, true, WithProducer(producer, "itinerary-events"), WithNotificationsTopic("notifications"))
	ctx := context.Background()
	token := h.stage(t, nsA, ana, luis)

	h.pick(t, nsA, token, ana.Document, 10, 101)
	h.pick(t, nsA, token, ana.Document, 40, 201)
	h.pick(t, nsA, token, luis.Document, 10, 102)
	last := h.pick(t, nsA, token, luis.Document, 40, 202)
	assert.True(t, last.Progress.Complete)

	res, err := h.svc.Confirm(ctx, nsA, token)
	require.NoError(t, err)

	assert.False(t, res.Preview)
	require.Len(t, res.GroupItineraries, 2)
	for _, group := range res.GroupItineraries {
		require.NotNil(t, group.ID)
		require.Len(t, group.Flights, 2)
		assert.Len(t, group.ReservationCode, 8)
		assert.Equal(t, strings.ToUpper(group.ReservationCode), group.ReservationCode)
		assert.Equal(t, domain.Cents(25050), group.TotalPrice)
		require.NotNil(t, group.Ticket)
		assert.Equal(t, domain.TicketStatusIssued, group.Ticket.Status)
		assert.True(t, strings.HasPrefix(group.Ticket.Barcode, group.ReservationCode+"-"))
	}
	assert.Equal(t, "1A", res.GroupItineraries[0].Flights[0].Seat)
	assert.Equal(t, "2B", res.GroupItineraries[1].Flights[1].Seat)
	assert.NotEqual(t, res.GroupItineraries[0].ReservationCode, res.GroupItineraries[1].ReservationCode)

	assert.Equal(t, counts{passengers: 2, itineraries: 2, segments: 4, tickets: 2}, h.store.counts())
	for _, seg := range h.store.segments {
		assert.Equal(t, domain.SegmentStatusConfirmed, seg.Status)
	}

	_, err = h.svc.Summary(ctx, nsA, token)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = h.svc.Confirm(ctx, nsA, token)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, key := range h.mr.Keys() {
		assert.False(t, strings.HasPrefix(key, "lock:"), "lock %s left behind", key)
	}
	producer.AssertNumberOfCalls(t, "Publish", 4)
}

func TestConfirm_ReusesExistingPassenger(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	first := h.stage(t, nsA, ana)
	h.pick(t, nsA, first, ana.Document, 10, 101)
	h.pick(t, nsA, first, ana.Document, 40, 201)
	_, err := h.svc.Confirm(ctx, nsA, first)
	require.NoError(t, err)

	second := h.stage(t, nsA, ana)
	h.pick(t, nsA, second, ana.Document, 10, 102)
	h.pick(t, nsA, second, ana.Document, 40, 202)
	_, err = h.svc.Confirm(ctx, nsA, second)
	require.NoError(t, err)

	assert.Equal(t, counts{passengers: 1, itineraries: 2, segments: 4, tickets: 2}, h.store.counts())
}

func TestConfirm_IncompleteWritesNothing(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	token := h.stage(t, nsA, ana, luis)
	h.pick(t, nsA, token, ana.Document, 10, 101)
	h.pick(t, nsA, token, ana.Document, 40, 201)
	h.pick(t, nsA, token, luis.Document, 10, 102)

	_, err := h.svc.Confirm(ctx, nsA, token)
	require.ErrorIs(t, err, domain.ErrValidation)
	be := kindOf(t, err)
	assert.Equal(t, luis.Document, be.PassengerDocument)
	assert.Equal(t, int64(40), be.FlightID)

	assert.Equal(t, counts{}, h.store.counts())
	_, err = h.svc.Summary(ctx, nsA, token)
	assert.NoError(t, err)
}

func TestConfirm_SameSeatTwiceInBatch(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	token := h.stage(t, nsA, ana, luis)
	h.pick(t, nsA, token, ana.Document, 10, 101)
	h.pick(t, nsA, token, ana.Document, 40, 201)
	h.pick(t, nsA, token, luis.Document, 10, 102)
	h.pick(t, nsA, token, luis.Document, 40, 202)

	session, err := h.staging.Get(ctx, nsA, token)
	require.NoError(t, err)
	for i := range session.Selections {
		if session.Selections[i].PassengerDocument == luis.Document && session.Selections[i].FlightID == 10 {
			seat := int64(101)
			session.Selections[i].SeatID = &seat
		}
	}
	require.NoError(t, h.staging.Put(ctx, nsA, token, session, time.Minute))

	_, err = h.svc.Confirm(ctx, nsA, token)
	require.ErrorIs(t, err, domain.ErrConflict)
	be := kindOf(t, err)
	assert.Equal(t, int64(10), be.FlightID)
	assert.Equal(t, int64(101), be.SeatID)
	assert.Equal(t, counts{}, h.store.counts())
}

func TestConfirm_SeatTakenSinceSelection(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	token := h.stage(t, nsA, ana)
	h.pick(t, nsA, token, ana.Document, 10, 101)
	h.pick(t, nsA, token, ana.Document, 40, 201)

	seat := int64(201)
	h.store.addSegment(domain.FlightSegment{FlightID: 40, SeatID: &seat, Status: domain.SegmentStatusConfirmed, Price: 15050})

	_, err := h.svc.Confirm(ctx, nsA, token)
	require.ErrorIs(t, err, domain.ErrConflict)
	be := kindOf(t, err)
	assert.Equal(t, int64(40), be.FlightID)
	assert.Equal(t, int64(201), be.SeatID)
	assert.Equal(t, ana.Document, be.PassengerDocument)
	assert.Contains(t, be.Message, "2A")

	assert.Equal(t, counts{itineraries: 1, segments: 1}, h.store.counts())
}

func TestConfirm_InactiveFlight(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	token := h.stage(t, nsA, ana)
	h.pick(t, nsA, token, ana.Document, 10, 101)
	h.pick(t, nsA, token, ana.Document, 40, 201)

	h.store.setFlightStatus(40, domain.FlightStatusCancelled)

	_, err := h.svc.Confirm(ctx, nsA, token)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, int64(40), kindOf(t, err).FlightID)
	assert.Equal(t, counts{}, h.store.counts())
}

func TestConfirm_ReservationCodeCollision(t *testing.T) {
	t.Run("retried once", func(t *testing.T) {
		h := newHarness(t, true)
		token := h.stage(t, nsA, ana)
		h.pick(t, nsA, token, ana.Document, 10, 101)
		h.pick(t, nsA, token, ana.Document, 40, 201)
		h.store.rejectCodes = 1

		_, err := h.svc.Confirm(context.Background(), nsA, token)
		require.NoError(t, err)
		assert.Equal(t, 1, h.store.counts().itineraries)
	})

	t.Run("second collision fails", func(t *testing.T) {
		h := newHarness(t, true)
		token := h.stage(t, nsA, ana)
		h.pick(t, nsA, token, ana.Document, 10, 101)
		h.pick(t, nsA, token, ana.Document, 40, 201)
		h.store.rejectCodes = 2

		_, err := h.svc.Confirm(context.Background(), nsA, token)
		require.ErrorIs(t, err, domain.ErrIntegrity)
		assert.Equal(t, counts{}, h.store.counts())
	})
}

func TestConfirm_ConcurrentSessionsOneWinner(t *testing.T) {
	h := newHarness(t, false)
	tokenA := h.stage(t, nsA, ana)
	tokenB := h.stage(t, nsB, luis)
	for _, s := range []struct {
		ns    domain.Namespace
		token string
		doc   string
	}{{nsA, tokenA, ana.Document}, {nsB, tokenB, luis.Document}} {
		h.pick(t, s.ns, s.token, s.doc, 10, 101)
		h.pick(t, s.ns, s.token, s.doc, 40, 201)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, s := range []struct {
		ns    domain.Namespace
		token string
	}{{nsA, tokenA}, {nsB, tokenB}} {
		wg.Add(1)
		go func(i int, ns domain.Namespace, token string) {
			defer wg.Done()
			_, errs[i] = h.svc.Confirm(context.Background(), ns, token)
		}(i, s.ns, s.token)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 2, h.store.counts().segments)
}

func TestExpireHolds(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	stale := time.Now().Add(-10 * time.Minute)
	fresh := time.Now().Add(-time.Minute)
	s101, s102 := int64(101), int64(102)
	h.store.addSegment(domain.FlightSegment{FlightID: 10, SeatID: &s101, Status: domain.SegmentStatusReserved, ReservedAt: &stale})
	h.store.addSegment(domain.FlightSegment{FlightID: 10, SeatID: &s102, Status: domain.SegmentStatusReserved, ReservedAt: &fresh})

	token := h.stage(t, nsA, ana)
	view, err := h.svc.SeatMap(ctx, nsA, token)
	require.NoError(t, err)

	grid := view.Flights[0].SeatMap
	assert.Equal(t, domain.SeatAvailable, grid.Find(101).Status)
	assert.Equal(t, domain.SeatHeld, grid.Find(102).Status)
	assert.Equal(t, counts{itineraries: 1, segments: 1}, h.store.counts())

	removed, err := h.svc.ExpireHolds(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestSweeper_ExpireHolds(t *testing.T) {
	store := newMemStore()
	stale := time.Now().Add(-10 * time.Minute)
	fresh := time.Now().Add(-time.Minute)
	s101, s102 := int64(101), int64(102)
	store.addSegment(domain.FlightSegment{FlightID: 10, SeatID: &s101, Status: domain.SegmentStatusReserved, ReservedAt: &stale})
	store.addSegment(domain.FlightSegment{FlightID: 10, SeatID: &s102, Status: domain.SegmentStatusReserved, ReservedAt: &fresh})

	removed, err := NewSweeper(store, 0).ExpireHolds(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, counts{itineraries: 1, segments: 1}, store.counts())
}
