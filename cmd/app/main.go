package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/itinerary-booking/config"
	"github.com/Domenick1991/itinerary-booking/internal/bootstrap"
	"github.com/Domenick1991/itinerary-booking/internal/cache"
	"github.com/Domenick1991/itinerary-booking/internal/kafka"
	"github.com/Domenick1991/itinerary-booking/internal/migrations"
	"github.com/Domenick1991/itinerary-booking/internal/repository"
	"github.com/Domenick1991/itinerary-booking/internal/service/booking"
	"github.com/Domenick1991/itinerary-booking/internal/service/flights"
	"github.com/Domenick1991/itinerary-booking/internal/service/routes"
	"github.com/Domenick1991/itinerary-booking/internal/service/seats"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, pool); err != nil {
			log.Fatalf("apply migrations: %v", err)
		}
	}

	redisClient := cache.NewClient(cfg.Redis)
	defer redisClient.Close()
	redisCache := cache.NewRedisCache(redisClient, time.Duration(cfg.Booking.FlightsCacheTTL)*time.Second)
	staging := cache.NewStagingStore(redisClient)

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		log.Printf("[app] WARNING: kafka unavailable, confirmation events will be dropped: %v", err)
	}

	routeRepo := repository.NewRouteRepository(pool)
	flightRepo := repository.NewFlightRepository(pool)
	seatRepo := repository.NewSeatRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	holdTTL := cfg.Booking.HoldTTL()
	finder := routes.NewRouteService(routeRepo, flightRepo,
		routes.WithMaxDepth(cfg.Booking.MaxRouteDepth),
		routes.WithConnectionWindow(time.Duration(cfg.Booking.ConnectionWindowMinutes)*time.Minute),
	)
	reader := seats.NewReader(seatRepo, holdTTL, seats.WithLockLister(redisCache))
	selector := seats.NewSelector(holdTTL, seats.WithLocker(redisCache))

	flightService := flights.NewFlightService(flightRepo, redisCache)
	bookingService := booking.NewBookingService(
		staging,
		finder,
		flightRepo,
		bookingRepo,
		reader,
		selector,
		booking.WithProducer(producer, cfg.Kafka.BookingTopic),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithSeatLocks(redisCache),
		booking.WithAirports(routeRepo),
		booking.WithHoldTTL(holdTTL),
		booking.WithTTLs(booking.TTLs{
			Search:     time.Duration(cfg.Booking.SearchTTLMinutes) * time.Minute,
			Chosen:     time.Duration(cfg.Booking.ChosenTTLMinutes) * time.Minute,
			Passengers: time.Duration(cfg.Booking.PassengersTTLMinutes) * time.Minute,
			Seating:    time.Duration(cfg.Booking.SeatingTTLMinutes) * time.Minute,
		}),
	)

	if err := bootstrap.Run(ctx, cfg, flightService, bookingService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
