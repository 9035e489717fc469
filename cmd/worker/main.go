package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/itinerary-booking/config"
	"github.com/Domenick1991/itinerary-booking/internal/email"
	"github.com/Domenick1991/itinerary-booking/internal/kafka"
	"github.com/Domenick1991/itinerary-booking/internal/repository"
	"github.com/Domenick1991/itinerary-booking/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
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

	sweeper := booking.NewSweeper(repository.NewBookingRepository(pool), cfg.Booking.HoldTTL())

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	sender := email.NewSender(cfg.Worker.EmailFrom)
	handler := kafka.ItineraryHandler(
		func(ctx context.Context, event kafka.ItineraryEvent) error {
			if err := sender.Send(ctx, event); err != nil {
				log.Printf("[worker] ticket e-mail for %s not sent: %v", event.ReservationCode, err)
			}
			return nil
		},
		func(msg kafkaGo.Message, err error) {
			log.Printf("[worker] skipping message at offset %d: %v", msg.Offset, err)
		},
	)

	go func() {
		if err := consumer.Consume(ctx, handler); err != nil && ctx.Err() == nil {
			log.Printf("[worker] consumer stopped: %v", err)
		}
	}()

	sweep := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer sweep.Stop()

	for {
		select {
		case <-sweep.C:
			if _, err := sweeper.ExpireHolds(ctx); err != nil {
				log.Printf("[worker] expire holds error: %v", err)
			}
		case <-ctx.Done():
			log.Printf("[worker] shutting down")
			return
		}
	}
}
