package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/itinerary-booking/api"
	"github.com/Domenick1991/itinerary-booking/config"
	bookingsapi "github.com/Domenick1991/itinerary-booking/internal/api/bookings_service_api"
	flightsapi "github.com/Domenick1991/itinerary-booking/internal/api/flights_service_api"
	"github.com/Domenick1991/itinerary-booking/internal/service/booking"
	"github.com/Domenick1991/itinerary-booking/internal/service/flights"
	"google.golang.org/grpc"
)

type Servers struct {
	grpcServer *grpc.Server
	httpServer *http.Server
}

// Run starts the gRPC and HTTP servers and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase) error {
	s := NewServers(cfg, flightSvc, bookingSvc)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	return s.Serve(ctx, lis)
}

func NewServers(cfg *config.Config, flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase) *Servers {
	grpcSrv := grpc.NewServer()
	flightsapi.Register(grpcSrv, flightsapi.NewServer(flightSvc))
	bookingsapi.Register(grpcSrv, bookingsapi.NewServer(bookingSvc, cfg.Auth.JWTSecret))

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           api.NewRouter(cfg, bookingSvc, flightSvc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer: grpcSrv,
		httpServer: httpSrv,
	}
}

// Serve runs gRPC on lis and HTTP on its configured address.
func (s *Servers) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 2)

	go func() { errCh <- s.grpcServer.Serve(lis) }()
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Printf("[bootstrap] http on %s, grpc on %s", s.httpServer.Addr, lis.Addr())

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		_ = s.httpServer.Close()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
