package api

import (
	"net/http"

	"github.com/Domenick1991/itinerary-booking/config"
	"github.com/Domenick1991/itinerary-booking/internal/service/booking"
	"github.com/Domenick1991/itinerary-booking/internal/service/flights"
	"github.com/gin-gonic/gin"
)

func NewRouter(cfg *config.Config, bookings booking.BookingUseCase, catalog flights.FlightUseCase) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	RegisterDocs(router, cfg.HTTP.SwaggerFile)

	NewFlightHandler(catalog).Register(router.Group("/flights"))

	itineraries := router.Group("/itineraries", ActorMiddleware(cfg.Auth))
	NewItineraryHandler(bookings).Register(itineraries)
	return router
}
