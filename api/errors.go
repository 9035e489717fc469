package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/gin-gonic/gin"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	body := gin.H{"error": err.Error()}

	if be, ok := domain.AsBookingError(err); ok {
		if len(be.Fields) > 0 {
			body["fields"] = be.Fields
		}
		if be.PassengerDocument != "" {
			body["passenger_document"] = be.PassengerDocument
		}
		if be.FlightID != 0 {
			body["flight_id"] = be.FlightID
		}
		if be.SeatID != 0 {
			body["seat_id"] = be.SeatID
		}
	}
	if status == http.StatusInternalServerError {
		log.Printf("[api] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, body)
}
