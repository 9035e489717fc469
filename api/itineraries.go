package api

import (
	"net/http"

	"github.com/Domenick1991/itinerary-booking/internal/domain"
	"github.com/Domenick1991/itinerary-booking/internal/service/booking"
	"github.com/Domenick1991/itinerary-booking/internal/service/seats"
	"github.com/gin-gonic/gin"
)

type ItineraryHandler struct {
	service booking.BookingUseCase
}

type chooseRequest struct {
	ItineraryID int `json:"itinerary_id" binding:"required,min=1"`
}

type passengersRequest struct {
	Passengers []domain.PassengerRecord `json:"passengers" binding:"required"`
}

func NewItineraryHandler(service booking.BookingUseCase) *ItineraryHandler {
	return &ItineraryHandler{service: service}
}

func (h *ItineraryHandler) Register(router *gin.RouterGroup) {
	router.POST("/search", h.search)
	router.POST("/:token/choose", h.choose)
	router.GET("/:token/passengers", h.passengers)
	router.POST("/:token/passengers", h.loadPassengers)
	router.GET("/:token/seat", h.seatMap)
	router.POST("/:token/seat", h.selectSeat)
	router.GET("/:token/summary", h.summary)
	router.POST("/:token/confirm", h.confirm)
}

func badBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
}

func (h *ItineraryHandler) search(c *gin.Context) {
	var req booking.SearchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	res, err := h.service.Search(c.Request.Context(), namespaceOf(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ItineraryHandler) choose(c *gin.Context) {
	var req chooseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	view, err := h.service.Choose(c.Request.Context(), namespaceOf(c), c.Param("token"), req.ItineraryID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ItineraryHandler) passengers(c *gin.Context) {
	view, err := h.service.Passengers(c.Request.Context(), namespaceOf(c), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ItineraryHandler) loadPassengers(c *gin.Context) {
	var req passengersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	view, err := h.service.LoadPassengers(c.Request.Context(), namespaceOf(c), c.Param("token"), req.Passengers)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ItineraryHandler) seatMap(c *gin.Context) {
	view, err := h.service.SeatMap(c.Request.Context(), namespaceOf(c), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ItineraryHandler) selectSeat(c *gin.Context) {
	var req seats.SelectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	res, err := h.service.SelectSeat(c.Request.Context(), namespaceOf(c), c.Param("token"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ItineraryHandler) summary(c *gin.Context) {
	preview, err := h.service.Summary(c.Request.Context(), namespaceOf(c), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (h *ItineraryHandler) confirm(c *gin.Context) {
	res, err := h.service.Confirm(c.Request.Context(), namespaceOf(c), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
