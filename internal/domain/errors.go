package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every BookingError unwraps to exactly one of them.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrIntegrity  = errors.New("integrity violation")
)

type BookingError struct {
	Kind    error
	Message string
	Fields  map[string]string

	PassengerDocument string
	FlightID          int64
	SeatID            int64
}

func (e *BookingError) Error() string {
	return e.Message
}

func (e *BookingError) Unwrap() error {
	return e.Kind
}

func NotFoundf(format string, args ...any) *BookingError {
	return &BookingError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *BookingError {
	return &BookingError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func Integrityf(format string, args ...any) *BookingError {
	return &BookingError{Kind: ErrIntegrity, Message: fmt.Sprintf(format, args...)}
}

// FieldErrors builds a validation failure with a per-field breakdown.
func FieldErrors(fields map[string]string) *BookingError {
	return &BookingError{Kind: ErrValidation, Message: "invalid request", Fields: fields}
}

// SeatConflict identifies the flight and seat that lost a race.
func SeatConflict(flightID, seatID int64, label string) *BookingError {
	if label == "" {
		label = fmt.Sprintf("#%d", seatID)
	}
	return &BookingError{
		Kind:     ErrConflict,
		Message:  fmt.Sprintf("seat %s is already taken on flight %d", label, flightID),
		FlightID: flightID,
		SeatID:   seatID,
	}
}

var ErrSessionNotFound = NotFoundf("booking session not found or expired")

// AsBookingError extracts the typed error, if any.
func AsBookingError(err error) (*BookingError, bool) {
	var be *BookingError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
