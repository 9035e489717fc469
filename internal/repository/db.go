package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

const uniqueViolation = "23505"

// Constraint names from internal/migrations/sql/00002_reservations.sql.
const (
	segmentSeatKey     = "flight_segments_flight_seat_key"
	reservationCodeKey = "itineraries_reservation_code_key"
	ticketBarcodeKey   = "tickets_barcode_key"
)

func uniqueViolationOn(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

type rowScanner interface {
	Scan(dest ...any) error
}
