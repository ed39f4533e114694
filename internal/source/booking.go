package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"blockdates/internal/models"
)

// activeStatuses are booking states that occupy capacity. Cancelled bookings
// free their slot.
var activeStatuses = []string{"pending", "confirmed", "completed"}

// BookingLedger reads booking counts from the host application's sqlite
// ledger. The table is owned elsewhere; this adapter only queries it.
type BookingLedger struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// OpenBookingLedger opens the ledger read-only with a busy timeout.
func OpenBookingLedger(path string, logger *zerolog.Logger) (*BookingLedger, error) {
	// The file: prefix is required for mode=ro to take effect; without it
	// the driver treats the whole string as a path and opens read-write.
	// Journal mode is left to the ledger owner; a read-only connection
	// cannot switch a database into WAL anyway.
	dsn := "file:" + path + "?mode=ro&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open booking ledger: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to booking ledger: %w", err)
	}

	logger.Info().Str("path", path).Msg("booking ledger opened")
	return &BookingLedger{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (l *BookingLedger) Close() error {
	return l.db.Close()
}

// PingContext reports ledger reachability for readiness checks.
func (l *BookingLedger) PingContext(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

// BookingCounts returns the number of active bookings per date for the
// resource within the range.
func (l *BookingLedger) BookingCounts(ctx context.Context, resource models.Resource, dr models.DateRange) (models.BookingCounts, error) {
	query := `
		SELECT date(start_date), COUNT(*)
		FROM bookings
		WHERE staff_id = ? AND meeting_id = ?
		  AND date(start_date) BETWEEN ? AND ?
		  AND status IN (?, ?, ?)
		GROUP BY date(start_date)`

	rows, err := l.db.QueryContext(ctx, query,
		resource.StaffID, resource.MeetingID,
		dr.Start.Format(models.DateLayout), dr.End.Format(models.DateLayout),
		activeStatuses[0], activeStatuses[1], activeStatuses[2],
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query booking counts: %v", models.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	counts := make(models.BookingCounts)
	for rows.Next() {
		var date string
		var count int
		if err := rows.Scan(&date, &count); err != nil {
			return nil, fmt.Errorf("scan booking count: %w", err)
		}
		counts[date] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read booking counts: %v", models.ErrSourceUnavailable, err)
	}

	return counts, nil
}
