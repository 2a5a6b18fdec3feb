package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainbooking "lendit/internal/domain/booking"
	domainitems "lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
)

type BookingRepository struct {
	conn
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{conn{pool: pool}}
}

const bookingColumns = `id, item_id, borrower_id, lender_id, start_date, end_date, rate_amount, total_amount, currency, status, payment_status, cancelled_by, created_at, updated_at, version`

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	b, err := scanBooking(r.queryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", translate(err))
	}
	return b, nil
}

// Save performs a compare-and-swap on version.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	next := b.Version + 1
	if b.Version == 0 {
		const stmt = `
INSERT INTO bookings (` + bookingColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
		_, err := r.exec(ctx, stmt,
			string(b.ID),
			string(b.ItemID),
			b.BorrowerID,
			b.LenderID,
			b.Range.Start.UTC(),
			b.Range.End.UTC(),
			b.DailyRate.Amount,
			b.Total.Amount,
			b.Total.Currency,
			string(b.Status),
			string(b.PaymentStatus),
			b.CancelledBy,
			b.CreatedAt.UTC(),
			b.UpdatedAt.UTC(),
			next,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domainbooking.ErrConcurrentUpdate
			}
			return fmt.Errorf("insert booking: %w", translate(err))
		}
		b.Version = next
		return nil
	}

	const stmt = `
UPDATE bookings
SET status = $3, payment_status = $4, cancelled_by = $5, updated_at = $6, version = $7
WHERE id = $1 AND version = $2`
	tag, err := r.exec(ctx, stmt,
		string(b.ID),
		b.Version,
		string(b.Status),
		string(b.PaymentStatus),
		b.CancelledBy,
		b.UpdatedAt.UTC(),
		next,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = next
	return nil
}

func (r *BookingRepository) Overlapping(ctx context.Context, itemID domainitems.ItemID, dr daterange.DateRange, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	const sql = `SELECT ` + bookingColumns + ` FROM bookings
WHERE item_id = $1 AND start_date < $2 AND end_date > $3 AND (cardinality($4::text[]) = 0 OR status = ANY($4))
ORDER BY start_date, id`
	return r.list(ctx, sql, string(itemID), dr.End.UTC(), dr.Start.UTC(), statusValues(statuses))
}

func (r *BookingRepository) ListByBorrower(ctx context.Context, borrowerID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE borrower_id = $1 ORDER BY start_date, id`, borrowerID)
}

func (r *BookingRepository) ListByLender(ctx context.Context, lenderID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE lender_id = $1 ORDER BY start_date, id`, lenderID)
}

func (r *BookingRepository) ListEndedBefore(ctx context.Context, status domainbooking.Status, end time.Time, limit int) ([]*domainbooking.Booking, error) {
	if limit <= 0 {
		limit = 1000
	}
	const sql = `SELECT ` + bookingColumns + ` FROM bookings
WHERE status = $1 AND end_date < $2
ORDER BY start_date, id
LIMIT $3`
	return r.list(ctx, sql, string(status), end.UTC(), limit)
}

func (r *BookingRepository) list(ctx context.Context, sql string, args ...any) ([]*domainbooking.Booking, error) {
	rows, err := r.query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", translate(err))
	}
	defer rows.Close()
	out := make([]*domainbooking.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func statusValues(statuses []domainbooking.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

func scanBooking(row pgx.Row) (*domainbooking.Booking, error) {
	var (
		b             domainbooking.Booking
		id, itemID    string
		start, end    time.Time
		rate, total   int64
		currency      string
		status        string
		paymentStatus string
	)
	err := row.Scan(
		&id,
		&itemID,
		&b.BorrowerID,
		&b.LenderID,
		&start,
		&end,
		&rate,
		&total,
		&currency,
		&status,
		&paymentStatus,
		&b.CancelledBy,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.ID = domainbooking.BookingID(id)
	b.ItemID = domainitems.ItemID(itemID)
	b.Range = daterange.DateRange{Start: start.UTC(), End: end.UTC()}
	b.DailyRate.Amount, b.DailyRate.Currency = rate, currency
	b.Total.Amount, b.Total.Currency = total, currency
	b.Status = domainbooking.Status(status)
	b.PaymentStatus = domainbooking.PaymentStatus(paymentStatus)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
