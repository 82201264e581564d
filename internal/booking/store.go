package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const bookingColumns = `id, tenant_id, conversation_id, customer_name, customer_phone,
	service_name, starts_at, ends_at, status, calendar_event_id, created_at`

// Store persists bookings in Postgres.
type Store struct {
	db *sql.DB
}

// NewStore creates a booking store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a booking row. The id is assigned here when empty.
func (s *Store) Create(ctx context.Context, b *Booking) error {
	if s.db == nil {
		return errors.New("booking: store is not configured")
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = StatusConfirmed
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (id, tenant_id, conversation_id, customer_name, customer_phone,
			service_name, starts_at, ends_at, status, calendar_event_id, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)`,
		b.ID, b.TenantID, b.ConversationID, b.CustomerName, b.CustomerPhone,
		b.ServiceName, b.StartsAt, b.EndsAt, b.Status, b.CalendarEventID, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: failed to insert booking: %w", err)
	}
	return nil
}

// Get loads a booking scoped to a tenant. Returns (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, tenantID, bookingID string) (*Booking, error) {
	if s.db == nil {
		return nil, errors.New("booking: store is not configured")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 AND tenant_id = $2`,
		bookingID, tenantID,
	)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("booking: failed to load booking: %w", err)
	}
	return b, nil
}

// ListForRange returns a tenant's non-cancelled bookings overlapping
// [from, to), soonest first.
func (s *Store) ListForRange(ctx context.Context, tenantID string, from, to time.Time) ([]*Booking, error) {
	if s.db == nil {
		return nil, errors.New("booking: store is not configured")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE tenant_id = $1 AND status != $2 AND starts_at < $3 AND ends_at > $4
		ORDER BY starts_at ASC`,
		tenantID, StatusCancelled, to, from,
	)
	if err != nil {
		return nil, fmt.Errorf("booking: failed to list bookings: %w", err)
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("booking: failed to scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a booking's status.
func (s *Store) UpdateStatus(ctx context.Context, tenantID, bookingID, status string) error {
	if s.db == nil {
		return errors.New("booking: store is not configured")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET status = $1 WHERE id = $2 AND tenant_id = $3`,
		status, bookingID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("booking: failed to update status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("booking: booking %s not found for tenant %s", bookingID, tenantID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*Booking, error) {
	var b Booking
	var conversationID, eventID sql.NullString
	err := row.Scan(
		&b.ID, &b.TenantID, &conversationID, &b.CustomerName, &b.CustomerPhone,
		&b.ServiceName, &b.StartsAt, &b.EndsAt, &b.Status, &eventID, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.ConversationID = conversationID.String
	b.CalendarEventID = eventID.String
	return &b, nil
}
