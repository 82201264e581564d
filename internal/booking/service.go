package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jawab-ai/jawab-platform/internal/tenancy"
	"github.com/jawab-ai/jawab-platform/pkg/logging"
)

var bookingTracer = otel.Tracer("jawab.internal.booking")

const defaultDurationMin = 60

// Service computes availability from tenant hours minus calendar busy time
// and records bookings both locally and on the tenant's calendar.
type Service struct {
	store    *Store
	calendar CalendarProvider
	logger   *logging.Logger
	now      func() time.Time
}

// ServiceConfig wires the booking service's collaborators. Calendar may be
// nil when no tenant has connected Google Calendar yet.
type ServiceConfig struct {
	Store    *Store
	Calendar CalendarProvider
	Logger   *logging.Logger
	Now      func() time.Time
}

// NewService constructs the booking service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Store == nil {
		panic("booking: store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:    cfg.Store,
		calendar: cfg.Calendar,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

func (s *Service) durationFor(tenant *tenancy.Tenant, serviceName string) time.Duration {
	for _, svc := range tenant.Services {
		if svc.Name == serviceName && svc.DurationMin > 0 {
			return time.Duration(svc.DurationMin) * time.Minute
		}
	}
	return defaultDurationMin * time.Minute
}

func parseClock(day time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("booking: bad time %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}

// Slots returns bookable intervals for serviceName on the given day. The day
// carries the tenant's timezone; hours outside it are the tenant's problem.
func (s *Service) Slots(ctx context.Context, tenant *tenancy.Tenant, day time.Time, serviceName string) ([]Slot, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.slots")
	defer span.End()
	span.SetAttributes(attribute.String("jawab.tenant_id", tenant.ID))

	hours := tenant.Hours.ForWeekday(day.Weekday())
	if hours == nil {
		return nil, nil
	}
	open, err := parseClock(day, hours.Open)
	if err != nil {
		return nil, err
	}
	close, err := parseClock(day, hours.Close)
	if err != nil {
		return nil, err
	}
	if !open.Before(close) {
		return nil, nil
	}

	busy, err := s.busyFor(ctx, tenant, open, close)
	if err != nil {
		return nil, err
	}

	duration := s.durationFor(tenant, serviceName)
	now := s.now()
	var slots []Slot
	for start := open; !start.Add(duration).After(close); start = start.Add(duration) {
		end := start.Add(duration)
		if end.Before(now) || start.Before(now) {
			continue
		}
		if overlapsAny(busy, start, end) {
			continue
		}
		slots = append(slots, Slot{Start: start, End: end})
	}
	return slots, nil
}

func (s *Service) busyFor(ctx context.Context, tenant *tenancy.Tenant, from, to time.Time) ([]Interval, error) {
	var busy []Interval

	if s.calendar != nil && tenant.Calendar != nil {
		intervals, err := s.calendar.BusyIntervals(ctx, tenant.Calendar, from, to)
		if err != nil {
			return nil, err
		}
		busy = append(busy, intervals...)
	}

	// Bookings taken over channels with no calendar connected still block
	// the slot.
	existing, err := s.store.ListForRange(ctx, tenant.ID, from, to)
	if err != nil {
		return nil, err
	}
	for _, b := range existing {
		busy = append(busy, Interval{Start: b.StartsAt, End: b.EndsAt})
	}
	return busy, nil
}

func overlapsAny(busy []Interval, start, end time.Time) bool {
	for _, iv := range busy {
		if iv.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// BookRequest describes the appointment a customer agreed to.
type BookRequest struct {
	ConversationID string
	CustomerName   string
	CustomerPhone  string
	ServiceName    string
	StartsAt       time.Time
}

// Book records a confirmed booking. When the tenant has Google Calendar
// connected the event is created there first so a calendar failure never
// leaves a phantom local booking.
func (s *Service) Book(ctx context.Context, tenant *tenancy.Tenant, req BookRequest) (*Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(attribute.String("jawab.tenant_id", tenant.ID))

	if req.ServiceName == "" {
		return nil, errors.New("booking: service name is required")
	}
	if req.StartsAt.IsZero() {
		return nil, errors.New("booking: start time is required")
	}

	duration := s.durationFor(tenant, req.ServiceName)
	b := &Booking{
		TenantID:       tenant.ID,
		ConversationID: req.ConversationID,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		ServiceName:    req.ServiceName,
		StartsAt:       req.StartsAt,
		EndsAt:         req.StartsAt.Add(duration),
		Status:         StatusConfirmed,
	}

	taken, err := s.store.ListForRange(ctx, tenant.ID, b.StartsAt, b.EndsAt)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, fmt.Errorf("booking: slot at %s is already taken", b.StartsAt.Format(time.RFC3339))
	}

	if s.calendar != nil && tenant.Calendar != nil {
		eventID, err := s.calendar.CreateEvent(ctx, tenant.Calendar, b)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		b.CalendarEventID = eventID
	}

	if err := s.store.Create(ctx, b); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("booking created",
		"tenant_id", tenant.ID,
		"booking_id", b.ID,
		"service", b.ServiceName,
		"starts_at", b.StartsAt,
	)
	return b, nil
}

// Cancel marks a booking cancelled and removes its calendar event.
func (s *Service) Cancel(ctx context.Context, tenant *tenancy.Tenant, bookingID string) error {
	ctx, span := bookingTracer.Start(ctx, "booking.cancel")
	defer span.End()

	b, err := s.store.Get(ctx, tenant.ID, bookingID)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("booking: booking %s not found", bookingID)
	}

	if b.CalendarEventID != "" && s.calendar != nil && tenant.Calendar != nil {
		if err := s.calendar.DeleteEvent(ctx, tenant.Calendar, b.CalendarEventID); err != nil {
			s.logger.Warn("failed to delete calendar event", "error", err, "booking_id", bookingID)
		}
	}
	if err := s.store.UpdateStatus(ctx, tenant.ID, bookingID, StatusCancelled); err != nil {
		return err
	}
	s.logger.Info("booking cancelled", "tenant_id", tenant.ID, "booking_id", bookingID)
	return nil
}
