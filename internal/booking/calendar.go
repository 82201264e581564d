package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/jawab-ai/jawab-platform/internal/tenancy"
)

// CalendarProvider is the calendar surface the booking service needs. The
// Google implementation is the only one today; tests substitute a fake.
type CalendarProvider interface {
	BusyIntervals(ctx context.Context, binding *tenancy.CalendarBinding, from, to time.Time) ([]Interval, error)
	CreateEvent(ctx context.Context, binding *tenancy.CalendarBinding, b *Booking) (string, error)
	DeleteEvent(ctx context.Context, binding *tenancy.CalendarBinding, eventID string) error
}

// GoogleCalendarConfig holds the OAuth application credentials. Per-tenant
// tokens live on the tenant's calendar binding.
type GoogleCalendarConfig struct {
	ClientID     string
	ClientSecret string
}

// GoogleCalendar talks to the Google Calendar API with tenant-scoped OAuth
// tokens.
type GoogleCalendar struct {
	oauth *oauth2.Config
}

// NewGoogleCalendar builds the provider from application OAuth credentials.
func NewGoogleCalendar(cfg GoogleCalendarConfig) (*GoogleCalendar, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("booking: google calendar client credentials are required")
	}
	return &GoogleCalendar{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     googleoauth.Endpoint,
			Scopes:       []string{calendar.CalendarEventsScope, calendar.CalendarReadonlyScope},
		},
	}, nil
}

func (g *GoogleCalendar) service(ctx context.Context, binding *tenancy.CalendarBinding) (*calendar.Service, error) {
	if binding == nil || binding.AccessToken == "" {
		return nil, errors.New("booking: tenant has no calendar connected")
	}
	token := &oauth2.Token{
		AccessToken:  binding.AccessToken,
		RefreshToken: binding.RefreshToken,
		// Force the token source to refresh when a refresh token exists;
		// stored access tokens are usually stale.
		Expiry: time.Now().Add(-time.Minute),
	}
	if binding.RefreshToken == "" {
		token.Expiry = time.Time{}
	}
	svc, err := calendar.NewService(ctx, option.WithTokenSource(g.oauth.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("booking: failed to build calendar client: %w", err)
	}
	return svc, nil
}

func calendarID(binding *tenancy.CalendarBinding) string {
	if binding != nil && binding.CalendarID != "" {
		return binding.CalendarID
	}
	return "primary"
}

// BusyIntervals queries freebusy for the tenant's calendar.
func (g *GoogleCalendar) BusyIntervals(ctx context.Context, binding *tenancy.CalendarBinding, from, to time.Time) ([]Interval, error) {
	svc, err := g.service(ctx, binding)
	if err != nil {
		return nil, err
	}
	id := calendarID(binding)
	resp, err := svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: id}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("booking: freebusy query failed: %w", err)
	}

	cal, ok := resp.Calendars[id]
	if !ok {
		return nil, nil
	}
	intervals := make([]Interval, 0, len(cal.Busy))
	for _, busy := range cal.Busy {
		start, err := time.Parse(time.RFC3339, busy.Start)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, busy.End)
		if err != nil {
			continue
		}
		intervals = append(intervals, Interval{Start: start, End: end})
	}
	return intervals, nil
}

// CreateEvent inserts a calendar event for the booking and returns the
// provider event id.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, binding *tenancy.CalendarBinding, b *Booking) (string, error) {
	svc, err := g.service(ctx, binding)
	if err != nil {
		return "", err
	}
	summary := b.ServiceName
	if b.CustomerName != "" {
		summary = fmt.Sprintf("%s - %s", b.ServiceName, b.CustomerName)
	}
	description := "Booked via Jawab AI receptionist."
	if b.CustomerPhone != "" {
		description += "\nCustomer phone: " + b.CustomerPhone
	}
	event, err := svc.Events.Insert(calendarID(binding), &calendar.Event{
		Summary:     summary,
		Description: description,
		Start:       &calendar.EventDateTime{DateTime: b.StartsAt.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: b.EndsAt.Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("booking: failed to create calendar event: %w", err)
	}
	return event.Id, nil
}

// DeleteEvent removes a previously created event. A missing event is not an
// error; the goal state is "not on the calendar".
func (g *GoogleCalendar) DeleteEvent(ctx context.Context, binding *tenancy.CalendarBinding, eventID string) error {
	if eventID == "" {
		return nil
	}
	svc, err := g.service(ctx, binding)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete(calendarID(binding), eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("booking: failed to delete calendar event: %w", err)
	}
	return nil
}
