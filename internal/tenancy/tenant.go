// Package tenancy holds the tenant (business) model, its persistence, and
// the channel-identifier resolver used by every inbound webhook.
package tenancy

import (
	"strings"
	"time"
)

// Tone sets the AI receptionist's communication style for a tenant.
const (
	ToneFriendly     = "friendly"
	ToneProfessional = "professional"
	ToneCasual       = "casual"
)

// Service is one bookable offering of a tenant.
type Service struct {
	Name        string  `json:"name"`
	NameAr      string  `json:"name_ar,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency,omitempty"`
	DurationMin int     `json:"duration_min"`
}

// DayHours represents the opening hours for a single day.
// Nil means the tenant is closed that day.
type DayHours struct {
	Open  string `json:"open"`  // "09:00" in 24-hour format
	Close string `json:"close"` // "18:00" in 24-hour format
}

// BusinessHours maps day names to their hours.
type BusinessHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// Days returns the hours in week order alongside their display names.
func (h BusinessHours) Days() []struct {
	Name  string
	Hours *DayHours
} {
	return []struct {
		Name  string
		Hours *DayHours
	}{
		{"Monday", h.Monday},
		{"Tuesday", h.Tuesday},
		{"Wednesday", h.Wednesday},
		{"Thursday", h.Thursday},
		{"Friday", h.Friday},
		{"Saturday", h.Saturday},
		{"Sunday", h.Sunday},
	}
}

// ForWeekday returns the hours for a Go time.Weekday.
func (h BusinessHours) ForWeekday(day time.Weekday) *DayHours {
	switch day {
	case time.Monday:
		return h.Monday
	case time.Tuesday:
		return h.Tuesday
	case time.Wednesday:
		return h.Wednesday
	case time.Thursday:
		return h.Thursday
	case time.Friday:
		return h.Friday
	case time.Saturday:
		return h.Saturday
	default:
		return h.Sunday
	}
}

// FAQ is a tenant-authored question/answer pair injected into the prompt.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// WhatsAppBinding assigns a Twilio WhatsApp number to a tenant.
type WhatsAppBinding struct {
	Number string `json:"number"` // E.164, may carry a "whatsapp:" prefix
}

// VoiceBinding assigns a voice phone number to a tenant.
type VoiceBinding struct {
	Number  string `json:"number"` // E.164
	VoiceID string `json:"voice_id,omitempty"`
}

// MetaBinding connects a Facebook Page and/or Instagram account to a tenant.
type MetaBinding struct {
	PageID             string `json:"page_id,omitempty"`
	InstagramAccountID string `json:"instagram_account_id,omitempty"`
	AccessToken        string `json:"access_token,omitempty"`
}

// CalendarBinding stores the Google Calendar OAuth grant for booking flows.
// Tokens are opaque to this service; the OAuth dance happens elsewhere.
type CalendarBinding struct {
	CalendarID   string `json:"calendar_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Tenant is one customer business using the platform.
type Tenant struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Industry    string        `json:"industry,omitempty"`
	Location    string        `json:"location,omitempty"`
	Address     string        `json:"address,omitempty"`
	MapsLink    string        `json:"maps_link,omitempty"`
	ParkingInfo string        `json:"parking_info,omitempty"`
	Tone        string        `json:"tone,omitempty"`
	Services    []Service     `json:"services,omitempty"`
	Hours       BusinessHours `json:"hours"`
	FAQs        []FAQ         `json:"faqs,omitempty"`

	// Channel bindings. Each, if present, maps to at most one tenant;
	// uniqueness is enforced by lookup, not a database constraint.
	WhatsApp *WhatsAppBinding `json:"whatsapp,omitempty"`
	Voice    *VoiceBinding    `json:"voice,omitempty"`
	Meta     *MetaBinding     `json:"meta,omitempty"`
	Calendar *CalendarBinding `json:"calendar,omitempty"`

	// Legacy flat-field representations kept matchable for records created
	// before bindings became structured.
	LegacyWhatsAppNumber string `json:"legacy_whatsapp_number,omitempty"`
	LegacyVoiceNumber    string `json:"legacy_voice_number,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeWhatsApp strips the channel prefix from a WhatsApp identifier.
func NormalizeWhatsApp(number string) string {
	return strings.TrimSpace(strings.TrimPrefix(number, "whatsapp:"))
}
