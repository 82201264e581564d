package tenancy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists tenants to PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a new tenant store.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

const tenantColumns = `id, name, industry, location, address, maps_link, parking_info, tone,
	services, hours, faqs,
	whatsapp_number, voice_number, voice_tts_id,
	meta_page_id, instagram_account_id, meta_access_token,
	calendar, legacy_whatsapp_number, legacy_voice_number,
	created_at, updated_at`

// Create inserts a tenant, assigning an id and timestamps when missing.
func (s *Store) Create(ctx context.Context, t *Tenant) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("tenancy: store not configured")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	services, hours, faqs, calendar, err := marshalTenantJSON(t)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tenants (
			id, name, industry, location, address, maps_link, parking_info, tone,
			services, hours, faqs,
			whatsapp_number, voice_number, voice_tts_id,
			meta_page_id, instagram_account_id, meta_access_token,
			calendar, legacy_whatsapp_number, legacy_voice_number,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`, t.ID, t.Name, t.Industry, t.Location, t.Address, t.MapsLink, t.ParkingInfo, t.Tone,
		services, hours, faqs,
		whatsAppNumberOf(t), voiceNumberOf(t), voiceTTSOf(t),
		metaPageOf(t), instagramOf(t), metaTokenOf(t),
		calendar, emptyToNull(t.LegacyWhatsAppNumber), emptyToNull(t.LegacyVoiceNumber),
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("tenancy: failed to create tenant: %w", err)
	}
	return nil
}

// Update overwrites a tenant record.
func (s *Store) Update(ctx context.Context, t *Tenant) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("tenancy: store not configured")
	}
	t.UpdatedAt = time.Now().UTC()

	services, hours, faqs, calendar, err := marshalTenantJSON(t)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tenants SET
			name = $2, industry = $3, location = $4, address = $5, maps_link = $6,
			parking_info = $7, tone = $8, services = $9, hours = $10, faqs = $11,
			whatsapp_number = $12, voice_number = $13, voice_tts_id = $14,
			meta_page_id = $15, instagram_account_id = $16, meta_access_token = $17,
			calendar = $18, updated_at = $19
		WHERE id = $1
	`, t.ID, t.Name, t.Industry, t.Location, t.Address, t.MapsLink,
		t.ParkingInfo, t.Tone, services, hours, faqs,
		whatsAppNumberOf(t), voiceNumberOf(t), voiceTTSOf(t),
		metaPageOf(t), instagramOf(t), metaTokenOf(t),
		calendar, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("tenancy: failed to update tenant: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("tenancy: tenant %s not found", t.ID)
	}
	return nil
}

// Get retrieves a tenant by id; (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, id string) (*Tenant, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// List returns all tenants ordered by creation time.
func (s *Store) List(ctx context.Context) ([]Tenant, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("tenancy: failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		if t != nil {
			tenants = append(tenants, *t)
		}
	}
	return tenants, rows.Err()
}

// FindByWhatsAppNumber matches the structured binding first (with or without
// the channel prefix), then the legacy flat field.
func (s *Store) FindByWhatsAppNumber(ctx context.Context, number string) (*Tenant, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	clean := NormalizeWhatsApp(number)
	if clean == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants
		WHERE whatsapp_number = $1 OR whatsapp_number = $2 OR legacy_whatsapp_number = $1
		ORDER BY created_at ASC LIMIT 1
	`, clean, "whatsapp:"+clean)
	return scanTenant(row)
}

// FindByVoiceNumber matches the structured voice binding then the legacy field.
func (s *Store) FindByVoiceNumber(ctx context.Context, number string) (*Tenant, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants
		WHERE voice_number = $1 OR legacy_voice_number = $1
		ORDER BY created_at ASC LIMIT 1
	`, number)
	return scanTenant(row)
}

// FindByMetaID matches either the Facebook Page id or the Instagram account id.
func (s *Store) FindByMetaID(ctx context.Context, pageOrAccountID string) (*Tenant, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	pageOrAccountID = strings.TrimSpace(pageOrAccountID)
	if pageOrAccountID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants
		WHERE meta_page_id = $1 OR instagram_account_id = $1
		ORDER BY created_at ASC LIMIT 1
	`, pageOrAccountID)
	return scanTenant(row)
}

// First returns the oldest tenant, used by the fallback routing policy.
func (s *Store) First(ctx context.Context) (*Tenant, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY created_at ASC LIMIT 1`)
	return scanTenant(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*Tenant, error) {
	var t Tenant
	var industry, location, address, mapsLink, parkingInfo, tone sql.NullString
	var services, hours, faqs, calendar []byte
	var whatsappNumber, voiceNumber, voiceTTS sql.NullString
	var metaPageID, instagramID, metaToken sql.NullString
	var legacyWhatsApp, legacyVoice sql.NullString

	err := row.Scan(
		&t.ID, &t.Name, &industry, &location, &address, &mapsLink, &parkingInfo, &tone,
		&services, &hours, &faqs,
		&whatsappNumber, &voiceNumber, &voiceTTS,
		&metaPageID, &instagramID, &metaToken,
		&calendar, &legacyWhatsApp, &legacyVoice,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tenancy: failed to scan tenant: %w", err)
	}

	t.Industry = industry.String
	t.Location = location.String
	t.Address = address.String
	t.MapsLink = mapsLink.String
	t.ParkingInfo = parkingInfo.String
	t.Tone = tone.String
	t.LegacyWhatsAppNumber = legacyWhatsApp.String
	t.LegacyVoiceNumber = legacyVoice.String

	if len(services) > 0 {
		if err := json.Unmarshal(services, &t.Services); err != nil {
			return nil, fmt.Errorf("tenancy: failed to decode services: %w", err)
		}
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &t.Hours); err != nil {
			return nil, fmt.Errorf("tenancy: failed to decode hours: %w", err)
		}
	}
	if len(faqs) > 0 {
		if err := json.Unmarshal(faqs, &t.FAQs); err != nil {
			return nil, fmt.Errorf("tenancy: failed to decode faqs: %w", err)
		}
	}
	if len(calendar) > 0 {
		var binding CalendarBinding
		if err := json.Unmarshal(calendar, &binding); err != nil {
			return nil, fmt.Errorf("tenancy: failed to decode calendar binding: %w", err)
		}
		if binding.CalendarID != "" || binding.AccessToken != "" {
			t.Calendar = &binding
		}
	}
	if whatsappNumber.Valid && whatsappNumber.String != "" {
		t.WhatsApp = &WhatsAppBinding{Number: whatsappNumber.String}
	}
	if voiceNumber.Valid && voiceNumber.String != "" {
		t.Voice = &VoiceBinding{Number: voiceNumber.String, VoiceID: voiceTTS.String}
	}
	if (metaPageID.Valid && metaPageID.String != "") || (instagramID.Valid && instagramID.String != "") {
		t.Meta = &MetaBinding{
			PageID:             metaPageID.String,
			InstagramAccountID: instagramID.String,
			AccessToken:        metaToken.String,
		}
	}
	return &t, nil
}

func marshalTenantJSON(t *Tenant) (services, hours, faqs, calendar []byte, err error) {
	if services, err = json.Marshal(t.Services); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("tenancy: failed to encode services: %w", err)
	}
	if hours, err = json.Marshal(t.Hours); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("tenancy: failed to encode hours: %w", err)
	}
	if faqs, err = json.Marshal(t.FAQs); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("tenancy: failed to encode faqs: %w", err)
	}
	if t.Calendar == nil {
		return services, hours, faqs, nil, nil
	}
	if calendar, err = json.Marshal(t.Calendar); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("tenancy: failed to encode calendar binding: %w", err)
	}
	return services, hours, faqs, calendar, nil
}

func whatsAppNumberOf(t *Tenant) any {
	if t.WhatsApp == nil || t.WhatsApp.Number == "" {
		return nil
	}
	return t.WhatsApp.Number
}

func voiceNumberOf(t *Tenant) any {
	if t.Voice == nil || t.Voice.Number == "" {
		return nil
	}
	return t.Voice.Number
}

func voiceTTSOf(t *Tenant) any {
	if t.Voice == nil || t.Voice.VoiceID == "" {
		return nil
	}
	return t.Voice.VoiceID
}

func metaPageOf(t *Tenant) any {
	if t.Meta == nil || t.Meta.PageID == "" {
		return nil
	}
	return t.Meta.PageID
}

func instagramOf(t *Tenant) any {
	if t.Meta == nil || t.Meta.InstagramAccountID == "" {
		return nil
	}
	return t.Meta.InstagramAccountID
}

func metaTokenOf(t *Tenant) any {
	if t.Meta == nil || t.Meta.AccessToken == "" {
		return nil
	}
	return t.Meta.AccessToken
}

func emptyToNull(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
