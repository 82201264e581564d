package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jawab-ai/jawab-platform/internal/booking"
	"github.com/jawab-ai/jawab-platform/internal/tenancy"
)

func bookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "conversation_id", "customer_name", "customer_phone",
		"service_name", "starts_at", "ends_at", "status", "calendar_event_id", "created_at",
	})
}

// glamourTenantRow is a tenant with Saturday hours and one 60 minute service
// and no calendar connected.
func glamourTenantRow() *sqlmock.Rows {
	now := time.Now().UTC()
	return tenantRows().AddRow(
		"tenant-1", "Glamour Salon", "salon", "Dubai Marina", nil, nil, nil, "friendly",
		[]byte(`[{"name": "Haircut", "price": 150, "currency": "AED", "duration_min": 60}]`),
		[]byte(`{"saturday": {"open": "10:00", "close": "14:00"}}`),
		[]byte(`[]`), nil, nil, nil, nil, nil, nil, nil, nil, nil, now, now,
	)
}

func newBookingsRouter(t *testing.T) (*chi.Mux, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := booking.NewService(booking.ServiceConfig{
		Store: booking.NewStore(db),
		Now:   func() time.Time { return time.Date(2026, time.March, 13, 9, 0, 0, 0, time.UTC) },
	})
	h := NewBookingsHandler(svc, tenancy.NewStore(db), nil)
	r := chi.NewRouter()
	r.Get("/api/tenants/{tenantID}/calendar/slots", h.Slots)
	r.Post("/api/tenants/{tenantID}/calendar/book", h.Book)
	r.Delete("/api/tenants/{tenantID}/bookings/{bookingID}", h.Cancel)
	return r, mock
}

func TestBookingsSlots(t *testing.T) {
	router, mock := newBookingsRouter(t)
	mock.ExpectQuery("SELECT (.+) FROM tenants").WillReturnRows(glamourTenantRow())
	mock.ExpectQuery("SELECT (.+) FROM bookings").WillReturnRows(bookingRows())

	req := httptest.NewRequest("GET", "/api/tenants/tenant-1/calendar/slots?date=2026-03-14&service=Haircut", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	var resp struct {
		Slots []booking.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Slots, 4)
}

func TestBookingsSlots_BadDate(t *testing.T) {
	router, mock := newBookingsRouter(t)
	mock.ExpectQuery("SELECT (.+) FROM tenants").WillReturnRows(glamourTenantRow())

	req := httptest.NewRequest("GET", "/api/tenants/tenant-1/calendar/slots?date=tomorrow", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestBookingsBook(t *testing.T) {
	router, mock := newBookingsRouter(t)
	mock.ExpectQuery("SELECT (.+) FROM tenants").WillReturnRows(glamourTenantRow())
	mock.ExpectQuery("SELECT (.+) FROM bookings").WillReturnRows(bookingRows())
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(1, 1))

	body := `{"customer_name": "Sara", "service": "Haircut", "starts_at": "2026-03-14T12:00:00Z"}`
	req := httptest.NewRequest("POST", "/api/tenants/tenant-1/calendar/book", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, 201, w.Code)
	assert.Contains(t, w.Body.String(), `"service_name":"Haircut"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingsBook_TenantMissing(t *testing.T) {
	router, mock := newBookingsRouter(t)
	mock.ExpectQuery("SELECT (.+) FROM tenants").WillReturnRows(tenantRows())

	body := `{"customer_name": "Sara", "service": "Haircut", "starts_at": "2026-03-14T12:00:00Z"}`
	req := httptest.NewRequest("POST", "/api/tenants/missing/calendar/book", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
}

func TestBookingsCancel(t *testing.T) {
	router, mock := newBookingsRouter(t)
	now := time.Now().UTC()
	start := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM tenants").WillReturnRows(glamourTenantRow())
	mock.ExpectQuery("SELECT (.+) FROM bookings").WillReturnRows(bookingRows().AddRow(
		"b-1", "tenant-1", nil, "Sara", "", "Haircut",
		start, start.Add(time.Hour), booking.StatusConfirmed, nil, now,
	))
	mock.ExpectExec("UPDATE bookings SET status").WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest("DELETE", "/api/tenants/tenant-1/bookings/b-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
