package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jawab-ai/jawab-platform/internal/tenancy"
)

func tenantRows() *sqlmock.Rows {
	return sqlmock.NewRows(strings.Split(
		"id,name,industry,location,address,maps_link,parking_info,tone,"+
			"services,hours,faqs,whatsapp_number,voice_number,voice_tts_id,"+
			"meta_page_id,instagram_account_id,meta_access_token,calendar,"+
			"legacy_whatsapp_number,legacy_voice_number,created_at,updated_at", ","))
}

func newTenantsRouter(t *testing.T) (*chi.Mux, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewTenantsHandler(tenancy.NewStore(db), nil)
	r := chi.NewRouter()
	r.Get("/api/tenants", h.List)
	r.Post("/api/tenants", h.Create)
	r.Get("/api/tenants/{tenantID}", h.Get)
	r.Put("/api/tenants/{tenantID}", h.Update)
	return r, mock
}

func TestTenantsCreate(t *testing.T) {
	router, mock := newTenantsRouter(t)
	mock.ExpectExec("INSERT INTO tenants").WillReturnResult(sqlmock.NewResult(1, 1))

	body := `{"name": "Glamour Salon", "location": "Dubai Marina", "tone": "friendly"}`
	req := httptest.NewRequest("POST", "/api/tenants", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 201, w.Code)
	assert.Contains(t, w.Body.String(), "Glamour Salon")
	assert.Contains(t, w.Body.String(), `"id"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantsCreate_RequiresName(t *testing.T) {
	router, _ := newTenantsRouter(t)

	req := httptest.NewRequest("POST", "/api/tenants", strings.NewReader(`{"location": "Dubai"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
}

func TestTenantsGet_NotFound(t *testing.T) {
	router, mock := newTenantsRouter(t)
	mock.ExpectQuery("SELECT (.+) FROM tenants").WillReturnRows(tenantRows())

	req := httptest.NewRequest("GET", "/api/tenants/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
}
