package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jawab-ai/jawab-platform/internal/conversation"
	"github.com/jawab-ai/jawab-platform/internal/tenancy"
)

type fakeDirectory struct {
	byMeta map[string]*tenancy.Tenant
	first  *tenancy.Tenant
}

func (f *fakeDirectory) FindByWhatsAppNumber(context.Context, string) (*tenancy.Tenant, error) {
	return nil, nil
}

func (f *fakeDirectory) FindByVoiceNumber(context.Context, string) (*tenancy.Tenant, error) {
	return nil, nil
}

func (f *fakeDirectory) FindByMetaID(_ context.Context, id string) (*tenancy.Tenant, error) {
	return f.byMeta[id], nil
}

func (f *fakeDirectory) First(context.Context) (*tenancy.Tenant, error) {
	return f.first, nil
}

type fakeGraph struct {
	dms      []string
	replies  map[string]string
	typing   []string
	sendErr  error
	platform string
}

func (f *fakeGraph) SendDirectMessage(_ context.Context, recipientID, text, platform string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.dms = append(f.dms, text)
	f.platform = platform
	return "mid.1", nil
}

func (f *fakeGraph) ReplyToComment(_ context.Context, commentID, text string) (string, error) {
	if f.replies == nil {
		f.replies = map[string]string{}
	}
	f.replies[commentID] = text
	return "reply-1", nil
}

func (f *fakeGraph) SendTypingIndicator(_ context.Context, _ string, action string) error {
	f.typing = append(f.typing, action)
	return nil
}

type scriptedLLM struct {
	reply string
}

func (s scriptedLLM) Complete(_ context.Context, req conversation.LLMRequest) (conversation.LLMResponse, error) {
	if len(req.System) == 0 {
		return conversation.LLMResponse{Text: `{"intent": "services", "confidence": 0.8}`}, nil
	}
	return conversation.LLMResponse{Text: s.reply}, nil
}

func salonTenant() *tenancy.Tenant {
	return &tenancy.Tenant{
		ID:       "tenant-1",
		Name:     "Glamour Salon",
		Location: "Dubai Marina",
		Meta:     &tenancy.MetaBinding{PageID: "page-1", InstagramAccountID: "ig-1"},
	}
}

func newMetaFixture(t *testing.T, dir tenancy.Directory, reply string) (*WebhookHandler, *fakeGraph, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	graph := &fakeGraph{}
	handler := NewWebhookHandler(WebhookConfig{
		Resolver:      tenancy.NewResolver(dir, true, nil),
		Conversations: conversation.NewStore(db),
		Generator:     conversation.NewGenerator(scriptedLLM{reply: reply}, nil),
		Client:        graph,
		VerifyToken:   "verify-me",
		Now:           func() time.Time { return time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC) },
	})
	return handler, graph, mock
}

func conversationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "customer_id", "customer_name", "channel", "status",
		"handled_by", "messages", "last_intent", "started_at", "last_message_at",
	})
}

func expectExistingConversation(mock sqlmock.Sqlmock, tenantID, customerID, channel string) {
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM conversations").WillReturnRows(conversationRows().AddRow(
		"conv-1", tenantID, customerID, "", channel,
		conversation.StatusActive, conversation.HandledByAI, []byte(`[]`), "", now, now,
	))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT messages FROM conversations").
		WillReturnRows(sqlmock.NewRows([]string{"messages"}).AddRow([]byte(`[]`)))
	mock.ExpectExec("UPDATE conversations SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func postEvents(handler *WebhookHandler, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/webhooks/meta", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.HandleEvents(w, req)
	return w
}

func messengerPayload(text string) map[string]any {
	return map[string]any{
		"object": "page",
		"entry": []map[string]any{{
			"id":   "page-1",
			"time": 1767139200000,
			"messaging": []map[string]any{{
				"sender":    map[string]string{"id": "user-7"},
				"recipient": map[string]string{"id": "page-1"},
				"timestamp": 1767139200000,
				"message":   map[string]any{"mid": "mid.in", "text": text},
			}},
		}},
	}
}

func TestHandleVerify(t *testing.T) {
	handler, _, _ := newMetaFixture(t, &fakeDirectory{}, "unused")

	req := httptest.NewRequest("GET",
		"/webhooks/meta?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	w := httptest.NewRecorder()
	handler.HandleVerify(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "12345", w.Body.String())
}

func TestHandleVerify_WrongToken(t *testing.T) {
	handler, _, _ := newMetaFixture(t, &fakeDirectory{}, "unused")

	req := httptest.NewRequest("GET",
		"/webhooks/meta?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", nil)
	w := httptest.NewRecorder()
	handler.HandleVerify(w, req)

	assert.Equal(t, 403, w.Code)
}

func TestHandleEvents_MessengerDM(t *testing.T) {
	tenant := salonTenant()
	dir := &fakeDirectory{byMeta: map[string]*tenancy.Tenant{"page-1": tenant}}
	handler, graph, mock := newMetaFixture(t, dir, "We open at 10am!")

	expectExistingConversation(mock, tenant.ID, "user-7", conversation.ChannelMessenger)

	w := postEvents(handler, messengerPayload("What time do you open?"))

	assert.Equal(t, 200, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	require.Len(t, graph.dms, 1)
	assert.Equal(t, "We open at 10am!", graph.dms[0])
	assert.Equal(t, "messenger", graph.platform)
	assert.Equal(t, []string{"typing_on", "typing_off"}, graph.typing)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleEvents_CommentGetsPublicReply(t *testing.T) {
	tenant := salonTenant()
	dir := &fakeDirectory{byMeta: map[string]*tenancy.Tenant{"ig-1": tenant}}
	handler, graph, mock := newMetaFixture(t, dir, "DM us and we'll book you in!")

	expectExistingConversation(mock, tenant.ID, "user-8", conversation.ChannelInstagramComment)

	payload := map[string]any{
		"object": "instagram",
		"entry": []map[string]any{{
			"id": "ig-1",
			"changes": []map[string]any{{
				"field": "comments",
				"value": map[string]any{
					"from":         map[string]string{"id": "user-8", "name": "Sara"},
					"item":         "comment",
					"verb":         "add",
					"comment_id":   "cmt-3",
					"message":      "how much is a haircut?",
					"created_time": 1767139200,
				},
			}},
		}},
	}

	w := postEvents(handler, payload)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "DM us and we'll book you in!", graph.replies["cmt-3"])
	assert.Empty(t, graph.dms)
	assert.Empty(t, graph.typing, "public comments get no typing indicator")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleEvents_NoTenantSkipsMessage(t *testing.T) {
	handler, graph, _ := newMetaFixture(t, &fakeDirectory{}, "unused")

	w := postEvents(handler, messengerPayload("hello?"))

	// still acknowledged so Meta does not retry
	assert.Equal(t, 200, w.Code)
	assert.Empty(t, graph.dms)
}

func TestHandleEvents_RejectsBadSignature(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	handler := NewWebhookHandler(WebhookConfig{
		Resolver:      tenancy.NewResolver(&fakeDirectory{}, true, nil),
		Conversations: conversation.NewStore(db),
		Generator:     conversation.NewGenerator(scriptedLLM{}, nil),
		Client:        &fakeGraph{},
		AppSecret:     "app-secret",
	})

	body, _ := json.Marshal(messengerPayload("hi"))
	req := httptest.NewRequest("POST", "/webhooks/meta", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	w := httptest.NewRecorder()
	handler.HandleEvents(w, req)

	assert.Equal(t, 401, w.Code)
}

func TestHandleEvents_ValidSignatureAccepted(t *testing.T) {
	tenant := salonTenant()
	dir := &fakeDirectory{byMeta: map[string]*tenancy.Tenant{"page-1": tenant}}
	handler, graph, mock := newMetaFixture(t, dir, "Hello!")
	handler.appSecret = "app-secret"

	expectExistingConversation(mock, tenant.ID, "user-7", conversation.ChannelMessenger)

	body, _ := json.Marshal(messengerPayload("hi"))
	req := httptest.NewRequest("POST", "/webhooks/meta", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", signBody("app-secret", body))
	w := httptest.NewRecorder()
	handler.HandleEvents(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Len(t, graph.dms, 1)
}

func TestHandleEvents_InvalidJSON(t *testing.T) {
	handler, _, _ := newMetaFixture(t, &fakeDirectory{}, "unused")

	req := httptest.NewRequest("POST", "/webhooks/meta", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	handler.HandleEvents(w, req)

	assert.Equal(t, 400, w.Code)
}
