package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Store persists conversations to PostgreSQL. Messages live in a JSONB
// column bounded to the most recent entries; appends serialize per row
// through SELECT ... FOR UPDATE so concurrent turns cannot clobber each
// other's history.
type Store struct {
	db *sql.DB
}

// NewStore creates a new conversation store.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

var convTracer = otel.Tracer("jawab.internal.conversation")

// GetOrCreate returns the single active conversation for the
// (tenant, customer, channel) triple, creating it when absent. Creation
// races are resolved by the partial unique index plus a re-select.
func (s *Store) GetOrCreate(ctx context.Context, tenantID, customerID, channel, nameHint string) (*Conversation, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("conversation: store not configured")
	}
	ctx, span := convTracer.Start(ctx, "store.get_or_create")
	defer span.End()
	span.SetAttributes(attribute.String("channel", channel))

	conv, err := s.findActive(ctx, tenantID, customerID, channel)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (
			id, tenant_id, customer_id, customer_name, channel,
			status, handled_by, messages, last_intent, started_at, last_message_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, '[]'::jsonb, '', $8, $8)
		ON CONFLICT (tenant_id, customer_id, channel) WHERE status = 'active'
		DO NOTHING
	`, id, tenantID, customerID, nameHint, channel, StatusActive, HandledByAI, now)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to create conversation: %w", err)
	}

	conv, err = s.findActive(ctx, tenantID, customerID, channel)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation: conversation vanished after create for tenant %s", tenantID)
	}
	return conv, nil
}

// Append adds messages to a conversation and trims the stored window to the
// most recent entries. The row lock serializes concurrent appends.
func (s *Store) Append(ctx context.Context, tenantID, conversationID string, msgs []Message, latestIntent string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("conversation: store not configured")
	}
	if len(msgs) == 0 {
		return nil
	}
	ctx, span := convTracer.Start(ctx, "store.append")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to begin append tx: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx, `
		SELECT messages FROM conversations
		WHERE id = $1 AND tenant_id = $2
		FOR UPDATE
	`, conversationID, tenantID).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("conversation: conversation %s not found", conversationID)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to lock conversation: %w", err)
	}

	var messages []Message
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &messages); err != nil {
			return fmt.Errorf("conversation: failed to decode messages: %w", err)
		}
	}
	messages = append(messages, msgs...)
	if len(messages) > historyLimit {
		messages = messages[len(messages)-historyLimit:]
	}

	updated, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("conversation: failed to encode messages: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE conversations SET
			messages = $3,
			last_intent = COALESCE(NULLIF($4, ''), last_intent),
			last_message_at = $5
		WHERE id = $1 AND tenant_id = $2
	`, conversationID, tenantID, updated, latestIntent, time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to update conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to commit append: %w", err)
	}
	return nil
}

// MarkHumanHandled appends a human-authored message and flips handled_by to
// human. Status is left untouched.
func (s *Store) MarkHumanHandled(ctx context.Context, tenantID, conversationID string, humanMsg Message) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("conversation: store not configured")
	}
	if humanMsg.Timestamp.IsZero() {
		humanMsg.Timestamp = time.Now().UTC()
	}
	if err := s.Append(ctx, tenantID, conversationID, []Message{humanMsg}, ""); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET handled_by = $3
		WHERE id = $1 AND tenant_id = $2
	`, conversationID, tenantID, HandledByHuman)
	if err != nil {
		return fmt.Errorf("conversation: failed to mark human handled: %w", err)
	}
	return nil
}

// UpdateStatus changes a conversation's lifecycle status.
func (s *Store) UpdateStatus(ctx context.Context, tenantID, conversationID, status string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("conversation: store not configured")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET status = $3
		WHERE id = $1 AND tenant_id = $2
	`, conversationID, tenantID, status)
	if err != nil {
		return fmt.Errorf("conversation: failed to update status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("conversation: conversation %s not found", conversationID)
	}
	return nil
}

// Get fetches one conversation by id within a tenant.
func (s *Store) Get(ctx context.Context, tenantID, conversationID string) (*Conversation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, customer_id, customer_name, channel, status,
			handled_by, messages, last_intent, started_at, last_message_at
		FROM conversations
		WHERE id = $1 AND tenant_id = $2
	`, conversationID, tenantID)
	return scanConversation(row)
}

// List returns a tenant's conversations newest-activity first.
func (s *Store) List(ctx context.Context, tenantID string, limit int) ([]Conversation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, customer_id, customer_name, channel, status,
			handled_by, messages, last_intent, started_at, last_message_at
		FROM conversations
		WHERE tenant_id = $1
		ORDER BY last_message_at DESC
		LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		if conv != nil {
			conversations = append(conversations, *conv)
		}
	}
	return conversations, rows.Err()
}

func (s *Store) findActive(ctx context.Context, tenantID, customerID, channel string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, customer_id, customer_name, channel, status,
			handled_by, messages, last_intent, started_at, last_message_at
		FROM conversations
		WHERE tenant_id = $1 AND customer_id = $2 AND channel = $3 AND status = $4
		LIMIT 1
	`, tenantID, customerID, channel, StatusActive)
	return scanConversation(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*Conversation, error) {
	var conv Conversation
	var customerName, lastIntent sql.NullString
	var raw []byte

	err := row.Scan(
		&conv.ID, &conv.TenantID, &conv.CustomerID, &customerName, &conv.Channel,
		&conv.Status, &conv.HandledBy, &raw, &lastIntent,
		&conv.StartedAt, &conv.LastMessageAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to scan conversation: %w", err)
	}

	conv.CustomerName = customerName.String
	conv.LastIntent = lastIntent.String
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &conv.Messages); err != nil {
			return nil, fmt.Errorf("conversation: failed to decode messages: %w", err)
		}
	}
	return &conv, nil
}
