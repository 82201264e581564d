package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// VoiceSession carries the per-call state that must survive across the
// independent webhook invocations of one phone call.
type VoiceSession struct {
	CallID         string    `json:"call_id"`
	TenantID       string    `json:"tenant_id"`
	ConversationID string    `json:"conversation_id"`
	CallerPhone    string    `json:"caller_phone"`
	DialedNumber   string    `json:"dialed_number"`
	Language       string    `json:"language"`
	Turns          []Message `json:"turns"`
	TurnCount      int       `json:"turn_count"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

const voiceSessionKeyPrefix = "voice:session:"

// VoiceSessionStore keeps call sessions in Redis with a sliding TTL. A
// session is deleted on hangup and expires on its own after the TTL when the
// caller drops without one.
type VoiceSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewVoiceSessionStore creates a Redis-backed voice session store.
func NewVoiceSessionStore(rdb *redis.Client, ttl time.Duration) *VoiceSessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &VoiceSessionStore{rdb: rdb, ttl: ttl}
}

func voiceSessionKey(callID string) string {
	return voiceSessionKeyPrefix + callID
}

// Save persists the session and refreshes its TTL.
func (s *VoiceSessionStore) Save(ctx context.Context, session *VoiceSession) error {
	if session == nil || session.CallID == "" {
		return fmt.Errorf("conversation: voice session requires call_id")
	}
	session.LastActivityAt = time.Now().UTC()
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("conversation: failed to encode voice session: %w", err)
	}
	if err := s.rdb.Set(ctx, voiceSessionKey(session.CallID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: failed to save voice session: %w", err)
	}
	return nil
}

// Get fetches the session for a call id; (nil, nil) when absent or expired.
func (s *VoiceSessionStore) Get(ctx context.Context, callID string) (*VoiceSession, error) {
	data, err := s.rdb.Get(ctx, voiceSessionKey(callID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load voice session: %w", err)
	}
	var session VoiceSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("conversation: failed to decode voice session: %w", err)
	}
	return &session, nil
}

// Delete evicts the session when the call hangs up.
func (s *VoiceSessionStore) Delete(ctx context.Context, callID string) error {
	if err := s.rdb.Del(ctx, voiceSessionKey(callID)).Err(); err != nil {
		return fmt.Errorf("conversation: failed to delete voice session: %w", err)
	}
	return nil
}
