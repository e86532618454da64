package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/minato/hireline/internal/domain"
)

const sessionPrefix = "sessions:"

// SessionRecord is the server-side session backing an issued token
// pair. Destroying it invalidates every token carrying its SID.
type SessionRecord struct {
	SID       string
	UserID    int64
	Role      domain.Role
	ExpiresAt time.Time
}

// SessionStore keeps session records in redis with their TTL tied to
// session expiry.
type SessionStore struct {
	client *goredis.Client
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(client *goredis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Create persists a session record until its expiry.
func (s *SessionStore) Create(ctx context.Context, rec SessionRecord) error {
	if rec.SID == "" || rec.UserID <= 0 {
		return domain.ErrInvalidInput
	}

	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return domain.ErrInvalidInput
	}

	fields := map[string]any{
		"user_id":    rec.UserID,
		"role":       string(rec.Role),
		"expires_at": rec.ExpiresAt.Unix(),
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(rec.SID), fields)
	pipe.Expire(ctx, sessionKey(rec.SID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Find returns the record for sid, or domain.ErrSessionNotFound when it
// expired or was destroyed.
func (s *SessionStore) Find(ctx context.Context, sid string) (SessionRecord, error) {
	values, err := s.client.HGetAll(ctx, sessionKey(sid)).Result()
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session hash: %w", err)
	}
	if len(values) == 0 {
		return SessionRecord{}, domain.ErrSessionNotFound
	}

	userID, err := strconv.ParseInt(values["user_id"], 10, 64)
	if err != nil || userID <= 0 {
		return SessionRecord{}, fmt.Errorf("corrupt session record for sid %s", sid)
	}
	expiresAt, err := strconv.ParseInt(values["expires_at"], 10, 64)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("corrupt session record for sid %s", sid)
	}

	return SessionRecord{
		SID:       sid,
		UserID:    userID,
		Role:      domain.Role(values["role"]),
		ExpiresAt: time.Unix(expiresAt, 0),
	}, nil
}

// Extend pushes the session expiry forward, refreshing both the stored
// timestamp and the key TTL.
func (s *SessionStore) Extend(ctx context.Context, sid string, expiresAt time.Time) error {
	if _, err := s.Find(ctx, sid); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(sid), "expires_at", expiresAt.Unix())
	pipe.Expire(ctx, sessionKey(sid), time.Until(expiresAt))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("extend session: %w", err)
	}
	return nil
}

// SetRole updates the role on a live session after role selection.
func (s *SessionStore) SetRole(ctx context.Context, sid string, role domain.Role) error {
	if _, err := s.Find(ctx, sid); err != nil {
		return err
	}
	if err := s.client.HSet(ctx, sessionKey(sid), "role", string(role)).Err(); err != nil {
		return fmt.Errorf("set session role: %w", err)
	}
	return nil
}

// Destroy removes the record. Missing records are not an error.
func (s *SessionStore) Destroy(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func sessionKey(sid string) string {
	return sessionPrefix + sid
}
