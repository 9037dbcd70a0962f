// internal/repository/redisstore/draft_store.go
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lms-admin-service/internal/domain/installment"
	xerrors "lms-admin-service/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

const draftKeyPrefix = "installment:draft:"

// DraftStore keeps installment editor working copies until they are submitted or discarded.
type DraftStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewDraftStore(client redis.Cmdable, ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &DraftStore{client: client, ttl: ttl}
}

func draftKey(id string) string {
	return draftKeyPrefix + id
}

// Save stores the session and refreshes its TTL.
func (s *DraftStore) Save(ctx context.Context, session *installment.EditorSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal editor session: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save editor session: %w", err)
	}
	return nil
}

func (s *DraftStore) Get(ctx context.Context, id string) (*installment.EditorSession, error) {
	data, err := s.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get editor session: %w", err)
	}

	var session installment.EditorSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal editor session: %w", err)
	}
	return &session, nil
}

func (s *DraftStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, draftKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete editor session: %w", err)
	}
	return nil
}
