package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilianp07/agriroute/core/cache"
	"github.com/kilianp07/agriroute/core/model"
)

// DefaultTTL is the inactivity timeout of a session.
const DefaultTTL = 5 * time.Minute

// Store persists session records with an inactivity TTL. Load reports
// found=false for absent sessions and model.ErrSessionExpired for records
// older than the TTL that the backend has not evicted yet.
type Store interface {
	Load(ctx context.Context, id string) (Record, bool, error)
	Save(ctx context.Context, r Record) error
	Delete(ctx context.Context, id string) error
}

// KVStore keeps records as JSON in a cache.Store, so the in-process
// go-cache store and Redis both work as session backends.
type KVStore struct {
	kv     cache.Store
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// NewKVStore wraps kv. Every Save refreshes the TTL.
func NewKVStore(kv cache.Store, ttl time.Duration) *KVStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &KVStore{kv: kv, ttl: ttl, prefix: "session:", now: time.Now}
}

// TTL returns the inactivity timeout.
func (s *KVStore) TTL() time.Duration { return s.ttl }

func (s *KVStore) Load(ctx context.Context, id string) (Record, bool, error) {
	raw, ok, err := s.kv.Get(ctx, s.prefix+id)
	if err != nil {
		return Record{}, false, fmt.Errorf("load session %s: %w", id, err)
	}
	if !ok {
		return Record{}, false, nil
	}
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, false, nil
	}
	if s.now().Sub(r.UpdatedAt) > s.ttl {
		return Record{}, false, fmt.Errorf("session %s: %w", id, model.ErrSessionExpired)
	}
	return r, true, nil
}

func (s *KVStore) Save(ctx context.Context, r Record) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", r.ID, err)
	}
	if err := s.kv.Set(ctx, s.prefix+r.ID, raw, s.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", r.ID, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, s.prefix+id)
}
