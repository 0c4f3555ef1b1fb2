package store

import (
	"context"
	"sync"

	"github.com/astanafx/fxbot/internal/chat"
)

type memKey struct {
	userID int64
	role   string
}

// MemoryStore keeps histories in an in-process map. Used by tests and
// single-process development runs.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[memKey][]chat.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[memKey][]chat.Message)}
}

func (s *MemoryStore) GetHistory(ctx context.Context, userID int64, role string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.messages[memKey{userID, role}]
	out := make([]chat.Message, len(src))
	copy(out, src)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, userID int64, role string, speaker chat.Speaker, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey{userID, role}
	s.messages[k] = append(s.messages[k], chat.Message{Speaker: speaker, Content: content})
	return nil
}

func (s *MemoryStore) ReplaceAll(ctx context.Context, userID int64, role string, msgs []chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]chat.Message, len(msgs))
	copy(cp, msgs)
	s.messages[memKey{userID, role}] = cp
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, userID int64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role != "" {
		delete(s.messages, memKey{userID, role})
		return nil
	}
	for k := range s.messages {
		if k.userID == userID {
			delete(s.messages, k)
		}
	}
	return nil
}

func (s *MemoryStore) Count(ctx context.Context, userID int64, role string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[memKey{userID, role}]), nil
}

func (s *MemoryStore) Close() error { return nil }
