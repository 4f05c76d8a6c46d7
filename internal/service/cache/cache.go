// Package cache 带过期时间的内存令牌存储（上传的工作簿、待下载的报表）
package cache

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Store 以随机令牌为键的内存存储，条目在 ttl 后过期
type Store[T any] struct {
	mu    sync.Mutex
	items map[string]entry[T]
	ttl   time.Duration
	now   func() time.Time
}

// New 创建存储
func New[T any](ttl time.Duration) *Store[T] {
	return &Store[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Put 保存并返回令牌
func (s *Store[T]) Put(value T) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	token := uuid.NewString()
	s.items[token] = entry[T]{value: value, expiresAt: now.Add(s.ttl)}
	return token
}

// Get 读取未过期的条目，读取会续期
func (s *Store[T]) Get(token string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	e, ok := s.items[token]
	if !ok {
		var zero T
		return zero, false
	}
	e.expiresAt = now.Add(s.ttl)
	s.items[token] = e
	return e.value, true
}

// Delete 删除条目
func (s *Store[T]) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
}

// Len 未过期条目数
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(s.now())
	return len(s.items)
}

func (s *Store[T]) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
		}
	}
}
