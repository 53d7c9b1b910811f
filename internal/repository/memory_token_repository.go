package repository

import (
	"context"
	"finance-tracker-client/internal/model"
	"sync"
)

// MemoryTokenRepository : сессия живёт до конца процесса
type MemoryTokenRepository struct {
	mu   sync.RWMutex
	user *model.AuthenticatedUser
}

func NewMemoryTokenRepository() *MemoryTokenRepository {
	return &MemoryTokenRepository{}
}

func (r *MemoryTokenRepository) Load(ctx context.Context) (*model.AuthenticatedUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.user == nil {
		return nil, nil
	}
	user := *r.user
	return &user, nil
}

func (r *MemoryTokenRepository) Store(ctx context.Context, user *model.AuthenticatedUser) error {
	copied := *user

	r.mu.Lock()
	r.user = &copied
	r.mu.Unlock()
	return nil
}

func (r *MemoryTokenRepository) Delete(ctx context.Context) error {
	r.mu.Lock()
	r.user = nil
	r.mu.Unlock()
	return nil
}
