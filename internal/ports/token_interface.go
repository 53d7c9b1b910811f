package ports

import (
	"context"
	"finance-tracker-client/internal/model"
)

// TokenRepository : постоянное хранилище сессии (redis, postgres, файл, память)
// Запись и удаление атомарны: читатель видит либо старую запись, либо новую целиком
type TokenRepository interface {
	// Load возвращает nil, nil если сессии нет
	Load(ctx context.Context) (*model.AuthenticatedUser, error)
	Store(ctx context.Context, user *model.AuthenticatedUser) error
	Delete(ctx context.Context) error
}

type TokenStore interface {
	Get(ctx context.Context) (*model.Tokens, error)
	Save(ctx context.Context, tokens model.Tokens) (*model.AuthenticatedUser, error)
	Rotate(ctx context.Context, rotation *model.Rotation) (*model.AuthenticatedUser, error)
	Clear(ctx context.Context) error
	ClearIfConsumed(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context) (*model.AuthenticatedUser, error)
}

// TokenRefresher : один вызов /user/refresh-token
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*model.Tokens, error)
}

type RefreshCoordinator interface {
	RequestRefresh(ctx context.Context) (*model.Rotation, error)
}
