package service

import (
	"context"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/ports"
	"finance-tracker-client/internal/security"
	"finance-tracker-client/internal/util"
	"log/slog"
	"sync"
)

// IdentityObserver получает нового пользователя после сохранения и nil после очистки сессии
type IdentityObserver func(user *model.AuthenticatedUser)

// TokenStore владеет текущей парой токенов.
// Запись сериализована мьютексом, чтение всегда идёт в хранилище, без копии в памяти.
type TokenStore struct {
	mu         sync.RWMutex
	repository ports.TokenRepository
	logger     *slog.Logger

	observersMu sync.Mutex
	observers   map[int]IdentityObserver
	nextID      int
}

func NewTokenStore(repository ports.TokenRepository, logger *slog.Logger) *TokenStore {
	return &TokenStore{
		repository: repository,
		logger:     logger,
		observers:  make(map[int]IdentityObserver),
	}
}

// Get : текущая пара токенов или nil, если пользователь не вошёл
func (s *TokenStore) Get(ctx context.Context) (*model.Tokens, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil || user == nil {
		return nil, err
	}

	tokens := user.Tokens()
	return &tokens, nil
}

func (s *TokenStore) CurrentUser(ctx context.Context) (*model.AuthenticatedUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, err := s.repository.Load(ctx)
	if err != nil {
		return nil, util.LogError("[TokenStore] не удалось прочитать сессию", err)
	}
	return user, nil
}

// Save : декодирует claims и сохраняет пару.
// Если access токен не разбирается, возвращается *model.DecodeError и ничего не пишется.
func (s *TokenStore) Save(ctx context.Context, tokens model.Tokens) (*model.AuthenticatedUser, error) {
	user, err := decodeUser(tokens)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	err = s.repository.Store(ctx, user)
	s.mu.Unlock()
	if err != nil {
		return nil, util.LogError("[TokenStore] не удалось сохранить сессию", err)
	}

	s.logger.Debug("[TokenStore] сессия сохранена", slog.String("username", user.Username))
	s.notify(user)
	return user, nil
}

// Rotate сохраняет пару, выданную refresh-ом, только если в хранилище всё ещё лежит
// потраченный refresh токен. Если пару уже записал другой запрос, возвращает её.
// Проигравшая гонку ротация ничего не пишет и возвращает model.ErrStaleRotation.
func (s *TokenStore) Rotate(ctx context.Context, rotation *model.Rotation) (*model.AuthenticatedUser, error) {
	user, err := decodeUser(rotation.Issued)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	current, err := s.repository.Load(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, util.LogError("[TokenStore] не удалось прочитать сессию", err)
	}

	switch {
	case current != nil && current.Tokens() == rotation.Issued:
		s.mu.Unlock()
		return current, nil
	case current == nil || current.RefreshToken != rotation.Consumed:
		s.mu.Unlock()
		return nil, model.ErrStaleRotation
	}

	err = s.repository.Store(ctx, user)
	s.mu.Unlock()
	if err != nil {
		return nil, util.LogError("[TokenStore] не удалось сохранить сессию", err)
	}

	s.logger.Debug("[TokenStore] пара токенов обновлена", slog.String("username", user.Username))
	s.notify(user)
	return user, nil
}

// Clear : удаляет сессию. Повторный вызов ничего не делает и наблюдателей не дёргает.
func (s *TokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	current, err := s.repository.Load(ctx)
	if err == nil && current == nil {
		s.mu.Unlock()
		return nil
	}

	// битую запись тоже удаляем
	err = s.repository.Delete(ctx)
	s.mu.Unlock()
	if err != nil {
		return util.LogError("[TokenStore] не удалось удалить сессию", err)
	}

	s.logger.Debug("[TokenStore] сессия удалена")
	s.notify(nil)
	return nil
}

// ClearIfConsumed удаляет сессию, только если в хранилище всё ещё лежит отклонённый refresh токен.
// Сессию, сохранённую после отправки этого токена (повторный вход), не трогает.
func (s *TokenStore) ClearIfConsumed(ctx context.Context, refreshToken string) error {
	s.mu.Lock()
	current, err := s.repository.Load(ctx)
	if err != nil {
		s.mu.Unlock()
		return util.LogError("[TokenStore] не удалось прочитать сессию", err)
	}
	if current == nil || current.RefreshToken != refreshToken {
		s.mu.Unlock()
		s.logger.Debug("[TokenStore] сессия уже заменена, очистка пропущена")
		return nil
	}

	err = s.repository.Delete(ctx)
	s.mu.Unlock()
	if err != nil {
		return util.LogError("[TokenStore] не удалось удалить сессию", err)
	}

	s.logger.Debug("[TokenStore] сессия удалена после отказа в refresh")
	s.notify(nil)
	return nil
}

// Subscribe : подписка на смену личности, возвращает функцию отписки
func (s *TokenStore) Subscribe(observer IdentityObserver) func() {
	s.observersMu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = observer
	s.observersMu.Unlock()

	return func() {
		s.observersMu.Lock()
		delete(s.observers, id)
		s.observersMu.Unlock()
	}
}

func (s *TokenStore) notify(user *model.AuthenticatedUser) {
	s.observersMu.Lock()
	observers := make([]IdentityObserver, 0, len(s.observers))
	for _, observer := range s.observers {
		observers = append(observers, observer)
	}
	s.observersMu.Unlock()

	for _, observer := range observers {
		observer(user)
	}
}

func decodeUser(tokens model.Tokens) (*model.AuthenticatedUser, error) {
	claims, err := security.DecodeClaims(tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	return claims.User(tokens), nil
}
