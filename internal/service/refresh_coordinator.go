package service

import (
	"context"
	"errors"
	"finance-tracker-client/internal/metrics"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/ports"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

const refreshFlightKey = "refresh"

// RefreshCoordinator гарантирует не больше одного обращения к /user/refresh-token одновременно.
// Все, кто пришёл пока обновление в полёте, получают тот же *model.Rotation.
type RefreshCoordinator struct {
	group     singleflight.Group
	store     ports.TokenStore
	refresher ports.TokenRefresher
	timeout   time.Duration
	logger    *slog.Logger
}

func NewRefreshCoordinator(
	store ports.TokenStore,
	refresher ports.TokenRefresher,
	timeout time.Duration,
	logger *slog.Logger,
) *RefreshCoordinator {
	return &RefreshCoordinator{
		store:     store,
		refresher: refresher,
		timeout:   timeout,
		logger:    logger,
	}
}

// RequestRefresh : присоединяется к текущему обновлению или запускает новое.
// Обновление не привязано к ctx вызывающего: отмена одного ожидающего не ломает остальных.
func (c *RefreshCoordinator) RequestRefresh(ctx context.Context) (*model.Rotation, error) {
	flight := c.group.DoChan(refreshFlightKey, func() (interface{}, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case result := <-flight:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*model.Rotation), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", model.ErrRefreshFailed, ctx.Err())
	}
}

func (c *RefreshCoordinator) refresh(ctx context.Context) (*model.Rotation, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	current, err := c.store.Get(ctx)
	if err != nil {
		return nil, c.failed(err)
	}
	if current == nil || current.RefreshToken == "" {
		metrics.RefreshTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, &model.RefreshRejectedError{Err: errors.New("нет сохранённого refresh токена")}
	}

	c.logger.Debug("[RefreshCoordinator] обновление токенов")
	issued, err := c.refresher.RefreshToken(ctx, current.RefreshToken)
	if err != nil {
		if isRefreshRejection(err) {
			metrics.RefreshTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
			c.logger.Info("[RefreshCoordinator] refresh токен отклонён", slog.Any("error", err))
			return nil, &model.RefreshRejectedError{Consumed: current.RefreshToken, Err: err}
		}
		return nil, c.failed(err)
	}
	if issued == nil || issued.AccessToken == "" {
		return nil, c.failed(errors.New("сервер не вернул access токен"))
	}

	// сервер без ротации refresh токена
	if issued.RefreshToken == "" {
		issued.RefreshToken = current.RefreshToken
	}

	metrics.RefreshTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return &model.Rotation{Consumed: current.RefreshToken, Issued: *issued}, nil
}

func (c *RefreshCoordinator) failed(err error) error {
	metrics.RefreshTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
	c.logger.Warn("[RefreshCoordinator] не удалось обновить токены", slog.Any("error", err))
	return fmt.Errorf("%w: %w", model.ErrRefreshFailed, err)
}

// 400 и 401 от refresh эндпоинта значат, что refresh токен больше не действителен
func isRefreshRejection(err error) bool {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnauthorized
}
