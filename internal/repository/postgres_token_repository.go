package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"finance-tracker-client/config"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/util"
)

// PostgresTokenRepository : таблица key/value, одна строка на сессию
type PostgresTokenRepository struct {
	*config.Database
	sessionKey string
}

func NewPostgresTokenRepository(database *config.Database, sessionKey string) *PostgresTokenRepository {
	return &PostgresTokenRepository{database, sessionKey}
}

// EnsureSchema : создаёт таблицу client_sessions, если её нет
func (r *PostgresTokenRepository) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS client_sessions (
		session_key TEXT PRIMARY KEY,
		payload     JSONB NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

	if _, err := r.DB.ExecContext(ctx, query); err != nil {
		return util.LogError("[PostgresTokenRepo] не удалось создать таблицу client_sessions", err)
	}
	return nil
}

// Load : читает сессию, nil если строки нет
func (r *PostgresTokenRepository) Load(ctx context.Context) (*model.AuthenticatedUser, error) {
	query := `SELECT payload FROM client_sessions WHERE session_key = $1`

	var payload []byte
	err := r.DB.GetContext(ctx, &payload, query, r.sessionKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, util.LogError("[PostgresTokenRepo] ошибка при выполнении запроса", err)
	}

	var user model.AuthenticatedUser
	if err := json.Unmarshal(payload, &user); err != nil {
		return nil, util.LogError("[PostgresTokenRepo] ошибка десериализации сессии", err)
	}
	return &user, nil
}

// Store : upsert одной строкой, старое значение заменяется целиком
func (r *PostgresTokenRepository) Store(ctx context.Context, user *model.AuthenticatedUser) error {
	query := `INSERT INTO client_sessions (session_key, payload, updated_at)
				VALUES ($1, $2, now())
				ON CONFLICT (session_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
	`

	payload, err := json.Marshal(user)
	if err != nil {
		return util.LogError("[PostgresTokenRepo] ошибка сериализации сессии", err)
	}

	if _, err := r.DB.ExecContext(ctx, query, r.sessionKey, payload); err != nil {
		return util.LogError("[PostgresTokenRepo] ошибка вставки данных в БД", err)
	}
	return nil
}

func (r *PostgresTokenRepository) Delete(ctx context.Context) error {
	query := `DELETE FROM client_sessions WHERE session_key = $1`

	if _, err := r.DB.ExecContext(ctx, query, r.sessionKey); err != nil {
		return util.LogError("[PostgresTokenRepo] не удалось удалить сессию", err)
	}
	return nil
}
