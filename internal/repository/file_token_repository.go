package repository

import (
	"context"
	"encoding/json"
	"errors"
	"finance-tracker-client/internal/model"
	"finance-tracker-client/internal/security"
	"finance-tracker-client/internal/util"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileTokenRepository : аналог localStorage для CLI.
// Пишет во временный файл и переименовывает, так что файл всегда целый.
// Если sealer задан, содержимое шифруется.
type FileTokenRepository struct {
	mu     sync.Mutex
	path   string
	sealer *security.Sealer
}

func NewFileTokenRepository(path string, sealer *security.Sealer) *FileTokenRepository {
	return &FileTokenRepository{path: path, sealer: sealer}
}

func (r *FileTokenRepository) Load(ctx context.Context) (*model.AuthenticatedUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, util.LogError("[FileTokenRepo] ошибка чтения файла сессии", err)
	}

	if r.sealer != nil {
		if data, err = r.sealer.Open(data); err != nil {
			return nil, util.LogError("[FileTokenRepo] не удалось расшифровать сессию", err)
		}
	}

	var user model.AuthenticatedUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, util.LogError("[FileTokenRepo] ошибка десериализации сессии", err)
	}
	return &user, nil
}

func (r *FileTokenRepository) Store(ctx context.Context, user *model.AuthenticatedUser) error {
	data, err := json.Marshal(user)
	if err != nil {
		return util.LogError("[FileTokenRepo] ошибка сериализации сессии", err)
	}

	if r.sealer != nil {
		if data, err = r.sealer.Seal(data); err != nil {
			return util.LogError("[FileTokenRepo] не удалось зашифровать сессию", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return util.LogError("[FileTokenRepo] не удалось создать каталог", err)
	}

	tempFile := r.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return util.LogError("[FileTokenRepo] ошибка записи временного файла", err)
	}

	if err := os.Rename(tempFile, r.path); err != nil {
		if removeErr := os.Remove(tempFile); removeErr != nil {
			err = fmt.Errorf("%w; временный файл тоже не удалён: %v", err, removeErr)
		}
		return util.LogError("[FileTokenRepo] ошибка переименования файла сессии", err)
	}

	return nil
}

func (r *FileTokenRepository) Delete(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return util.LogError("[FileTokenRepo] не удалось удалить файл сессии", err)
	}
	return nil
}
