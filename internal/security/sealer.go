package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var ErrSealedDataCorrupted = errors.New("зашифрованные данные повреждены или ключ не подходит")

// Sealer шифрует сессию перед записью на диск (XSalsa20-Poly1305)
type Sealer struct {
	key [32]byte
}

// NewSealer : ключ - 32 байта в base64
func NewSealer(secret string) (*Sealer, error) {
	raw, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("ключ шифрования не в base64: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("ключ шифрования должен быть 32 байта, получено %d", len(raw))
	}

	s := &Sealer{}
	copy(s.key[:], raw)
	return s, nil
}

// Seal : nonce || secretbox(plain)
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], plain, &nonce, &s.key), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrSealedDataCorrupted
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrSealedDataCorrupted
	}
	return plain, nil
}
