package devserver

import (
	"finance-tracker-client/internal/model"
	"sync"
	"time"
)

type account struct {
	username         string
	email            string
	passwordHash     string
	firstName        *string
	lastName         *string
	verified         bool
	verificationCode string
}

type refreshSession struct {
	username  string
	expiresAt time.Time
}

// ledger : данные одного пользователя
type ledger struct {
	entries    map[string]model.Entry
	tags       map[string]model.Tag
	categories map[string]model.Category
}

func newLedger() *ledger {
	return &ledger{
		entries:    make(map[string]model.Entry),
		tags:       make(map[string]model.Tag),
		categories: make(map[string]model.Category),
	}
}

// state : всё хранится в памяти процесса
type state struct {
	mu           sync.Mutex
	accounts     map[string]*account
	emails       map[string]string
	sessions     map[string]refreshSession
	activeAccess map[string]string
	resetTokens  map[string]string
	ledgers      map[string]*ledger
}

func newState() *state {
	return &state{
		accounts:     make(map[string]*account),
		emails:       make(map[string]string),
		sessions:     make(map[string]refreshSession),
		activeAccess: make(map[string]string),
		resetTokens:  make(map[string]string),
		ledgers:      make(map[string]*ledger),
	}
}

// ledgerOf : вызывать под s.mu
func (s *state) ledgerOf(username string) *ledger {
	l, ok := s.ledgers[username]
	if !ok {
		l = newLedger()
		s.ledgers[username] = l
	}
	return l
}

// revokeAll : вызывать под s.mu
func (s *state) revokeAll(username string) {
	for token, owner := range s.activeAccess {
		if owner == username {
			delete(s.activeAccess, token)
		}
	}
	for token, session := range s.sessions {
		if session.username == username {
			delete(s.sessions, token)
		}
	}
}
