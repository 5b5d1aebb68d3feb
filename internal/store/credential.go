package store

import (
	"strings"
	"sync"
)

// Credentials hands the current bearer token to remote adapters.
// Tokens are issued by an external auth service; this only holds them.
type Credentials interface {
	Token() (string, bool)
}

type TokenHolder struct {
	mu    sync.RWMutex
	token string
}

func NewTokenHolder(token string) *TokenHolder {
	return &TokenHolder{token: strings.TrimSpace(token)}
}

func (h *TokenHolder) Token() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token, h.token != ""
}

func (h *TokenHolder) Set(token string) {
	h.mu.Lock()
	h.token = strings.TrimSpace(token)
	h.mu.Unlock()
}

func (h *TokenHolder) Clear() { h.Set("") }
