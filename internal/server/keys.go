package server

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/openvault/vaultsync/internal/utils"
)

// KeyStore holds the accepted bearer API keys. Keys minted at runtime are
// appended to a plain-text key file so they survive restarts.
type KeyStore struct {
	mu   sync.RWMutex
	keys map[string]struct{}
	path string
}

func NewKeyStore(path string, initial []string) (*KeyStore, error) {
	ks := &KeyStore{
		keys: make(map[string]struct{}),
		path: path,
	}
	for _, k := range initial {
		if k != "" {
			ks.keys[k] = struct{}{}
		}
	}

	if utils.FileExists(path) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open key file: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if k := strings.TrimSpace(scanner.Text()); k != "" {
				ks.keys[k] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
	}

	return ks, nil
}

func (ks *KeyStore) Has(key string) bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	_, ok := ks.keys[key]
	return ok
}

func (ks *KeyStore) Len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys)
}

// Mint creates, persists and returns a fresh API key.
func (ks *KeyStore) Mint() (string, error) {
	key := uuid.NewString()

	ks.mu.Lock()
	defer ks.mu.Unlock()

	if err := utils.EnsureParent(ks.path); err != nil {
		return "", err
	}
	f, err := os.OpenFile(ks.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return "", fmt.Errorf("open key file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, key); err != nil {
		return "", fmt.Errorf("append key: %w", err)
	}

	ks.keys[key] = struct{}{}
	return key, nil
}
