package sessionmanager

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/fergusfinn/claude-host/internal/domain"
)

const executorTokenPrefix = "chk_"

// mintExecutorToken generates a fresh `chk_`+64-hex-char secret (32 random
// bytes) plus its sha256 hash and 8-char prefix for storage (spec.md §4.6,
// §6 "Executor token format").
func mintExecutorToken() (secret, hash, prefix string, err error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", "", "", domain.Wrap(domain.ErrIOFailure, "generating executor token", err)
	}
	hexSecret := hex.EncodeToString(buf)
	secret = executorTokenPrefix + hexSecret
	sum := sha256.Sum256([]byte(secret))
	hash = hex.EncodeToString(sum[:])
	prefix = secret[:8]
	return secret, hash, prefix, nil
}

// CreateExecutorKey mints a new credential owned by userID.
func (m *Manager) CreateExecutorKey(ctx context.Context, userID, name string) (secret string, key domain.ExecutorKey, err error) {
	secret, hash, prefix, err := mintExecutorToken()
	if err != nil {
		return "", domain.ExecutorKey{}, err
	}
	key = domain.ExecutorKey{
		ID: uuid.New().String(), OwnerUserID: userID, Name: name,
		KeyHash: hash, KeyPrefix: prefix, CreatedAt: time.Now().UTC(),
	}
	if err := m.store.CreateExecutorKey(ctx, &key); err != nil {
		return "", domain.ExecutorKey{}, err
	}
	return secret, key, nil
}

// ListExecutorKeys returns every key (including revoked) owned by userID.
func (m *Manager) ListExecutorKeys(ctx context.Context, userID string) ([]domain.ExecutorKey, error) {
	return m.store.ListExecutorKeys(ctx, userID)
}

// RevokeExecutorKey revokes key id, enforcing ownership.
func (m *Manager) RevokeExecutorKey(ctx context.Context, userID, keyID string) error {
	keys, err := m.store.ListExecutorKeys(ctx, userID)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k.ID == keyID {
			return m.store.RevokeExecutorKey(ctx, keyID)
		}
	}
	return domain.New(domain.ErrNotOwned, "executor key not owned by caller")
}

// ValidateExecutorToken parses token, looks up the non-revoked row by the
// token's sha256 hash, constant-time-compares that hash, and rejects revoked
// or expired rows (spec.md §4.6 "validateExecutorKey").
func (m *Manager) ValidateExecutorToken(ctx context.Context, token string) (*domain.ExecutorKey, error) {
	if len(token) != len(executorTokenPrefix)+64 || token[:len(executorTokenPrefix)] != executorTokenPrefix {
		return nil, domain.New(domain.ErrUnauthenticated, "malformed executor token")
	}
	sum := sha256.Sum256([]byte(token))
	hash := hex.EncodeToString(sum[:])

	key, err := m.store.FindExecutorKeyByHash(ctx, hash)
	if err != nil {
		return nil, domain.New(domain.ErrUnauthenticated, "executor token not recognized")
	}
	if subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hash)) != 1 {
		return nil, domain.New(domain.ErrUnauthenticated, "executor token not recognized")
	}
	if key.Revoked {
		return nil, domain.New(domain.ErrUnauthenticated, "executor token revoked")
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now().UTC()) {
		return nil, domain.New(domain.ErrUnauthenticated, "executor token expired")
	}
	_ = m.store.TouchExecutorKey(ctx, key.ID, time.Now().UTC())
	return key, nil
}
