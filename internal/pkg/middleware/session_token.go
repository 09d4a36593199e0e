package middleware

import (
	"strconv"
	"time"

	"github.com/andrefurlan/adega/internal/pkg/cache"
	"github.com/google/uuid"
)

// Session tokens are opaque and live only in Redis; revoking one is a key
// delete, no DB state involved.
const sessionTTL = 30 * 24 * time.Hour

// IssueSessionToken creates and stores a session token for the user.
func IssueSessionToken(userID uint) (string, error) {
	token := uuid.NewString()
	key := sessionKeyPrefix + token
	if err := cache.Set(key, strconv.FormatUint(uint64(userID), 10), sessionTTL); err != nil {
		return "", err
	}
	return token, nil
}

// RevokeSessionToken invalidates a session token.
func RevokeSessionToken(token string) error {
	if token == "" {
		return nil
	}
	return cache.Delete(sessionKeyPrefix + token)
}
