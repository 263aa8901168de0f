// Package identity assigns each visitor device a stable chat session id.
package identity

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SessionKey is the device-local storage key holding the session id.
const SessionKey = "chat_session_id"

// MaxSessionIDLen bounds a session id to what the message store keeps.
const MaxSessionIDLen = 64

// ValidSessionID reports whether id can be used as a session id.
func ValidSessionID(id string) bool {
	return id != "" && len(id) <= MaxSessionIDLen
}

// Storage is device-local key/value storage: a browser's cookies, or a file
// for non-browser clients.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// GetOrCreateSessionID returns the session id persisted in storage, creating
// one on first use or when the stored value is not a valid id. It returns ""
// when storage is unavailable; callers treat that as chat disabled.
func GetOrCreateSessionID(storage Storage) string {
	if storage == nil {
		return ""
	}
	if id, ok := storage.Get(SessionKey); ok && ValidSessionID(id) {
		return id
	}
	id := NewSessionID()
	if err := storage.Set(SessionKey, id); err != nil {
		log.Warn().Err(err).Str("component", "identity").Msg("cannot persist session id; chat disabled")
		return ""
	}
	return id
}

// NewSessionID generates a time-ordered id: a UUIDv7 carries a millisecond
// timestamp followed by random bits. It is not meant to be unguessable.
func NewSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
