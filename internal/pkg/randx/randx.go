/*
Package randx provides generators for the opaque identifiers used by the
realtime core: connection ids, message ids, and client correlation tokens.
*/
package randx

import (
	"github.com/google/uuid"
)

// ConnectionID generates a unique identifier for one live transport session.
func ConnectionID() string {
	return uuid.New().String()
}

// MessageID generates a unique identifier for a message row.
func MessageID() string {
	return uuid.New().String()
}

// CorrelationID generates a fallback correlation token for clients that did
// not supply their own.
func CorrelationID() string {
	return uuid.New().String()
}
