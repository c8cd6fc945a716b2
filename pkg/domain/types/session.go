package types

import (
	"github.com/google/uuid"
)

// SessionID identifies one gateway conversation exchange. It doubles as the
// provenance tag on memories created by the curation pipeline.
type SessionID string

// Provenance tags for memories that did not originate from a live session.
const (
	SourceSeedImport SessionID = "seed-import"
	SourceTextImport SessionID = "text-import"
	SourceJSONImport SessionID = "json-import"
	SourceAdmin      SessionID = "admin"
)

// NewSessionID generates a short session identifier. UUIDv7 keeps the prefix
// time-ordered; 8 characters is plenty for a provenance tag.
func NewSessionID() SessionID {
	return SessionID(uuid.Must(uuid.NewV7()).String()[:8])
}

// String returns the string representation of the SessionID
func (s SessionID) String() string {
	return string(s)
}
