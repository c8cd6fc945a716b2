package types

import "github.com/m-mizutani/goerr/v2"

// Role represents the speaker of a conversation turn entry
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Validate returns an error if the role is not a known value
func (r Role) Validate() error {
	if !r.IsValid() {
		return goerr.New("invalid role", goerr.V("role", string(r)))
	}
	return nil
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}
