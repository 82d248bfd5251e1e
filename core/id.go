package core

import "github.com/google/uuid"

// NewID returns a random unique identifier used for messages, tool calls and
// invocations.
func NewID() string {
	return uuid.NewString()
}
