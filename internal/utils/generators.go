package utils

import (
	"strings"

	"github.com/google/uuid"
)

func GenerateOrderID() string {
	return uuid.NewString()
}

// GenerateTicketID returns the first group of a random UUID, upper-cased,
// e.g. "3F2A9C1B".
func GenerateTicketID() string {
	id := uuid.NewString()
	return strings.ToUpper(id[:strings.IndexByte(id, '-')])
}

// GenerateQRCode returns the opaque door-entry token.
func GenerateQRCode() string {
	return uuid.NewString()
}
