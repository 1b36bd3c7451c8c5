package logger

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateCorrelationID returns a random UUID v4 string
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// GenerateShortID returns a 16 character hex identifier
func GenerateShortID() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:16]
}
