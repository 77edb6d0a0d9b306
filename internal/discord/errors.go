// ABOUTME: Error taxonomy for the Discord gateway
// ABOUTME: Sentinel errors plus APIError carrying HTTP status and body

package discord

import (
	"errors"
	"fmt"
)

// ErrManualExtraction means no token is available and automated
// extraction is not possible. The remedy is running the interactive
// `discord-mcp token` flow and configuring DISCORD_TOKEN.
var ErrManualExtraction = errors.New(
	"no token available and automated extraction failed: " +
		"run 'discord-mcp token' to extract your token interactively, " +
		"then set DISCORD_TOKEN")

// APIError is a non-2xx response from the Discord REST API, surfaced after
// the single refresh-and-retry cycle has been exhausted. It is never
// retried further.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api: status %d: %s", e.Status, e.Body)
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
