package relay

import "github.com/google/uuid"

// GenerateSessionID - generates the identifier a host shares with the
// peer who wants to join its match.
func GenerateSessionID() string {
	return uuid.NewString()
}
