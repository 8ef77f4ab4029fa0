package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a UUIDv7 string. Ids of auctions, bids and events sort by creation time.
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
