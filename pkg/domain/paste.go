package domain

import (
	"time"
)

// DefaultTTL applies when a paste is created without an explicit expiry.
const DefaultTTL = 24 * time.Hour

// Paste is the stored form of an uploaded blob. Content is the base64
// ciphertext produced by the client and is never interpreted server side.
type Paste struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Live reports whether the paste is still readable at now.
func (p *Paste) Live(now time.Time) bool {
	return now.Before(p.ExpiresAt)
}
