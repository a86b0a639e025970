package models

import "time"

// Credential is the cached access token file.
// Field names are the on-disk keys.
type Credential struct {
	AccessToken string    `json:"AccessToken"`
	Expiration  time.Time `json:"Expiration"` // UTC
}

// Valid reports whether the token can still be used at now.
func (c *Credential) Valid(now time.Time) bool {
	return c != nil && c.AccessToken != "" && now.Before(c.Expiration)
}
