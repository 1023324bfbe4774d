// Package otp issues and verifies the short-lived one-time codes that confirm
// ownership of an email address.
package otp

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// CodeLength is the number of decimal digits in an issued code.
const CodeLength = 6

// Challenge is the single active code for an email. Only the hash is stored.
type Challenge struct {
	Email     string
	CodeHash  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Attempts  int
	Locked    bool

	// SupersededHashes holds the hashes of every code this challenge replaced,
	// newest last, capped at MaxSuperseded.
	SupersededHashes []string
}

// MaxSuperseded bounds how many replaced codes a challenge remembers.
const MaxSuperseded = 16

// IsExpired reports whether the challenge is past its expiry at now.
func (c *Challenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Matches compares code against the stored hash in constant time.
func (c *Challenge) Matches(code string) bool {
	want := []byte(c.CodeHash)
	got := []byte(HashCode(c.Email, code))
	return subtle.ConstantTimeCompare(want, got) == 1
}

// Supersedes reports whether code belonged to any challenge this one replaced.
func (c *Challenge) Supersedes(code string) bool {
	got := []byte(HashCode(c.Email, code))
	found := 0
	for _, h := range c.SupersededHashes {
		found |= subtle.ConstantTimeCompare([]byte(h), got)
	}
	return found == 1
}

// replace returns the superseded list for a challenge that replaces c.
func (c *Challenge) replace() []string {
	hashes := make([]string, 0, len(c.SupersededHashes)+1)
	hashes = append(hashes, c.SupersededHashes...)
	hashes = append(hashes, c.CodeHash)
	if len(hashes) > MaxSuperseded {
		hashes = hashes[len(hashes)-MaxSuperseded:]
	}
	return hashes
}

// HashCode binds the code to the email so equal codes for different addresses
// produce different hashes.
func HashCode(email, code string) string {
	sum := sha256.Sum256([]byte(email + ":" + code))
	return hex.EncodeToString(sum[:])
}
