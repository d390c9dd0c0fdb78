package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

// ErrNotAuthorized is returned for privileged commands on a session that has
// not authenticated as admin.
var ErrNotAuthorized = errors.New("not admin")

// AdminGate checks the shared admin secret.
type AdminGate struct {
	digest [sha256.Size]byte
	set    bool
}

// NewAdminGate returns a gate for secret. An empty secret rejects everyone.
func NewAdminGate(secret string) *AdminGate {
	if secret == "" {
		return &AdminGate{}
	}
	return &AdminGate{digest: sha256.Sum256([]byte(secret)), set: true}
}

// Authenticate reports whether secret matches, in constant time.
func (g *AdminGate) Authenticate(secret string) bool {
	if !g.set {
		return false
	}
	d := sha256.Sum256([]byte(secret))
	return subtle.ConstantTimeCompare(d[:], g.digest[:]) == 1
}
