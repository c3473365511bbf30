package auth

import "crypto/subtle"

// ConstantTimeEqual reports whether two credential strings are equal in time
// independent of where they first differ. Unequal lengths return false after
// the length check; there is no early exit on a mismatched byte, so an
// attacker cannot learn a secret prefix by measuring response latency.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
