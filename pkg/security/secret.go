package security

import "crypto/subtle"

// SecretEqual compares two shared-secret tokens without leaking timing
// information about where they diverge.
func SecretEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
