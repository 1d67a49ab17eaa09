package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// CredentialDigest returns a short stable digest of an API key, safe to log and use in keys
func CredentialDigest(credential string) string {
	digest := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(digest[:8])
}
