// Package cryptox derives login verifiers from passwords. The password never
// leaves the client: it is stretched with argon2id and only the SHA-256 of
// the derived key is sent to the server.
package cryptox

import (
	"crypto/sha256"

	"github.com/dmitrijs2005/civicreport/internal/common"
	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of a freshly generated salt.
const SaltSize = 32

// DeriveMasterKey stretches password with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier returns the value stored and compared by the server.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// NewCredentials generates a random salt and the matching verifier for
// password. The derived key is wiped before returning.
func NewCredentials(password []byte) (salt, verifier []byte) {
	salt = common.GenerateRandByteArray(SaltSize)
	key := DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)
	return salt, MakeVerifier(key)
}
