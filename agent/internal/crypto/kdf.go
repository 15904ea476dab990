package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KDFIterations = 100_000
	SaltSize      = 16
)

// DeriveKeyFromPassword stretches password into a KeySize key with
// PBKDF2-HMAC-SHA256. A random salt is generated when salt is empty. The
// salt is returned because it is needed to derive the same key again.
func DeriveKeyFromPassword(password string, salt []byte) (key, usedSalt []byte, err error) {
	if len(salt) == 0 {
		salt = make([]byte, SaltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("generate salt: %w", err)
		}
	}
	key = pbkdf2.Key([]byte(password), salt, KDFIterations, KeySize, sha256.New)
	return key, salt, nil
}
