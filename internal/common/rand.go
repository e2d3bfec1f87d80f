package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString generates a random hexadecimal string from size random
// bytes. The resulting string is twice as long as size, since each byte
// expands to two hex characters. Session tokens are minted with size=32,
// giving 256 bits of entropy.
//
// It returns an error only if the system random number generator fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns size cryptographically random bytes,
// e.g. for password salts.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	// rand.Read never returns a partial buffer without an error;
	// a failing CSPRNG is not recoverable here.
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}
