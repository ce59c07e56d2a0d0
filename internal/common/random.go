package common

import (
	"crypto/rand"
	"math/big"
)

const allowedChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MakeRandString returns a random string of the given length drawn from
// ASCII letters and digits. It is used for password salts and unusable
// password markers.
func MakeRandString(length int) (string, error) {
	b := make([]byte, length)
	limit := big.NewInt(int64(len(allowedChars)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = allowedChars[n.Int64()]
	}
	return string(b), nil
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Used for passwords read from the terminal. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
