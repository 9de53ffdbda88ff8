package utils

import (
	"crypto/rand"
	"math/big"
)

// Code lengths used across the service.  Private codes are longer than
// management and attendance codes so that unlisted sessions are harder
// to find by guessing.
const (
	DefaultCodeLength = 8
	PrivateCodeLength = 10
)

// codeAlphabet is lower-case alphanumeric so codes survive being typed
// into a URL or read out loud.
const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateCode returns a random alphanumeric code of the given length
// drawn from crypto/rand.  A non-positive length falls back to
// DefaultCodeLength.  Uniqueness is not checked here.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
