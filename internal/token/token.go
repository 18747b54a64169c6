// Package token generates random strings for DNS verification records.
package token

import (
	"crypto/rand"
	"math/big"
)

// Lowercase only: some DNS panels lowercase TXT values on save.
const charset = "0123456789abcdefghijklmnopqrstuvwxyz"

// Length of a domain verification token.
const Length = 32

var maxIdx = big.NewInt(int64(len(charset)))

// Generate returns a random string of n characters from [0-9a-z].
func Generate(n int) (string, error) {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, maxIdx)
		if err != nil {
			return "", err
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b), nil
}

// Verification returns a fresh domain verification token.
func Verification() (string, error) {
	return Generate(Length)
}
