package jobs

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// CodeLength is the length of a delegation code.
	CodeLength   = 6
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var alphabetSize = big.NewInt(int64(len(codeAlphabet)))

// CodeGenerator produces candidate delegation codes.
type CodeGenerator func() (string, error)

// NewDelegationCode returns a random 6-character base-36 code.
func NewDelegationCode() (string, error) {
	b := make([]byte, CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate delegation code: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// IsDelegationCode reports whether s has the shape of a delegation code.
func IsDelegationCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
