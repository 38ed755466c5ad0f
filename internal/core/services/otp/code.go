package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"regexp"
)

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// generateCode samples a code uniformly from the whole space of the given
// length. Without leading zeros the space is [10^(n-1), 10^n).
func generateCode(random io.Reader, length int, leadingZeros bool) (string, error) {
	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	lower := big.NewInt(0)
	if !leadingZeros {
		lower = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length-1)), nil)
	}

	n, err := rand.Int(random, new(big.Int).Sub(upper, lower))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	n.Add(n, lower)
	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// codeMatches compares a submitted code with a stored hash in constant time.
func codeMatches(code, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(storedHash)) == 1
}

// wellFormed checks the code is all digits with the expected length.
func wellFormed(code string, length int) bool {
	return len(code) == length && digitsOnly.MatchString(code)
}
