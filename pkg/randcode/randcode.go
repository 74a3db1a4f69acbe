package randcode

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"unicode/utf8"
)

const Digits = "0123456789"

var (
	ErrInvalidLength   = errors.New("code length must be positive")
	ErrInvalidAlphabet = errors.New("alphabet must contain at least two distinct characters")
)

// Generate returns a string of length runes drawn uniformly from alphabet using crypto/rand.
func Generate(length int, alphabet string) (string, error) {
	return GenerateFrom(rand.Reader, length, alphabet)
}

// GenerateNumeric returns a decimal code of the given length. Leading zeros are kept.
func GenerateNumeric(length int) (string, error) {
	return Generate(length, Digits)
}

func GenerateFrom(src io.Reader, length int, alphabet string) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}
	letters, err := ValidateAlphabet(alphabet)
	if err != nil {
		return "", err
	}

	upper := big.NewInt(int64(len(letters)))
	b := make([]rune, length)
	for i := range b {
		n, err := rand.Int(src, upper)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		b[i] = letters[n.Int64()]
	}

	return string(b), nil
}

// ValidateAlphabet returns the alphabet as runes, or an error if it is unusable.
func ValidateAlphabet(alphabet string) ([]rune, error) {
	if !utf8.ValidString(alphabet) {
		return nil, ErrInvalidAlphabet
	}
	letters := []rune(alphabet)
	seen := make(map[rune]struct{}, len(letters))
	for _, r := range letters {
		if _, dup := seen[r]; dup {
			return nil, fmt.Errorf("%w: duplicate character %q", ErrInvalidAlphabet, r)
		}
		seen[r] = struct{}{}
	}
	if len(letters) < 2 {
		return nil, ErrInvalidAlphabet
	}
	return letters, nil
}
