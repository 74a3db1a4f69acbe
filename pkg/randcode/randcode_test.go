package randcode

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNumeric(t *testing.T) {
	for range 200 {
		code, err := GenerateNumeric(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(Digits, r), "unexpected rune %q in %q", r, code)
		}
	}
}

func TestGenerate_Distribution(t *testing.T) {
	counts := make(map[rune]int)
	const total = 20000
	code, err := Generate(total, "ab")
	require.NoError(t, err)
	for _, r := range code {
		counts[r]++
	}

	assert.Len(t, counts, 2)
	// loose bound, the draw is uniform
	assert.InDelta(t, total/2, counts['a'], total*0.05)
}

func TestGenerate_UnicodeAlphabet(t *testing.T) {
	code, err := Generate(8, "αβγδ")
	require.NoError(t, err)
	assert.Equal(t, 8, len([]rune(code)))
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		alphabet string
		wantErr  error
	}{
		{name: "zero length", length: 0, alphabet: Digits, wantErr: ErrInvalidLength},
		{name: "negative length", length: -1, alphabet: Digits, wantErr: ErrInvalidLength},
		{name: "empty alphabet", length: 6, alphabet: "", wantErr: ErrInvalidAlphabet},
		{name: "single character", length: 6, alphabet: "7", wantErr: ErrInvalidAlphabet},
		{name: "duplicates", length: 6, alphabet: "0011", wantErr: ErrInvalidAlphabet},
		{name: "invalid utf8", length: 6, alphabet: "\xff\xfe", wantErr: ErrInvalidAlphabet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.length, tt.alphabet)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerateFrom_SourceFailure(t *testing.T) {
	_, err := GenerateFrom(failingReader{}, 6, Digits)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")
}
