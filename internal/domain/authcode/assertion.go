package authcode

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type Assertion struct {
	AuthCode *AuthCode
}

func NewAssertion(a *AuthCode) *Assertion {
	return &Assertion{AuthCode: a}
}

func (as *Assertion) AssertScope(t *testing.T, siteID, userID string) *Assertion {
	t.Helper()
	assert.Equal(t, siteID, as.AuthCode.siteID, "Expected auth code site id to be %s", siteID)
	assert.Equal(t, userID, as.AuthCode.userID, "Expected auth code user id to be %s", userID)
	return as
}

func (as *Assertion) AssertCode(t *testing.T, expected string) *Assertion {
	t.Helper()
	assert.Equal(t, expected, as.AuthCode.code, "Expected auth code to be %s, got %s", expected, as.AuthCode.code)
	return as
}

func (as *Assertion) AssertCodeShape(t *testing.T, length int, alphabet string) *Assertion {
	t.Helper()
	assert.Len(t, []rune(as.AuthCode.code), length, "Expected auth code length %d", length)
	for _, r := range as.AuthCode.code {
		assert.True(t, strings.ContainsRune(alphabet, r), "Expected auth code to only contain %q", alphabet)
	}
	return as
}

func (as *Assertion) AssertExpiresAt(t *testing.T, expected time.Time) *Assertion {
	t.Helper()
	assert.True(t, expected.Equal(as.AuthCode.expiresAt), "Expected expiresAt %s, got %s", expected, as.AuthCode.expiresAt)
	return as
}

func (as *Assertion) AssertLive(t *testing.T, now time.Time) *Assertion {
	t.Helper()
	assert.True(t, as.AuthCode.IsLive(now), "Expected auth code to be live at %s, expires at %s", now, as.AuthCode.expiresAt)
	return as
}

func (as *Assertion) AssertUnchangedSinceCreation(t *testing.T) *Assertion {
	t.Helper()
	assert.True(t, as.AuthCode.createdAt.Equal(as.AuthCode.updatedAt), "Expected updatedAt to equal createdAt")
	return as
}
