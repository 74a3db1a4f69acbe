package authcode

import (
	"bytes"
	"slices"
	"time"
)

type Verdict int

const (
	Invalid Verdict = iota
	Valid
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	default:
		return "invalid"
	}
}

func (v Verdict) IsValid() bool {
	return v == Valid
}

// LiveFilter selects the records a store should return. Code is optional;
// an empty Code means any code. Stores may return extra records, callers
// re-apply the filter with Keep.
type LiveFilter struct {
	SiteID string
	UserID string
	Code   string
	Now    time.Time
}

// Keep reports whether a satisfies the filter. The code comparison is
// constant time.
func (f LiveFilter) Keep(a *AuthCode) bool {
	if !a.BelongsTo(f.SiteID, f.UserID) || !a.IsLive(f.Now) {
		return false
	}
	if f.Code != "" && !a.Matches(f.Code) {
		return false
	}
	return true
}

func (f LiveFilter) Apply(codes []*AuthCode) []*AuthCode {
	kept := make([]*AuthCode, 0, len(codes))
	for _, c := range codes {
		if f.Keep(c) {
			kept = append(kept, c)
		}
	}
	return kept
}

// MostRecent returns the code created last, ties broken by the greater id.
func MostRecent(codes []*AuthCode) *AuthCode {
	codes = slices.DeleteFunc(slices.Clone(codes), func(c *AuthCode) bool { return c == nil })
	if len(codes) == 0 {
		return nil
	}
	return slices.MaxFunc(codes, func(a, b *AuthCode) int {
		if c := a.createdAt.Compare(b.createdAt); c != 0 {
			return c
		}
		return bytes.Compare(a.id[:], b.id[:])
	})
}

// Judge turns the matching live records into a verdict. Only a single
// unambiguous match is valid.
func Judge(matches []*AuthCode) Verdict {
	if len(matches) == 1 && matches[0] != nil {
		return Valid
	}
	return Invalid
}
