package authcode

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNilAuthCode = errors.New("auth code is nil")
	ErrEmptySiteID = errors.New("site id cannot be empty")
	ErrEmptyUserID = errors.New("user id cannot be empty")
	ErrInvalidID   = errors.New("invalid auth code id")
)

type ID uuid.UUID

func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return ID(uuid.New())
	}
	return ID(id)
}

func ParseID(s string) (ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	return ID(id), nil
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

func (id ID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// AuthCode is an issued code scoped to a (site, user) pair. It is never
// mutated after creation; expiry is decided at read time.
type AuthCode struct {
	id        ID
	siteID    string
	userID    string
	code      string
	expiresAt time.Time
	createdAt time.Time
	updatedAt time.Time
}

type NewArgs struct {
	SiteID string
	UserID string
	Now    time.Time
	Policy Policy
}

func New(args NewArgs) (*AuthCode, error) {
	if args.SiteID == "" {
		return nil, ErrEmptySiteID
	}
	if args.UserID == "" {
		return nil, ErrEmptyUserID
	}
	if args.Now.IsZero() {
		args.Now = time.Now()
	}

	code, err := args.Policy.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate auth code: %w", err)
	}

	now := args.Now.UTC()
	return &AuthCode{
		id:        NewID(),
		siteID:    args.SiteID,
		userID:    args.UserID,
		code:      code,
		expiresAt: now.Add(args.Policy.TTLOrDefault()),
		createdAt: now,
		updatedAt: now,
	}, nil
}

type RehydrateArgs struct {
	ID        ID
	SiteID    string
	UserID    string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func Rehydrate(args RehydrateArgs) *AuthCode {
	return &AuthCode{
		id:        args.ID,
		siteID:    args.SiteID,
		userID:    args.UserID,
		code:      args.Code,
		expiresAt: args.ExpiresAt,
		createdAt: args.CreatedAt,
		updatedAt: args.UpdatedAt,
	}
}

func (a *AuthCode) ID() ID {
	if a == nil {
		return ID{}
	}
	return a.id
}

func (a *AuthCode) SiteID() string {
	if a == nil {
		return ""
	}
	return a.siteID
}

func (a *AuthCode) UserID() string {
	if a == nil {
		return ""
	}
	return a.userID
}

func (a *AuthCode) Code() string {
	if a == nil {
		return ""
	}
	return a.code
}

func (a *AuthCode) ExpiresAt() time.Time {
	if a == nil {
		return time.Time{}
	}
	return a.expiresAt
}

func (a *AuthCode) CreatedAt() time.Time {
	if a == nil {
		return time.Time{}
	}
	return a.createdAt
}

func (a *AuthCode) UpdatedAt() time.Time {
	if a == nil {
		return time.Time{}
	}
	return a.updatedAt
}

// IsLive reports whether the code is still usable at now. A code expiring
// exactly at now is already dead.
func (a *AuthCode) IsLive(now time.Time) bool {
	if a == nil || a.expiresAt.IsZero() {
		return false
	}
	return a.expiresAt.After(now)
}

func (a *AuthCode) BelongsTo(siteID, userID string) bool {
	if a == nil {
		return false
	}
	return a.siteID == siteID && a.userID == userID
}

// Matches compares the stored code with candidate in constant time.
func (a *AuthCode) Matches(candidate string) bool {
	if a == nil || a.code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.code), []byte(candidate)) == 1
}
