package query

import (
	"errors"
	"net/http"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
	"gitlab.com/ucmsv2/authcode-service/pkg/errorx"
	"gitlab.com/ucmsv2/authcode-service/pkg/validationx"
	"gitlab.com/ucmsv2/authcode-service/tests/mocks"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type VerifyCodeSuite struct {
	Handler *VerifyCodeHandler
	Repo    *mocks.AuthCodeRepo
	Now     time.Time
}

func NewVerifyCodeSuite(t *testing.T) *VerifyCodeSuite {
	t.Helper()

	s := &VerifyCodeSuite{
		Repo: mocks.NewAuthCodeRepo(),
		Now:  baseTime,
	}
	s.Handler = NewVerifyCodeHandler(VerifyCodeHandlerArgs{
		Finder: s.Repo,
		Now:    func() time.Time { return s.Now },
	})
	return s
}

func seeded(site, user, code string, created time.Time, ttl time.Duration) *authcode.AuthCode {
	id, _ := uuid.NewV7()
	return authcode.Rehydrate(authcode.RehydrateArgs{
		ID:        authcode.ID(id),
		SiteID:    site,
		UserID:    user,
		Code:      code,
		CreatedAt: created,
		UpdatedAt: created,
		ExpiresAt: created.Add(ttl),
	})
}

func TestVerifyCodeHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		seed  []*authcode.AuthCode
		query VerifyCode
		now   time.Time
		want  authcode.Verdict
	}{
		{
			name:  "single live match",
			seed:  []*authcode.AuthCode{seeded("s", "u", "123456", baseTime, 30*time.Minute)},
			query: VerifyCode{SiteID: "s", UserID: "u", AuthCode: "123456"},
			now:   baseTime.Add(10 * time.Minute),
			want:  authcode.Valid,
		},
		{
			name:  "wrong code",
			seed:  []*authcode.AuthCode{seeded("s", "u", "123456", baseTime, 30*time.Minute)},
			query: VerifyCode{SiteID: "s", UserID: "u", AuthCode: "654321"},
			now:   baseTime,
			want:  authcode.Invalid,
		},
		{
			name:  "expired exactly now",
			seed:  []*authcode.AuthCode{seeded("s", "u", "123456", baseTime, 30*time.Minute)},
			query: VerifyCode{SiteID: "s", UserID: "u", AuthCode: "123456"},
			now:   baseTime.Add(30 * time.Minute),
			want:  authcode.Invalid,
		},
		{
			name:  "other user",
			seed:  []*authcode.AuthCode{seeded("s", "u", "123456", baseTime, 30*time.Minute)},
			query: VerifyCode{SiteID: "s", UserID: "someone", AuthCode: "123456"},
			now:   baseTime,
			want:  authcode.Invalid,
		},
		{
			name:  "other site",
			seed:  []*authcode.AuthCode{seeded("s", "u", "123456", baseTime, 30*time.Minute)},
			query: VerifyCode{SiteID: "x", UserID: "u", AuthCode: "123456"},
			now:   baseTime,
			want:  authcode.Invalid,
		},
		{
			name: "ambiguous live duplicates",
			seed: []*authcode.AuthCode{
				seeded("s", "u", "123456", baseTime, 30*time.Minute),
				seeded("s", "u", "123456", baseTime.Add(time.Minute), 30*time.Minute),
			},
			query: VerifyCode{SiteID: "s", UserID: "u", AuthCode: "123456"},
			now:   baseTime.Add(2 * time.Minute),
			want:  authcode.Invalid,
		},
		{
			name: "duplicate value with one expired",
			seed: []*authcode.AuthCode{
				seeded("s", "u", "123456", baseTime.Add(-time.Hour), 30*time.Minute),
				seeded("s", "u", "123456", baseTime, 30*time.Minute),
			},
			query: VerifyCode{SiteID: "s", UserID: "u", AuthCode: "123456"},
			now:   baseTime,
			want:  authcode.Valid,
		},
		{
			name:  "nothing stored",
			query: VerifyCode{SiteID: "s", UserID: "u", AuthCode: "123456"},
			now:   baseTime,
			want:  authcode.Invalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewVerifyCodeSuite(t)
			s.Repo.SeedAuthCode(t, tt.seed...)
			s.Now = tt.now

			got, err := s.Handler.Handle(t.Context(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyCodeHandler_IsReadOnly(t *testing.T) {
	s := NewVerifyCodeSuite(t)
	s.Repo.SeedAuthCode(t, seeded("s", "u", "123456", baseTime, 30*time.Minute))

	q := VerifyCode{SiteID: "s", UserID: "u", AuthCode: "123456"}
	for range 5 {
		got, err := s.Handler.Handle(t.Context(), q)
		require.NoError(t, err)
		assert.Equal(t, authcode.Valid, got)
	}

	s.Repo.AssertCount(t, 1)
	assert.Zero(t, s.Repo.InsertCalls())
}

func TestVerifyCodeHandler_Validation(t *testing.T) {
	s := NewVerifyCodeSuite(t)

	_, err := s.Handler.Handle(t.Context(), VerifyCode{SiteID: "s", UserID: " ", AuthCode: ""})
	require.Error(t, err)
	assert.True(t, errorx.IsValidationFailed(err))
	validationx.AssertValidationErrors(t, err, validation.Errors{
		"userId":   validationx.ErrBlank,
		"authCode": validation.ErrRequired,
	})
	assert.Zero(t, s.Repo.FindCalls())
}

func TestVerifyCodeHandler_ReadFailure(t *testing.T) {
	s := NewVerifyCodeSuite(t)
	s.Repo.SetFindError(errors.New("timeout"))

	got, err := s.Handler.Handle(t.Context(), VerifyCode{SiteID: "s", UserID: "u", AuthCode: "1"})
	require.Error(t, err)
	assert.Equal(t, authcode.Invalid, got)
	assert.True(t, errorx.IsStoreReadFailed(err))

	var i18nErr *errorx.I18nError
	require.ErrorAs(t, err, &i18nErr)
	assert.Equal(t, http.StatusInternalServerError, i18nErr.HTTPStatusCode())
}
