package postgres

import (
	"time"

	"github.com/google/uuid"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
)

type AuthCodeDTO struct {
	ID        uuid.UUID `db:"id"`
	SiteID    string    `db:"site_id"`
	UserID    string    `db:"user_id"`
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func DomainToAuthCodeDTO(a *authcode.AuthCode) AuthCodeDTO {
	return AuthCodeDTO{
		ID:        uuid.UUID(a.ID()),
		SiteID:    a.SiteID(),
		UserID:    a.UserID(),
		Code:      a.Code(),
		ExpiresAt: a.ExpiresAt(),
		CreatedAt: a.CreatedAt(),
		UpdatedAt: a.UpdatedAt(),
	}
}

func AuthCodeToDomain(dto AuthCodeDTO) *authcode.AuthCode {
	return authcode.Rehydrate(authcode.RehydrateArgs{
		ID:        authcode.ID(dto.ID),
		SiteID:    dto.SiteID,
		UserID:    dto.UserID,
		Code:      dto.Code,
		ExpiresAt: dto.ExpiresAt.UTC(),
		CreatedAt: dto.CreatedAt.UTC(),
		UpdatedAt: dto.UpdatedAt.UTC(),
	})
}
