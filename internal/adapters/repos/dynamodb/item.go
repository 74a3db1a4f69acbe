package dynamodb

import (
	"time"

	"github.com/google/uuid"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
)

// item is the table layout. ttl, createdAt and updatedAt are epoch
// milliseconds; expiresAtEpoch is epoch seconds for DynamoDB TTL.
type item struct {
	ID             string `dynamodbav:"id"`
	AuthCode       string `dynamodbav:"authCode"`
	SiteID         string `dynamodbav:"siteId"`
	UserID         string `dynamodbav:"userId"`
	TTL            int64  `dynamodbav:"ttl"`
	CreatedAt      int64  `dynamodbav:"createdAt"`
	UpdatedAt      int64  `dynamodbav:"updatedAt"`
	ExpiresAtEpoch int64  `dynamodbav:"expiresAtEpoch,omitempty"`
}

func toItem(a *authcode.AuthCode) item {
	return item{
		ID:             a.ID().String(),
		AuthCode:       a.Code(),
		SiteID:         a.SiteID(),
		UserID:         a.UserID(),
		TTL:            a.ExpiresAt().UnixMilli(),
		CreatedAt:      a.CreatedAt().UnixMilli(),
		UpdatedAt:      a.UpdatedAt().UnixMilli(),
		ExpiresAtEpoch: a.ExpiresAt().Unix(),
	}
}

// toDomain maps an item back. Ids that are not UUIDs get a stable name based
// UUID so they still compare and order consistently.
func toDomain(it item) *authcode.AuthCode {
	id, err := uuid.Parse(it.ID)
	if err != nil {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(it.ID))
	}

	return authcode.Rehydrate(authcode.RehydrateArgs{
		ID:        authcode.ID(id),
		SiteID:    it.SiteID,
		UserID:    it.UserID,
		Code:      it.AuthCode,
		ExpiresAt: time.UnixMilli(it.TTL).UTC(),
		CreatedAt: time.UnixMilli(it.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(it.UpdatedAt).UTC(),
	})
}
