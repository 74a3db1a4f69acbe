package cmd

import (
	"context"
	"time"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/authcode"
	"gitlab.com/ucmsv2/authcode-service/internal/domain/valueobject/mail"
)

type Repo interface {
	FindLive(ctx context.Context, filter authcode.LiveFilter) ([]*authcode.AuthCode, error)
	Insert(ctx context.Context, a *authcode.AuthCode) error
}

// ConditionalInserter is implemented by stores that can insert a code only
// when no live code for the same (site, user) exists at write time. When one
// does, nothing is written and the live codes are returned instead.
type ConditionalInserter interface {
	InsertIfNoneLive(ctx context.Context, a *authcode.AuthCode, now time.Time) ([]*authcode.AuthCode, error)
}

type Notifier interface {
	Send(ctx context.Context, msg mail.Message) error
}
