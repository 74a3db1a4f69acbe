package authcode

import (
	"fmt"
	"html"

	"gitlab.com/ucmsv2/authcode-service/internal/domain/valueobject/mail"
)

type NotificationArgs struct {
	CompanyEmail string
	CompanyName  string
	UserEmail    string
	Code         string
}

// NewNotification builds the message delivering code to the user on behalf of
// the company.
func NewNotification(args NotificationArgs) mail.Message {
	return mail.Message{
		To:      args.UserEmail,
		From:    args.CompanyEmail,
		Subject: fmt.Sprintf("Authorization Code from %s", args.CompanyName),
		Text:    fmt.Sprintf("Here is your Authorization Code %s from %s.", args.Code, args.CompanyName),
		HTML: fmt.Sprintf(
			"<div>Authorization Code <strong>%s</strong> from %s.</div>",
			html.EscapeString(args.Code),
			html.EscapeString(args.CompanyName),
		),
	}
}
