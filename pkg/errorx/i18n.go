package errorx

import (
	"errors"
	"fmt"
	"maps"
	"net/http"

	"github.com/nicksnyder/go-i18n/v2/i18n"

	"gitlab.com/ucmsv2/authcode-service/pkg/i18nx"
)

type I18nError struct {
	cause              error
	MessageKey         string
	MessageArgs        map[string]any
	MessagePluralCount any
	HTTPCode           int
	Code               Code
}

func (e *I18nError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.MessageKey)
	}

	return fmt.Sprintf("[%s] %s: %s", e.Code, e.MessageKey, e.cause)
}

func (e *I18nError) Unwrap() error {
	return e.cause
}

// Localize falls back to the message key when the bundle has no translation for it.
func (e *I18nError) Localize(localizer *i18n.Localizer) string {
	if localizer == nil {
		return e.MessageKey
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    e.MessageKey,
		TemplateData: e.MessageArgs,
		PluralCount:  e.MessagePluralCount,
	})
	if err != nil {
		return e.MessageKey
	}
	return msg
}

func (e *I18nError) HTTPStatusCode() int {
	if e.HTTPCode != 0 {
		return e.HTTPCode
	}

	return HTTPStatusCode(e.Code)
}

func (e *I18nError) WithHTTPCode(code int) *I18nError {
	e.HTTPCode = code
	return e
}

func (e *I18nError) WithArgs(args map[string]any) *I18nError {
	if e.MessageArgs == nil {
		e.MessageArgs = make(map[string]any)
	}

	maps.Copy(e.MessageArgs, args)

	return e
}

func (e *I18nError) WithCause(cause error) *I18nError {
	e.cause = cause
	return e
}

func New(messageKey string) *I18nError {
	return &I18nError{
		MessageKey:  messageKey,
		MessageArgs: make(map[string]any),
		HTTPCode:    http.StatusInternalServerError,
		Code:        CodeInternal,
	}
}

func HTTPStatusCode(code Code) int {
	switch code {
	case CodeInvalid, CodeValidationFailed, CodeInvalidAuthCode:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeStoreWriteFailed:
		return http.StatusNotImplemented
	case CodeNotifyFailed, CodeUpstreamError:
		return http.StatusBadGateway
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func IsCode(err error, code Code) bool {
	if err == nil {
		return false
	}

	var i18nErr *I18nError
	if errors.As(err, &i18nErr) {
		return i18nErr.Code == code
	}

	return false
}

func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

func IsValidationFailed(err error) bool {
	return IsCode(err, CodeValidationFailed)
}

func IsStoreReadFailed(err error) bool {
	return IsCode(err, CodeStoreReadFailed)
}

func IsStoreWriteFailed(err error) bool {
	return IsCode(err, CodeStoreWriteFailed)
}

func IsNotifyFailed(err error) bool {
	return IsCode(err, CodeNotifyFailed)
}

// CollaboratorStatus reports the HTTP status carried by the first error in
// the chain that exposes one, such as AWS SDK response errors. Statuses
// outside 400..599 are ignored. I18nError values are skipped so a wrapped
// error taxonomy does not masquerade as a collaborator status.
func CollaboratorStatus(err error) (int, bool) {
	for err != nil {
		if _, ok := err.(*I18nError); !ok {
			switch v := err.(type) {
			case interface{ HTTPStatusCode() int }:
				if code := v.HTTPStatusCode(); code >= 400 && code <= 599 {
					return code, true
				}
			case interface{ StatusCode() int }:
				if code := v.StatusCode(); code >= 400 && code <= 599 {
					return code, true
				}
			}
		}

		switch x := err.(type) {
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		case interface{ Unwrap() []error }:
			for _, e := range x.Unwrap() {
				if code, ok := CollaboratorStatus(e); ok {
					return code, true
				}
			}
			return 0, false
		default:
			return 0, false
		}
	}

	return 0, false
}

// Client Errors (4xx)
func NewInvalidRequest() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyInvalid,
		Code:       CodeInvalid,
		HTTPCode:   http.StatusBadRequest,
	}
}

func NewValidationFailed() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyValidationFailed,
		Code:       CodeValidationFailed,
		HTTPCode:   http.StatusBadRequest,
	}
}

func NewValidationFieldFailed(field string) *I18nError {
	return &I18nError{
		MessageKey:  i18nx.KeyValidationFailedField,
		MessageArgs: map[string]any{"Field": field},
		Code:        CodeValidationFailed,
		HTTPCode:    http.StatusBadRequest,
	}
}

func NewNotFound() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyNotFound,
		Code:       CodeNotFound,
		HTTPCode:   http.StatusNotFound,
	}
}

func NewMethodNotAllowed() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyMethodNotAllowed,
		Code:       CodeMethodNotAllowed,
		HTTPCode:   http.StatusMethodNotAllowed,
	}
}

func NewConflict() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyConflict,
		Code:       CodeConflict,
		HTTPCode:   http.StatusConflict,
	}
}

func NewInvalidAuthCode() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyInvalidAuthCode,
		Code:       CodeInvalidAuthCode,
		HTTPCode:   http.StatusBadRequest,
	}
}

// Server Errors (5xx)
func NewInternalError() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyInternalError,
		Code:       CodeInternal,
		HTTPCode:   http.StatusInternalServerError,
	}
}

func NewServiceUnavailable() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyServiceUnavailable,
		Code:       CodeServiceUnavailable,
		HTTPCode:   http.StatusServiceUnavailable,
	}
}

// Collaborator failures

// NewStoreReadFailed uses the collaborator's status when the cause carries one, 500 otherwise.
func NewStoreReadFailed(cause error) *I18nError {
	status := http.StatusInternalServerError
	if code, ok := CollaboratorStatus(cause); ok {
		status = code
	}
	return &I18nError{
		cause:      cause,
		MessageKey: i18nx.KeyStoreReadFailed,
		Code:       CodeStoreReadFailed,
		HTTPCode:   status,
	}
}

func NewTooManyRequests() *I18nError {
	return &I18nError{
		MessageKey: i18nx.KeyTooManyRequests,
		Code:       CodeTooManyRequests,
		HTTPCode:   http.StatusTooManyRequests,
	}
}

// NewStoreWriteFailed uses the collaborator's status when the cause carries one, 501 otherwise.
func NewStoreWriteFailed(cause error) *I18nError {
	status := http.StatusNotImplemented
	if code, ok := CollaboratorStatus(cause); ok {
		status = code
	}
	return &I18nError{
		cause:      cause,
		MessageKey: i18nx.KeyStoreWriteFailed,
		Code:       CodeStoreWriteFailed,
		HTTPCode:   status,
	}
}

func NewNotifyFailed(cause error) *I18nError {
	return &I18nError{
		cause:      cause,
		MessageKey: i18nx.KeyNotifyFailed,
		Code:       CodeNotifyFailed,
		HTTPCode:   http.StatusBadGateway,
	}
}
