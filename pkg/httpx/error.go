package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	authcodesvc "gitlab.com/ucmsv2/authcode-service"
	"gitlab.com/ucmsv2/authcode-service/pkg/errorx"
	"gitlab.com/ucmsv2/authcode-service/pkg/otelx"
)

var supportedLanguages = []language.Tag{language.English, language.Russian}

type ErrorHandler struct {
	bundle  *i18n.Bundle
	matcher language.Matcher
	logger  *slog.Logger
}

func NewErrorHandler(logger *slog.Logger) (*ErrorHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files := []string{
		"locales/en.toml",
		"locales/ru.toml",
		"locales/validation.en.toml",
		"locales/validation.ru.toml",
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(authcodesvc.Locales, f); err != nil {
			return nil, fmt.Errorf("failed to load locale file %s: %w", f, err)
		}
	}

	return &ErrorHandler{
		bundle:  bundle,
		matcher: language.NewMatcher(supportedLanguages),
		logger:  logger,
	}, nil
}

// Localizer picks the best supported language for an Accept-Language header value.
func (h *ErrorHandler) Localizer(acceptLanguage string) *i18n.Localizer {
	tags, _, _ := language.ParseAcceptLanguage(acceptLanguage)
	_, idx, conf := h.matcher.Match(tags...)
	if conf <= language.Low {
		idx = 0
	}
	return i18n.NewLocalizer(h.bundle, supportedLanguages[idx].String())
}

// Message localizes a message id for the request, falling back to the id itself.
func (h *ErrorHandler) Message(r *http.Request, messageID string) string {
	msg, err := h.Localizer(r.Header.Get("Accept-Language")).Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		return messageID
	}
	return msg
}

// HandleError records err on span and writes the JSON error envelope.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, span trace.Span, err error, desc string) {
	otelx.RecordSpanError(span, err, desc)

	localizer := h.Localizer(r.Header.Get("Accept-Language"))

	var valErrs validation.Errors
	if errors.As(err, &valErrs) {
		h.logger.WarnContext(r.Context(), desc, slog.String("error", err.Error()))
		writeError(w, r,
			errorx.CodeValidationFailed,
			localizeValidationErrors(localizer, valErrs),
			http.StatusBadRequest,
		)
		return
	}

	var appErr *errorx.I18nError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatusCode()
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), desc, slog.String("error", err.Error()))
		} else {
			h.logger.WarnContext(r.Context(), desc, slog.String("error", err.Error()))
		}
		writeError(w, r, appErr.Code, appErr.Localize(localizer), status)
		return
	}

	var valErr validation.Error
	if errors.As(err, &valErr) {
		h.logger.WarnContext(r.Context(), desc, slog.String("error", err.Error()))
		writeError(w, r,
			errorx.CodeValidationFailed,
			localizeValidationError(localizer, valErr),
			http.StatusBadRequest,
		)
		return
	}

	h.logger.ErrorContext(r.Context(), "unhandled error", slog.String("desc", desc), slog.String("error", err.Error()))
	internalErr := errorx.NewInternalError().WithCause(err)
	writeError(w, r,
		internalErr.Code,
		internalErr.Localize(localizer),
		internalErr.HTTPStatusCode(),
	)
}

// localizeValidationErrors renders field errors sorted by field name.
func localizeValidationErrors(localizer *i18n.Localizer, valErrs validation.Errors) string {
	fields := make([]string, 0, len(valErrs))
	for field := range valErrs {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		fieldErr := valErrs[field]
		if valErr, ok := fieldErr.(validation.Error); ok {
			parts = append(parts, fmt.Sprintf("%s: %s", field, localizeValidationError(localizer, valErr)))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", field, fieldErr.Error()))
		}
	}
	return strings.Join(parts, "; ")
}

func localizeValidationError(localizer *i18n.Localizer, valErr validation.Error) string {
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    valErr.Code(),
		TemplateData: valErr.Params(),
	})
	if err != nil {
		return valErr.Error()
	}
	return msg
}

func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, r,
		errorx.CodeInvalid,
		message,
		http.StatusBadRequest,
	)
}

func writeError(w http.ResponseWriter, r *http.Request,
	code errorx.Code,
	message string,
	status int,
) {
	response := Envelope{
		"code":    code,
		"message": message,
		"success": false,
	}

	err := WriteJSON(w, status, response, nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
