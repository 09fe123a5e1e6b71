package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/ARUMANDESU/validation"
	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	acmeauth "gitlab.com/acme/acme-auth"
	"gitlab.com/acme/acme-auth/pkg/errorx"
	"gitlab.com/acme/acme-auth/pkg/i18nx"
	"gitlab.com/acme/acme-auth/pkg/otelx"
)

var logger = otelslog.NewLogger("acme/pkg/httpx")

var localeFiles = []string{
	"locales/en.toml",
	"locales/validation.en.toml",
}

// ErrorHandler turns errors into localized JSON responses and localizes
// flash messages for the server-rendered pages.
type ErrorHandler struct {
	bundle *i18n.Bundle
	logger *slog.Logger
}

func NewErrorHandler() *ErrorHandler {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range localeFiles {
		if _, err := bundle.LoadMessageFileFS(acmeauth.Locales, file); err != nil {
			panic(fmt.Sprintf("failed to load locale file %s: %v", file, err))
		}
	}

	return &ErrorHandler{
		bundle: bundle,
		logger: logger,
	}
}

// Localizer picks a localizer from the request's Accept-Language header, falling back to English.
func (h *ErrorHandler) Localizer(r *http.Request) *i18n.Localizer {
	return i18n.NewLocalizer(h.bundle, r.Header.Get("Accept-Language"), language.English.String())
}

// Translate localizes a message key, returning the key itself when no translation exists.
func (h *ErrorHandler) Translate(r *http.Request, key string, args map[string]any) string {
	msg, err := h.Localizer(r).Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: args,
	})
	if err != nil {
		return key
	}
	return msg
}

// Message localizes err for humans. Unknown errors become the generic internal error message.
func (h *ErrorHandler) Message(r *http.Request, err error) string {
	_, msg, _, _ := h.describe(h.Localizer(r), err)
	return msg
}

func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, span trace.Span, err error, desc string) {
	otelx.RecordSpanError(span, err, desc)

	code, msg, status, fields := h.describe(h.Localizer(r), err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), desc, slog.Any("error", err), slog.Int("status", status))
	} else {
		h.logger.DebugContext(r.Context(), desc, slog.Any("error", err), slog.Int("status", status))
	}

	var retry *errorx.I18nError
	if errors.As(err, &retry) && retry.Code == errorx.CodeRateLimitExceeded {
		if after, ok := retry.MessageArgs[i18nx.ArgRetryAfter]; ok {
			w.Header().Set("Retry-After", fmt.Sprint(after))
		}
	}

	writeError(w, r, code, msg, status, fields)
}

func (h *ErrorHandler) describe(localizer *i18n.Localizer, err error) (errorx.Code, string, int, map[string]string) {
	var valErrs validation.Errors
	if errors.As(err, &valErrs) {
		fields := make(map[string]string, len(valErrs))
		keys := make([]string, 0, len(valErrs))
		for field, fieldErr := range valErrs {
			fields[field] = localizeValidation(localizer, fieldErr)
			keys = append(keys, field)
		}
		sort.Strings(keys)

		var msg strings.Builder
		for i, field := range keys {
			if i > 0 {
				msg.WriteString("; ")
			}
			msg.WriteString(field + ": " + fields[field])
		}
		return errorx.CodeValidationFailed, msg.String(), http.StatusBadRequest, fields
	}

	var valErr validation.Error
	if errors.As(err, &valErr) {
		return errorx.CodeValidationFailed, localizeValidation(localizer, valErr), http.StatusBadRequest, nil
	}

	var appErr *errorx.I18nError
	if errors.As(err, &appErr) {
		return appErr.Code, appErr.Localize(localizer), appErr.HTTPStatusCode(), nil
	}

	internalErr := errorx.NewInternalError().WithCause(err)
	return internalErr.Code, internalErr.Localize(localizer), internalErr.HTTPStatusCode(), nil
}

func localizeValidation(localizer *i18n.Localizer, err error) string {
	var valErr validation.Error
	if !errors.As(err, &valErr) {
		return err.Error()
	}

	msg, lerr := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    valErr.Code(),
		TemplateData: valErr.Params(),
	})
	if lerr != nil {
		return valErr.Error()
	}
	return msg
}

func writeError(w http.ResponseWriter, r *http.Request,
	code errorx.Code,
	message string,
	status int,
	fields map[string]string,
) {
	response := Envelope{
		"code":    code,
		"message": message,
		"success": false,
	}
	if len(fields) > 0 {
		response["fields"] = fields
	}

	err := WriteJSON(w, status, response, nil)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
