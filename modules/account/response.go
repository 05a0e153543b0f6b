package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/securenest/authkit/pkg/auth"
	"github.com/securenest/authkit/pkg/challenge"
	"github.com/securenest/authkit/pkg/chatlock"
	"github.com/securenest/authkit/pkg/credentials"
	"github.com/securenest/authkit/pkg/logger"
	"github.com/securenest/authkit/pkg/validator"
)

var ErrAuthRequired = errors.New("account.module: auth service is required")

// envelope is the uniform response body. Exactly one of Data and Error is set.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code     string              `json:"code"`
	Message  string              `json:"message"`
	Cooldown int                 `json:"cooldown,omitempty"`
	Fields   map[string][]string `json:"fields,omitempty"`
}

func (m *Module) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// respondError translates domain errors into the caller-visible taxonomy.
// Unknown errors are logged and collapsed to a generic 500 so internals
// never leak.
func (m *Module) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		m.log.ErrorContext(r.Context(), "unhandled account error",
			logger.Error(err), logger.Component("account"))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &body})
}

func classify(err error) (int, errorBody) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string][]string, len(ve.Fields()))
		for _, f := range ve.Fields() {
			fields[f] = ve.Get(f)
		}
		return http.StatusBadRequest, errorBody{
			Code:    "invalid_format",
			Message: "validation failed",
			Fields:  fields,
		}
	}

	var rl *challenge.RateLimitedError
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests, errorBody{
			Code:     "rate_limited",
			Message:  "too many requests, retry later",
			Cooldown: rl.RetryAfterSeconds(),
		}
	}
	var cd *chatlock.CooldownError
	if errors.As(err, &cd) {
		return http.StatusTooManyRequests, errorBody{
			Code:     "rate_limited",
			Message:  "too many failed attempts, retry later",
			Cooldown: cd.RetryAfterSeconds(),
		}
	}

	switch {
	case errors.Is(err, credentials.ErrInvalidPinFormat),
		errors.Is(err, chatlock.ErrNotLocked),
		errors.Is(err, auth.ErrPinNotSet),
		errors.Is(err, chatlock.ErrPinNotSet):
		return http.StatusBadRequest, errorBody{Code: "invalid_format", Message: err.Error()}

	case errors.Is(err, auth.ErrInvalidOrExpiredCode):
		return http.StatusBadRequest, errorBody{Code: "not_found_or_expired", Message: err.Error()}

	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionInvalid),
		errors.Is(err, auth.ErrInvalidPin),
		errors.Is(err, chatlock.ErrInvalidPin),
		errors.Is(err, auth.ErrInvalidBackupCode):
		return http.StatusUnauthorized, errorBody{Code: "invalid_credential", Message: err.Error()}

	case errors.Is(err, auth.ErrEmailNotVerified),
		errors.Is(err, auth.ErrRecoveryNotVerified):
		return http.StatusForbidden, errorBody{Code: "forbidden", Message: err.Error()}

	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, errorBody{Code: "not_found", Message: err.Error()}

	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrUsernameTaken),
		errors.Is(err, auth.ErrPinAlreadySet),
		errors.Is(err, auth.ErrBackupCodesRemaining):
		return http.StatusConflict, errorBody{Code: "conflict", Message: err.Error()}

	case errors.Is(err, chatlock.ErrChatLocked):
		return http.StatusLocked, errorBody{Code: "chat_locked", Message: err.Error()}

	case errors.Is(err, auth.ErrEmailDelivery):
		return http.StatusBadGateway, errorBody{Code: "delivery_failure", Message: "failed to deliver email"}
	}

	return http.StatusInternalServerError, errorBody{Code: "internal", Message: "internal error"}
}

// decode parses a JSON request body into dst.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return validator.ValidationErrors{{Field: "body", Message: "malformed JSON body"}}
	}
	return nil
}
