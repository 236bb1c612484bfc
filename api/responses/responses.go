package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	pkgerrors "github.com/angelmondragon/socshift-backend/pkg/errors"
	"github.com/angelmondragon/socshift-backend/pkg/logger"
)

// requestIDHeader is set by the RequestID middleware before any handler runs.
const requestIDHeader = "X-Request-Id"

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	render(w, status, SuccessEnvelope{Data: data})
}

// WriteError renders err as the error envelope. Errors without a code are
// reported as INTERNAL_ERROR and their text never reaches the client.
// Server-side codes log request.error; the rest log request.rejected at warn.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	if logg != nil {
		logFailure(ctx, logg, err, typed)
	}
	render(w, pkgerrors.MetadataFor(typed.Code()).HTTPStatus, ErrorEnvelope{
		Error: publicError(typed, w.Header().Get(requestIDHeader)),
	})
}

func publicError(typed *pkgerrors.Error, requestID string) APIError {
	meta := pkgerrors.MetadataFor(typed.Code())
	out := APIError{
		Code:      string(typed.Code()),
		Message:   meta.PublicMessage,
		RequestID: requestID,
	}
	if meta.ExposeMessage && typed.Message() != "" {
		out.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		out.Details = typed.Details()
	}
	return out
}

func logFailure(ctx context.Context, logg *logger.Logger, err error, typed *pkgerrors.Error) {
	// Untyped errors are logged through their INTERNAL_ERROR wrapper so the
	// line still carries a code.
	logged := err
	if pkgerrors.As(err) == nil {
		logged = typed
	}
	fields := pkgerrors.TraceOf(logged).Fields()
	if details, ok := typed.Details().(map[string]any); ok && details["dependency"] != nil {
		fields["dependency"] = details["dependency"]
	}

	if !pkgerrors.ServerSide(typed.Code()) {
		fields["error"] = err.Error()
		fields["error_code"] = typed.Code()
		logg.Warn(logg.WithFields(ctx, fields), "request.rejected")
		return
	}
	logg.Error(logg.WithFields(ctx, fields), "request.error", logged)
}

// render writes the envelope. Once the status line is out nothing can be
// reported to the client, so encode failures only reach the process log.
func render(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Int("status", status).Msg("response.encode_failed")
	}
}
