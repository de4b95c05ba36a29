package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/voyas/api/internal/message"
	"github.com/voyas/api/internal/metrics"
	"github.com/voyas/api/internal/model"
)

// MessageService is the part of message.Service the handlers use.
type MessageService interface {
	Create(ctx context.Context, in message.CreateInput) (model.Message, error)
	FindAll(ctx context.Context) ([]model.Message, error)
}

// CreateMessage handles POST /messages. The body must be exactly
// {"text": string}; any other field rejects the request.
func CreateMessage(svc MessageService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := decodeCreateInput(r.Body)
		if err != nil {
			var verr *message.ValidationError
			var maxErr *http.MaxBytesError
			switch {
			case errors.As(err, &verr):
				rejectInvalid(w, verr)
			case errors.As(err, &maxErr):
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			default:
				writeError(w, http.StatusBadRequest, "invalid JSON body")
			}
			return
		}

		msg, err := svc.Create(r.Context(), in)
		if err != nil {
			var verr *message.ValidationError
			if errors.As(err, &verr) {
				rejectInvalid(w, verr)
				return
			}

			logger.Error().Err(err).Msg("failed to create message")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		metrics.MessagesCreated.Inc()
		writeJSON(w, http.StatusCreated, msg)
	}
}

// ListMessages handles GET /messages.
func ListMessages(svc MessageService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := svc.FindAll(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("failed to load messages")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(w, http.StatusOK, msgs)
	}
}

func rejectInvalid(w http.ResponseWriter, verr *message.ValidationError) {
	metrics.ValidationFailures.Inc()
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:      message.ErrValidation.Error(),
		Violations: verr.Violations,
	})
}

// decodeCreateInput reads a strict create body. An empty body decodes to the
// zero input so that the validator reports the missing field.
func decodeCreateInput(body io.Reader) (message.CreateInput, error) {
	var in message.CreateInput

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return in, nil
		}

		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				return in, message.NewViolation("body", "isObject", "request body must be a JSON object")
			}
			return in, message.NewViolation(field, "isString", field+" must be a string")
		}

		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			field = strings.Trim(field, `"`)
			return in, message.NewViolation(field, "whitelist", "property "+field+" should not exist")
		}

		return in, err
	}

	// Only whitespace may follow the object.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return in, err
		}
		return in, errors.New("unexpected data after JSON body")
	}

	return in, nil
}
