// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finflow-ledger/internal/api/middleware"
	"finflow-ledger/internal/api/types"
	"finflow-ledger/internal/util"
)

// DefaultTimeout bounds how long a single request may run.
const DefaultTimeout = 30 * time.Second

const maxBodyBytes = 1 << 20

// newValidator returns a validator that understands decimal amounts, so `gt=0` works on them.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// responder carries the shared JSON plumbing every handler embeds.
type responder struct {
	logger   *zap.Logger
	validate *validator.Validate
}

func newResponder(logger *zap.Logger) responder {
	return responder{logger: logger, validate: newValidator()}
}

// respondWithJSON sends payload as a JSON response.
func (h responder) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to marshal JSON response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError maps service errors onto HTTP status codes. Unknown errors are logged and
// their message is hidden from the client.
func (h responder) respondWithError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput),
		util.IsError(err, util.ErrAmountBelowMinimum),
		util.IsError(err, util.ErrAmountOutOfRange),
		util.IsError(err, util.ErrInvalidDecision):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrNotFound), util.IsError(err, util.ErrWalletNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case util.IsError(err, util.ErrInsufficientFunds):
		statusCode = http.StatusPaymentRequired
		message = "Insufficient funds"
	case util.IsError(err, util.ErrRequestFinalized):
		statusCode = http.StatusConflict
		message = "Request has already been finalized"
	case util.IsError(err, util.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		message = "Authentication required"
	case util.IsError(err, util.ErrForbidden):
		statusCode = http.StatusForbidden
		message = "Insufficient permissions"
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
	}

	h.respondWithJSON(w, statusCode, types.ErrorResponse{Error: message})
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags. It writes the 400
// response itself and reports false on failure.
func (h responder) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "Malformed JSON body"})
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			h.respondWithError(w, err)
			return false
		}
		details := make([]types.FieldError, 0, len(validationErrors))
		for _, fe := range validationErrors {
			details = append(details, types.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
		}
		h.respondWithJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "Validation failed", Details: details})
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// currentUserID returns the authenticated caller. Routes are mounted behind Authenticate, so a
// missing identity is an internal wiring fault surfaced as 401.
func currentUserID(r *http.Request) (int64, error) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return 0, util.ErrUnauthorized
	}
	return userID, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer: %w", name, util.ErrInvalidInput)
	}
	return id, nil
}
