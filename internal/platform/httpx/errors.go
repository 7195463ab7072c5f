package httpx

import (
	"errors"
	"net/http"

	"github.com/stockflow-io/stockflow/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validationErr  *shared.ValidationError
		notFoundErr    *shared.NotFoundError
		transitionErr  *shared.InvalidTransitionError
		stockErr       *shared.InsufficientStockError
		paymentErr     *shared.ExceedsPaymentError
		concurrencyErr *shared.ConcurrencyConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &notFoundErr):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &transitionErr):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Transition", err.Error())
	case errors.As(err, &stockErr):
		Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.As(err, &paymentErr):
		Problem(w, http.StatusUnprocessableEntity, "Payment Exceeds Total", err.Error())
	case errors.As(err, &concurrencyErr):
		Problem(w, http.StatusConflict, "Concurrent Modification", err.Error())
	case errors.Is(err, shared.ErrNoActor):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
