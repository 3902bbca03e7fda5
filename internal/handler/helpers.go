package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/truong-nd12/canteen-backend/internal/cart"
	"github.com/truong-nd12/canteen-backend/internal/catalog"
	"github.com/truong-nd12/canteen-backend/internal/order"
	"github.com/truong-nd12/canteen-backend/internal/promotion"
	"github.com/truong-nd12/canteen-backend/internal/tracking"
)

var validate = validator.New()

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("handler: failed to write JSON response")
	}
}

// decodeAndValidate decodes the request body into dst and runs struct
// validation. It writes the error response itself and reports whether the
// handler should continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, promotion.ErrPromotionNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, tracking.ErrTrackingNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidConfig),
		errors.Is(err, promotion.ErrInvalidPromotion),
		errors.Is(err, order.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, promotion.ErrNotApplicable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, promotion.ErrDuplicateCode),
		errors.Is(err, tracking.ErrInvalidTransition),
		errors.Is(err, tracking.ErrConcurrentModification):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondWithMappedError hides internals for unexpected errors but keeps the
// specific message for domain rejections the user can act on.
func respondWithMappedError(w http.ResponseWriter, err error) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg("handler: request failed")
		respondWithError(w, code, "internal server error")
		return
	}
	respondWithError(w, code, err.Error())
}
