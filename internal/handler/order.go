package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"

	"github.com/truong-nd12/canteen-backend/internal/order"
	"github.com/truong-nd12/canteen-backend/internal/promotion"
)

type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.PlaceOrder)
	r.Get("/orders/{id}", h.GetOrderByID)
	r.Get("/orders/user/{userID}", h.GetOrdersByUserID)
}

type placeOrderRequest struct {
	UserID        string  `json:"user_id" validate:"required,uuid4"`
	PromotionCode *string `json:"promotion_code,omitempty"`
}

func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	userID, err := uuid.FromString(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	ord, err := h.svc.PlaceOrder(r.Context(), order.PlaceOrderInput{
		UserID:        userID,
		PromotionCode: req.PromotionCode,
	})
	if err != nil {
		// A rejected promotion carries the human-readable reason.
		var napErr *promotion.NotApplicableError
		if errors.As(err, &napErr) {
			respondWithJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":  napErr.Error(),
				"reason": string(napErr.Reason),
			})
			return
		}
		respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, ord)
}

func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	ord, err := h.svc.GetOrderByID(r.Context(), id)
	if err != nil {
		respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ord)
}

func (h *OrderHandler) GetOrdersByUserID(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}

	orders, err := h.svc.GetOrdersByUserID(r.Context(), userID)
	if err != nil {
		respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}
