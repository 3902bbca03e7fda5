package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/truong-nd12/canteen-backend/internal/order"
	"github.com/truong-nd12/canteen-backend/internal/promotion"
)

type PromotionHandler struct {
	svc    promotion.Service
	orders order.Service
}

func NewPromotionHandler(svc promotion.Service, orders order.Service) *PromotionHandler {
	return &PromotionHandler{svc: svc, orders: orders}
}

func (h *PromotionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/promotions", h.Create)
	r.Get("/promotions/{code}", h.GetByCode)
	r.Post("/promotions/preview", h.Preview)
}

type createPromotionRequest struct {
	Code                 *string          `json:"code,omitempty"`
	Kind                 promotion.Kind   `json:"kind" validate:"required,oneof=percentage fixed"`
	DiscountValue        decimal.Decimal  `json:"discount_value"`
	MinOrderAmount       decimal.Decimal  `json:"min_order_amount"`
	MaxDiscount          *decimal.Decimal `json:"max_discount,omitempty"`
	Scope                promotion.Scope  `json:"scope,omitempty"`
	ApplicableProducts   []uuid.UUID      `json:"applicable_products,omitempty"`
	ApplicableCategories []uuid.UUID      `json:"applicable_categories,omitempty"`
	ApplicableUsers      []uuid.UUID      `json:"applicable_users,omitempty"`
	StartDate            time.Time        `json:"start_date" validate:"required"`
	EndDate              time.Time        `json:"end_date" validate:"required"`
	UsageLimit           *int             `json:"usage_limit,omitempty"`
	PerUserLimit         int              `json:"per_user_limit,omitempty"`
	IsActive             *bool            `json:"is_active,omitempty"`
}

type previewRequest struct {
	UserID string `json:"user_id" validate:"required,uuid4"`
	Code   string `json:"code" validate:"required"`
}

type previewResponse struct {
	Eligible bool            `json:"eligible"`
	Discount decimal.Decimal `json:"discount"`
	Reason   string          `json:"reason,omitempty"`
	Message  string          `json:"message,omitempty"`
}

func (h *PromotionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPromotionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	p := &promotion.Promotion{
		Code:                 req.Code,
		Kind:                 req.Kind,
		DiscountValue:        req.DiscountValue,
		MinOrderAmount:       req.MinOrderAmount,
		MaxDiscount:          req.MaxDiscount,
		Scope:                req.Scope,
		ApplicableProducts:   req.ApplicableProducts,
		ApplicableCategories: req.ApplicableCategories,
		ApplicableUsers:      req.ApplicableUsers,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		UsageLimit:           req.UsageLimit,
		PerUserLimit:         req.PerUserLimit,
		IsActive:             isActive,
	}

	created, err := h.svc.Create(r.Context(), p)
	if err != nil {
		respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *PromotionHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "code is required")
		return
	}

	p, err := h.svc.GetByCode(r.Context(), code)
	if err != nil {
		respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *PromotionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	userID, err := uuid.FromString(req.UserID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	result, err := h.orders.PreviewPromotion(r.Context(), userID, req.Code)
	if err != nil {
		respondWithMappedError(w, err)
		return
	}

	resp := previewResponse{
		Eligible: result.Eligible,
		Discount: result.Discount,
	}
	if !result.Eligible {
		resp.Reason = string(result.Reason)
		resp.Message = result.Reason.Message()
	}

	respondWithJSON(w, http.StatusOK, resp)
}
