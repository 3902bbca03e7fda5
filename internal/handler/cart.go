package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"

	"github.com/truong-nd12/canteen-backend/internal/cart"
)

type CartHandler struct {
	svc cart.Service
}

func NewCartHandler(svc cart.Service) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/carts/{userID}", h.GetCart)
	r.Post("/carts/{userID}/lines", h.AddLine)
	r.Patch("/carts/{userID}/lines/{lineID}", h.UpdateLine)
	r.Delete("/carts/{userID}/lines/{lineID}", h.RemoveLine)
}

type addLineRequest struct {
	ProductID  string           `json:"product_id" validate:"required,uuid4"`
	Quantity   int              `json:"quantity"`
	Size       *cart.Size       `json:"size,omitempty"`
	SugarLevel *cart.SugarLevel `json:"sugar_level,omitempty"`
	IceLevel   *cart.IceLevel   `json:"ice_level,omitempty"`
	AddOns     []cart.AddOn     `json:"add_ons,omitempty"`
}

type updateLineRequest struct {
	Quantity   *int             `json:"quantity,omitempty"`
	Size       *cart.Size       `json:"size,omitempty"`
	SugarLevel *cart.SugarLevel `json:"sugar_level,omitempty"`
	IceLevel   *cart.IceLevel   `json:"ice_level,omitempty"`
	AddOns     *[]cart.AddOn    `json:"add_ons,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}

	c, err := h.svc.GetCart(r.Context(), userID)
	if err != nil {
		respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}

	var req addLineRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	productID, err := uuid.FromString(req.ProductID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	c, err := h.svc.AddLine(r.Context(), userID, cart.LineInput{
		ProductID:  productID,
		Quantity:   req.Quantity,
		Size:       req.Size,
		SugarLevel: req.SugarLevel,
		IceLevel:   req.IceLevel,
		AddOns:     req.AddOns,
	})
	if err != nil {
		respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, c)
}

func (h *CartHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}
	lineID, ok := parseUUIDParam(w, r, "lineID")
	if !ok {
		return
	}

	var req updateLineRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	c, err := h.svc.UpdateLine(r.Context(), userID, lineID, cart.LinePatch{
		Quantity:   req.Quantity,
		Size:       req.Size,
		SugarLevel: req.SugarLevel,
		IceLevel:   req.IceLevel,
		AddOns:     req.AddOns,
	})
	if err != nil {
		respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}
	lineID, ok := parseUUIDParam(w, r, "lineID")
	if !ok {
		return
	}

	c, err := h.svc.RemoveLine(r.Context(), userID, lineID)
	if err != nil {
		respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.FromString(chi.URLParam(r, name))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
