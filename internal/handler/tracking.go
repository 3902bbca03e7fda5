package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"

	"github.com/truong-nd12/canteen-backend/internal/tracking"
)

type TrackingHandler struct {
	svc tracking.Service
}

func NewTrackingHandler(svc tracking.Service) *TrackingHandler {
	return &TrackingHandler{svc: svc}
}

func (h *TrackingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders/{id}/tracking", h.GetTracking)
	r.Post("/orders/{id}/tracking/status", h.TransitionStatus)
	r.Put("/orders/{id}/tracking/location", h.UpdateLocation)
}

type transitionRequest struct {
	Status  tracking.Status `json:"status" validate:"required"`
	ActorID *string         `json:"actor_id,omitempty"`
	Note    *string         `json:"note,omitempty"`
}

type locationRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

func (h *TrackingHandler) GetTracking(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	t, err := h.svc.GetByOrderID(r.Context(), orderID)
	if err != nil {
		respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}

func (h *TrackingHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req transitionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var actor *uuid.UUID
	if req.ActorID != nil {
		id, err := uuid.FromString(*req.ActorID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid actor id")
			return
		}
		actor = &id
	}

	t, err := h.svc.Transition(r.Context(), orderID, req.Status, actor, req.Note)
	if err != nil {
		respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}

func (h *TrackingHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req locationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	t, err := h.svc.UpdateLocation(r.Context(), orderID, req.Lat, req.Lng)
	if err != nil {
		respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}
