package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quiquecx/backoffice/internal/materials"
)

type MaterialsHandler struct {
	Repo *materials.Repo
}

func (h *MaterialsHandler) Register(r chi.Router) {
	r.Post("/materials", h.create)
	r.Get("/materials", h.list)
	r.Get("/materials/{id}", h.get)
	r.Put("/materials/{id}", h.update)
	r.Delete("/materials/{id}", h.remove)
	r.Post("/materials/{id}/receive", h.receive)
}

type lotReq struct {
	MaterialName      string    `json:"material_name"`
	LotNumber         string    `json:"lot_number"`
	ReceivedAt        time.Time `json:"received_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	QuantityReceived  int       `json:"quantity_received"`
	QuantityAvailable int       `json:"quantity_available"`
}

func (h *MaterialsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req lotReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.MaterialName == "" || req.LotNumber == "" {
		writeError(w, http.StatusBadRequest, "material_name and lot_number are required")
		return
	}
	if req.QuantityReceived < 0 || req.QuantityAvailable < 0 {
		writeError(w, http.StatusBadRequest, "quantities must not be negative")
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	l := &materials.Lot{
		MaterialName:      req.MaterialName,
		LotNumber:         req.LotNumber,
		ReceivedAt:        req.ReceivedAt,
		ExpiresAt:         req.ExpiresAt,
		QuantityReceived:  req.QuantityReceived,
		QuantityAvailable: req.QuantityAvailable,
	}
	if err := h.Repo.Create(ctx, l); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (h *MaterialsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	out, err := h.Repo.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MaterialsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	l, err := h.Repo.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, materials.ErrNotFound) {
			writeError(w, http.StatusNotFound, "material lot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *MaterialsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req lotReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	l := &materials.Lot{
		ID:           chi.URLParam(r, "id"),
		MaterialName: req.MaterialName,
		LotNumber:    req.LotNumber,
		ExpiresAt:    req.ExpiresAt,
	}
	if err := h.Repo.Update(ctx, l); err != nil {
		if errors.Is(err, materials.ErrNotFound) {
			writeError(w, http.StatusNotFound, "material lot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out, err := h.Repo.Get(ctx, l.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MaterialsHandler) remove(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	if err := h.Repo.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, materials.ErrNotFound) {
			writeError(w, http.StatusNotFound, "material lot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type receiveReq struct {
	Quantity int `json:"quantity"`
}

func (h *MaterialsHandler) receive(w http.ResponseWriter, r *http.Request) {
	var req receiveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	l, err := h.Repo.ReceiveShipment(ctx, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, materials.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, materials.ErrNotFound):
			writeError(w, http.StatusNotFound, "material lot not found")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, l)
}
