package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/quiquecx/backoffice/internal/kafka"
	"github.com/quiquecx/backoffice/internal/orders"
	"github.com/quiquecx/backoffice/internal/redisx"
	"github.com/quiquecx/backoffice/internal/workflow"
)

// OrderPlacer is the workflow engine surface the handler depends on.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req workflow.PlaceOrderRequest) (*orders.Order, error)
}

// OrderStore is the read/amend side of order persistence.
type OrderStore interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
	List(ctx context.Context) ([]orders.Order, error)
	Amend(ctx context.Context, id string, status *orders.Status, address *string) (*orders.Order, error)
	Delete(ctx context.Context, id string) error
}

// Publisher is the async event sink for placed orders.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Engine   OrderPlacer
	Store    OrderStore
	Producer Publisher
	Redis    *redis.Client // optional; nil disables the detail cache
	Service  string
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}", h.amendOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
}

// The placement body keeps the wire fields the back office has always used.
type placeOrderReq struct {
	Cliente   string          `json:"cliente"`
	Email     string          `json:"email"`
	Estado    *int            `json:"estado"`
	Direccion string          `json:"direccion"`
	Total     int             `json:"total"` // accepted, ignored; totals come from the catalog
	Productos []placeOrderLin `json:"productos"`
}

type placeOrderLin struct {
	ProductID string `json:"productId"`
	Cantidad  int    `json:"cantidad"`
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Cliente == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "cliente and email are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	lines := make([]orders.LineQty, 0, len(req.Productos))
	for _, p := range req.Productos {
		lines = append(lines, orders.LineQty{ProductID: p.ProductID, Quantity: p.Cantidad})
	}
	preq := workflow.PlaceOrderRequest{
		CustomerName:    req.Cliente,
		CustomerEmail:   req.Email,
		ShippingAddress: req.Direccion,
		Lines:           lines,
	}
	if req.Estado != nil {
		preq.Status = orders.Status(*req.Estado)
	}

	o, err := h.Engine.PlaceOrder(ctx, preq)
	if err != nil {
		writePlacementError(w, err)
		return
	}

	h.publishPlaced(o, r.Header.Get("X-Request-Id"))
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) publishPlaced(o *orders.Order, trace string) {
	if h.Producer == nil {
		return
	}
	lines := make([]orders.LineQty, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orders.LineQty{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderPlacedPayload{
			OrderID:       o.ID,
			CustomerEmail: o.CustomerEmail,
			Lines:         lines,
			TotalCents:    o.TotalCents,
		}),
	}
	h.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderCache, id)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	o, err := h.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.Redis != nil {
		b, _ := json.Marshal(o)
		_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrderCache, id), b, redisx.TTLOrderCache).Err()
	}
	writeJSON(w, http.StatusOK, o)
}

type amendOrderReq struct {
	Status          *int    `json:"status"`
	ShippingAddress *string `json:"shipping_address"`
}

func (h *OrdersHandler) amendOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req amendOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Status == nil && req.ShippingAddress == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var status *orders.Status
	if req.Status != nil {
		s := orders.Status(*req.Status)
		if !s.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status code")
			return
		}
		status = &s
	}

	o, err := h.Store.Amend(ctx, id, status, req.ShippingAddress)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, orders.ErrBadTransition):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	h.invalidate(ctx, id)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.Delete(ctx, id); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.invalidate(ctx, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) invalidate(ctx context.Context, id string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderCache, id)).Err()
}
