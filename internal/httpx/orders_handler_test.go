package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiquecx/backoffice/internal/orders"
	"github.com/quiquecx/backoffice/internal/workflow"
)

type stubPlacer struct {
	got   workflow.PlaceOrderRequest
	calls int
	out   *orders.Order
	err   error
}

func (s *stubPlacer) PlaceOrder(_ context.Context, req workflow.PlaceOrderRequest) (*orders.Order, error) {
	s.got = req
	s.calls++
	return s.out, s.err
}

type stubStore struct {
	order    *orders.Order
	getErr   error
	amendErr error
	delErr   error

	amendedStatus  *orders.Status
	amendedAddress *string
	deletedID      string
}

func (s *stubStore) Get(_ context.Context, id string) (*orders.Order, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.order, nil
}

func (s *stubStore) List(_ context.Context) ([]orders.Order, error) {
	if s.order == nil {
		return nil, nil
	}
	return []orders.Order{*s.order}, nil
}

func (s *stubStore) Amend(_ context.Context, id string, status *orders.Status, address *string) (*orders.Order, error) {
	if s.amendErr != nil {
		return nil, s.amendErr
	}
	s.amendedStatus, s.amendedAddress = status, address
	return s.order, nil
}

func (s *stubStore) Delete(_ context.Context, id string) error {
	s.deletedID = id
	return s.delErr
}

type stubPublisher struct {
	key, value []byte
	headers    []kafkago.Header
	calls      int
}

func (p *stubPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.key, p.value, p.headers = key, value, headers
	p.calls++
}

func sampleOrder() *orders.Order {
	now := time.Now().UTC()
	return &orders.Order{
		ID:            "o-1",
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		Status:        orders.StatusPlaced,
		TotalCents:    1500,
		Lines:         []orders.Line{{ProductID: "P", Quantity: 3, PriceCents: 500}},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func newOrdersRouter(h *OrdersHandler) *chi.Mux {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPlaceOrderEndpointCreatesAndPublishes(t *testing.T) {
	placer := &stubPlacer{out: sampleOrder()}
	pub := &stubPublisher{}
	h := &OrdersHandler{Engine: placer, Store: &stubStore{}, Producer: pub, Service: "test-api"}
	r := newOrdersRouter(h)

	estado := 0
	w := doJSON(t, r, http.MethodPost, "/orders", map[string]any{
		"cliente":   "Ada",
		"email":     "ada@example.com",
		"estado":    estado,
		"direccion": "1 Crunch St",
		"total":     99999, // ignored by the engine
		"productos": []map[string]any{{"productId": "P", "cantidad": 3}},
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var resp orders.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "o-1", resp.ID)
	assert.Equal(t, 1500, resp.TotalCents)

	// request mapped onto the workflow input
	assert.Equal(t, "Ada", placer.got.CustomerName)
	assert.Equal(t, "1 Crunch St", placer.got.ShippingAddress)
	require.Len(t, placer.got.Lines, 1)
	assert.Equal(t, orders.LineQty{ProductID: "P", Quantity: 3}, placer.got.Lines[0])

	// one event, keyed by order id
	require.Equal(t, 1, pub.calls)
	assert.Equal(t, []byte("o-1"), pub.key)
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(pub.value, &env))
	assert.Equal(t, orders.EventOrderPlaced, env.EventType)
	assert.Equal(t, "o-1", env.CorrelationID)
}

func TestPlaceOrderEndpointValidatesBody(t *testing.T) {
	placer := &stubPlacer{out: sampleOrder()}
	h := &OrdersHandler{Engine: placer, Store: &stubStore{}}
	r := newOrdersRouter(h)

	w := doJSON(t, r, http.MethodPost, "/orders", map[string]any{
		"email":     "ada@example.com",
		"productos": []map[string]any{{"productId": "P", "cantidad": 3}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, placer.calls)
}

func TestPlaceOrderEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantKey  string
		wantID   string
	}{
		{"insufficient stock", &workflow.InsufficientStockError{ProductID: "P", Requested: 3, Available: 1}, http.StatusBadRequest, "product_id", "P"},
		{"insufficient material", &workflow.InsufficientMaterialError{MaterialID: "M1", Required: 4, Available: 2}, http.StatusBadRequest, "material_id", "M1"},
		{"product missing", &workflow.ProductNotFoundError{ProductID: "ghost"}, http.StatusNotFound, "product_id", "ghost"},
		{"material missing", &workflow.MaterialNotFoundError{MaterialID: "gone"}, http.StatusNotFound, "material_id", "gone"},
		{"empty order", workflow.ErrEmptyOrder, http.StatusBadRequest, "", ""},
		{"storage fault", &workflow.PersistenceError{Op: "commit", Err: assert.AnError}, http.StatusInternalServerError, "", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pub := &stubPublisher{}
			h := &OrdersHandler{Engine: &stubPlacer{err: c.err}, Store: &stubStore{}, Producer: pub}
			r := newOrdersRouter(h)

			w := doJSON(t, r, http.MethodPost, "/orders", map[string]any{
				"cliente":   "Ada",
				"email":     "ada@example.com",
				"productos": []map[string]any{{"productId": "P", "cantidad": 3}},
			})
			assert.Equal(t, c.wantCode, w.Code)
			assert.Zero(t, pub.calls, "no event on failure")

			if c.wantKey != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, c.wantID, body[c.wantKey])
			}
		})
	}
}

func TestGetOrderEndpoint(t *testing.T) {
	h := &OrdersHandler{Engine: &stubPlacer{}, Store: &stubStore{order: sampleOrder()}}
	r := newOrdersRouter(h)

	w := doJSON(t, r, http.MethodGet, "/orders/o-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp orders.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "o-1", resp.ID)

	h.Store = &stubStore{getErr: orders.ErrNotFound}
	w = doJSON(t, r, http.MethodGet, "/orders/o-2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAmendOrderEndpoint(t *testing.T) {
	st := &stubStore{order: sampleOrder()}
	h := &OrdersHandler{Engine: &stubPlacer{}, Store: st}
	r := newOrdersRouter(h)

	w := doJSON(t, r, http.MethodPut, "/orders/o-1", map[string]any{"status": 1})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, st.amendedStatus)
	assert.Equal(t, orders.StatusPaid, *st.amendedStatus)
	assert.Nil(t, st.amendedAddress)

	// unknown code rejected before the store sees it
	st2 := &stubStore{order: sampleOrder()}
	h.Store = st2
	w = doJSON(t, r, http.MethodPut, "/orders/o-1", map[string]any{"status": 42})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, st2.amendedStatus)

	h.Store = &stubStore{amendErr: orders.ErrBadTransition}
	w = doJSON(t, r, http.MethodPut, "/orders/o-1", map[string]any{"status": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	h.Store = &stubStore{order: sampleOrder()}
	w = doJSON(t, r, http.MethodPut, "/orders/o-1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteOrderEndpoint(t *testing.T) {
	st := &stubStore{}
	h := &OrdersHandler{Engine: &stubPlacer{}, Store: st}
	r := newOrdersRouter(h)

	w := doJSON(t, r, http.MethodDelete, "/orders/o-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "o-1", st.deletedID)

	h.Store = &stubStore{delErr: orders.ErrNotFound}
	w = doJSON(t, r, http.MethodDelete, "/orders/o-9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
