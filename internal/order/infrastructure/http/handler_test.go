package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogdom "github.com/commercekit/order-intake/internal/catalog/domain"
	"github.com/commercekit/order-intake/internal/order/application"
	"github.com/commercekit/order-intake/internal/order/domain"
	userdom "github.com/commercekit/order-intake/internal/user/domain"
)

type memOrders struct {
	orders []domain.Order
}

func (m *memOrders) SaveWithOutbox(_ context.Context, o domain.Order, _ string, _ []byte) (domain.Order, error) {
	m.orders = append(m.orders, o)
	return o, nil
}

func (m *memOrders) Get(_ context.Context, id string) (domain.Order, bool, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return o, true, nil
		}
	}
	return domain.Order{}, false, nil
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) ListAll(_ context.Context, q application.ListQuery) ([]domain.Order, int, error) {
	out := append([]domain.Order(nil), m.orders...)
	if q.Sort == "total_cents" {
		sort.Slice(out, func(i, j int) bool {
			if q.Order == "desc" {
				return out[i].TotalCents > out[j].TotalCents
			}
			return out[i].TotalCents < out[j].TotalCents
		})
	}
	total := len(out)
	if q.Page > 0 && q.Limit > 0 {
		start := (q.Page - 1) * q.Limit
		if start > len(out) {
			start = len(out)
		}
		end := start + q.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (m *memOrders) Update(_ context.Context, id string, upd application.OrderUpdate) (domain.Order, bool, error) {
	for i, o := range m.orders {
		if o.ID != id {
			continue
		}
		if upd.Status != nil {
			o.Status = *upd.Status
		}
		if upd.Address != nil {
			o.SelectedAddress = *upd.Address
		}
		m.orders[i] = o
		return o, true, nil
	}
	return domain.Order{}, false, nil
}

func (m *memOrders) Delete(_ context.Context, id string) (domain.Order, bool, error) {
	for i, o := range m.orders {
		if o.ID == id {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
			return o, true, nil
		}
	}
	return domain.Order{}, false, nil
}

type memProducts struct {
	byID map[string]catalogdom.Product
}

func (m *memProducts) FindByID(_ context.Context, id string) (catalogdom.Product, bool, error) {
	p, ok := m.byID[id]
	return p, ok, nil
}

func (m *memProducts) Save(_ context.Context, p catalogdom.Product) error {
	m.byID[p.ID] = p
	return nil
}

type memUsers map[string]userdom.User

func (m memUsers) FindByID(_ context.Context, id string) (userdom.User, bool, error) {
	u, ok := m[id]
	return u, ok, nil
}

type noopNotifier struct{}

func (noopNotifier) OrderReceived(context.Context, userdom.User, domain.Order) error { return nil }

func newServer(t *testing.T) (*httptest.Server, *memOrders, *memProducts) {
	t.Helper()
	orders := &memOrders{}
	products := &memProducts{byID: map[string]catalogdom.Product{
		"prod-a": {ID: "prod-a", Title: "Widget", PriceCents: 1500, Stock: 5},
		"prod-b": {ID: "prod-b", Title: "Gadget", PriceCents: 900, Stock: 3},
	}}
	users := memUsers{"user-1": {ID: "user-1", Email: "jo@example.com"}}
	log := slog.New(slog.DiscardHandler)
	svc := application.NewService(log, orders, products, users, noopNotifier{})
	srv := httptest.NewServer(NewHandler(log, svc).Routes())
	t.Cleanup(srv.Close)
	return srv, orders, products
}

func createBody() []byte {
	b, _ := json.Marshal(map[string]any{
		"user": "user-1",
		"items": []map[string]any{
			{"product_id": "prod-a", "quantity": 2},
			{"product_id": "prod-b", "quantity": 3},
		},
		"selected_address": map[string]string{
			"street": "1 Main St", "city": "Springfield", "country": "US",
		},
	})
	return b
}

func postOrder(t *testing.T, srv *httptest.Server, body []byte) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/orders", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateOrder_Created(t *testing.T) {
	srv, orders, products := newServer(t)

	resp := postOrder(t, srv, createBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	got := decode[orderResp](t, resp)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, int64(2*1500+3*900), got.TotalCents)
	require.Len(t, got.Items, 2)

	assert.Len(t, orders.orders, 1)
	assert.Equal(t, 3, products.byID["prod-a"].Stock)
	assert.Equal(t, 0, products.byID["prod-b"].Stock)
}

func TestCreateOrder_MissingFields(t *testing.T) {
	srv, orders, _ := newServer(t)

	resp := postOrder(t, srv, []byte(`{"items":[]}`))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	got := decode[map[string]string](t, resp)
	assert.Equal(t, "missing required order information", got["message"])
	assert.Empty(t, orders.orders)
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	srv, _, _ := newServer(t)

	b, _ := json.Marshal(map[string]any{
		"user":             "user-1",
		"items":            []map[string]any{{"product_id": "prod-x", "quantity": 1}},
		"selected_address": map[string]string{"street": "1 Main St", "city": "Springfield"},
	})
	resp := postOrder(t, srv, b)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	got := decode[map[string]string](t, resp)
	assert.Contains(t, got["message"], "prod-x")
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	srv, _, products := newServer(t)

	b, _ := json.Marshal(map[string]any{
		"user":             "user-1",
		"items":            []map[string]any{{"product_id": "prod-a", "quantity": 9}},
		"selected_address": map[string]string{"street": "1 Main St", "city": "Springfield"},
	})
	resp := postOrder(t, srv, b)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	got := decode[map[string]string](t, resp)
	assert.Equal(t, "insufficient stock", got["message"])
	assert.Equal(t, 5, products.byID["prod-a"].Stock)
}

func TestGetOrder(t *testing.T) {
	srv, _, _ := newServer(t)

	created := decode[orderResp](t, postOrder(t, srv, createBody()))

	resp, err := http.Get(srv.URL + "/orders/" + created.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decode[orderResp](t, resp).ID)

	resp, err = http.Get(srv.URL + "/orders/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListUserOrders(t *testing.T) {
	srv, _, products := newServer(t)
	products.byID["prod-a"] = catalogdom.Product{ID: "prod-a", PriceCents: 1500, Stock: 100}
	products.byID["prod-b"] = catalogdom.Product{ID: "prod-b", PriceCents: 900, Stock: 100}
	postOrder(t, srv, createBody())
	postOrder(t, srv, createBody())

	resp, err := http.Get(srv.URL + "/users/user-1/orders")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]orderResp](t, resp), 2)

	resp, err = http.Get(srv.URL + "/users/user-other/orders")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Len(t, decode[[]orderResp](t, resp), 0)
}

func TestListAllOrders_PaginationAndTotalCount(t *testing.T) {
	srv, _, products := newServer(t)
	products.byID["prod-a"] = catalogdom.Product{ID: "prod-a", PriceCents: 1500, Stock: 100}
	products.byID["prod-b"] = catalogdom.Product{ID: "prod-b", PriceCents: 900, Stock: 100}
	for range 5 {
		postOrder(t, srv, createBody())
	}

	resp, err := http.Get(srv.URL + "/orders?_page=2&_limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "5", resp.Header.Get("X-Total-Count"))
	assert.Len(t, decode[[]orderResp](t, resp), 2)
}

func TestListAllOrders_BadPagination(t *testing.T) {
	srv, _, _ := newServer(t)

	for _, q := range []string{"_page=zero&_limit=2", "_page=0&_limit=2", "_limit=-1"} {
		resp, err := http.Get(srv.URL + "/orders?" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestUpdateOrder(t *testing.T) {
	srv, _, _ := newServer(t)
	created := decode[orderResp](t, postOrder(t, srv, createBody()))

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/orders/"+created.ID,
		bytes.NewReader([]byte(`{"status":"dispatched"}`)))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dispatched", decode[orderResp](t, resp).Status)
}

func TestUpdateOrder_InvalidStatus(t *testing.T) {
	srv, _, _ := newServer(t)
	created := decode[orderResp](t, postOrder(t, srv, createBody()))

	req, _ := http.NewRequest(http.MethodPatch, srv.URL+"/orders/"+created.ID,
		bytes.NewReader([]byte(`{"status":"teleported"}`)))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteOrder(t *testing.T) {
	srv, orders, _ := newServer(t)
	created := decode[orderResp](t, postOrder(t, srv, createBody()))

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/orders/"+created.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decode[orderResp](t, resp).ID)
	assert.Empty(t, orders.orders)

	// Deleting again is a 404.
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/orders/"+created.ID, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
