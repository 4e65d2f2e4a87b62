package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/commercekit/order-intake/internal/order/application"
	"github.com/commercekit/order-intake/internal/order/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listAllOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}", h.updateOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
	r.Get("/users/{userID}/orders", h.listUserOrders)

	return r
}

type lineItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderReq struct {
	UserID          string         `json:"user"`
	Items           []lineItemReq  `json:"items"`
	SelectedAddress domain.Address `json:"selected_address"`
}

type orderResp struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user"`
	Items           []lineItemResp `json:"items"`
	SelectedAddress domain.Address `json:"selected_address"`
	TotalCents      int64          `json:"total_cents"`
	Status          string         `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type lineItemResp struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

func toResp(o domain.Order) orderResp {
	items := make([]lineItemResp, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, lineItemResp{ProductID: it.ProductID, Quantity: it.Quantity, PriceCents: it.PriceCents})
	}
	return orderResp{
		ID:              o.ID,
		UserID:          o.UserID,
		Items:           items,
		SelectedAddress: o.SelectedAddress,
		TotalCents:      o.TotalCents,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	in := application.PlaceOrderInput{
		UserID:          req.UserID,
		SelectedAddress: req.SelectedAddress,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, application.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	o, err := h.service.PlaceOrder(ctx, in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResp(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(o))
}

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.OrdersByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRespList(orders))
}

// listAllOrders is the admin listing: _sort/_order select the ordering,
// _page/_limit paginate, and X-Total-Count carries the unpaginated total.
func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	q := application.ListQuery{
		Sort:  r.URL.Query().Get("_sort"),
		Order: r.URL.Query().Get("_order"),
	}
	if v := r.URL.Query().Get("_page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "invalid _page")
			return
		}
		q.Page = page
	}
	if v := r.URL.Query().Get("_limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid _limit")
			return
		}
		q.Limit = limit
	}

	orders, total, err := h.service.AllOrders(r.Context(), q)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, toRespList(orders))
}

type updateOrderReq struct {
	Status          *string         `json:"status"`
	SelectedAddress *domain.Address `json:"selected_address"`
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	var upd application.OrderUpdate
	if req.Status != nil {
		status := domain.OrderStatus(*req.Status)
		switch status {
		case domain.StatusPending, domain.StatusDispatched, domain.StatusDelivered, domain.StatusCancelled:
		default:
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		upd.Status = &status
	}
	upd.Address = req.SelectedAddress

	o, err := h.service.UpdateOrder(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(o))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.DeleteOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(o))
}

func toRespList(orders []domain.Order) []orderResp {
	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, toResp(o))
	}
	return out
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var (
		verr *domain.ValidationError
		nerr *domain.NotFoundError
		perr *domain.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Reason)
	case errors.As(err, &nerr):
		writeError(w, http.StatusNotFound, nerr.Error())
	case errors.As(err, &perr):
		h.log.Error("store failure", "op", perr.Op, "err", perr.Err)
		writeError(w, http.StatusBadRequest, "failed to process order")
	default:
		h.log.Error("unexpected error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
