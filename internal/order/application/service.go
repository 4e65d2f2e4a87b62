package application

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/commercekit/order-intake/internal/order/domain"
)

type Service struct {
	log      *slog.Logger
	orders   OrderRepository
	products ProductStore
	users    UserStore
	notifier Notifier
}

func NewService(log *slog.Logger, orders OrderRepository, products ProductStore, users UserStore, notifier Notifier) *Service {
	return &Service{
		log:      log,
		orders:   orders,
		products: products,
		users:    users,
		notifier: notifier,
	}
}

type PlaceOrderInput struct {
	UserID          string
	Items           []ItemInput
	SelectedAddress domain.Address
}

type ItemInput struct {
	ProductID string
	Quantity  int
}

// PlaceOrder runs the order intake workflow: structural validation, per-item
// stock reservation, order persistence, then best-effort confirmation email.
//
// Each product write is committed independently; a failure partway through
// the item loop, or on the order insert itself, leaves earlier decrements in
// place. Duplicate product ids across lines are checked and decremented per
// line, in payload order.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (domain.Order, error) {
	if len(in.Items) == 0 || in.UserID == "" || in.SelectedAddress.IsZero() {
		return domain.Order{}, &domain.ValidationError{Reason: "missing required order information"}
	}

	items := make([]domain.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		if item.ProductID == "" {
			return domain.Order{}, &domain.ValidationError{Reason: "invalid product information"}
		}
		if item.Quantity <= 0 {
			return domain.Order{}, &domain.ValidationError{Reason: "quantity must be positive"}
		}

		p, ok, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return domain.Order{}, &domain.PersistenceError{Op: "product lookup", Err: err}
		}
		if !ok {
			return domain.Order{}, &domain.NotFoundError{Entity: "product", ID: item.ProductID}
		}
		if p.Stock < item.Quantity {
			return domain.Order{}, &domain.ValidationError{Reason: "insufficient stock"}
		}

		p.Stock -= item.Quantity
		if err := s.products.Save(ctx, p); err != nil {
			return domain.Order{}, &domain.PersistenceError{Op: "product save", Err: err}
		}

		items = append(items, domain.LineItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			PriceCents: p.PriceCents,
		})
	}

	o := domain.NewOrder(uuid.NewString(), in.UserID, items, in.SelectedAddress)

	payload, err := json.Marshal(domain.OrderCreated{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalCents: o.TotalCents,
		Items:      o.Items,
	})
	if err != nil {
		return domain.Order{}, err
	}

	saved, err := s.orders.SaveWithOutbox(ctx, o, domain.EventOrderCreated, payload)
	if err != nil {
		// Stock already decremented for processed items stays decremented.
		return domain.Order{}, &domain.PersistenceError{Op: "order insert", Err: err}
	}

	// The order is committed; everything below is best-effort.
	u, ok, err := s.users.FindByID(ctx, saved.UserID)
	if err != nil || !ok {
		s.log.Warn("confirmation skipped, user lookup failed",
			"order_id", saved.ID, "user_id", saved.UserID, "err", err)
		return saved, nil
	}

	if err := s.notifier.OrderReceived(ctx, u, saved); err != nil {
		s.log.Warn("confirmation email failed",
			"order_id", saved.ID, "to", u.Email, "err", &domain.NotificationError{Err: err})
	}

	return saved, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	o, ok, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "order lookup", Err: err}
	}
	if !ok {
		return domain.Order{}, &domain.NotFoundError{Entity: "order", ID: id}
	}
	return o, nil
}

func (s *Service) OrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "order list", Err: err}
	}
	return orders, nil
}

func (s *Service) AllOrders(ctx context.Context, q ListQuery) ([]domain.Order, int, error) {
	orders, total, err := s.orders.ListAll(ctx, q)
	if err != nil {
		return nil, 0, &domain.PersistenceError{Op: "order list", Err: err}
	}
	return orders, total, nil
}

func (s *Service) UpdateOrder(ctx context.Context, id string, upd OrderUpdate) (domain.Order, error) {
	o, ok, err := s.orders.Update(ctx, id, upd)
	if err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "order update", Err: err}
	}
	if !ok {
		return domain.Order{}, &domain.NotFoundError{Entity: "order", ID: id}
	}
	return o, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id string) (domain.Order, error) {
	o, ok, err := s.orders.Delete(ctx, id)
	if err != nil {
		return domain.Order{}, &domain.PersistenceError{Op: "order delete", Err: err}
	}
	if !ok {
		return domain.Order{}, &domain.NotFoundError{Entity: "order", ID: id}
	}
	return o, nil
}
