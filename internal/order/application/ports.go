package application

import (
	"context"

	catalogdom "github.com/commercekit/order-intake/internal/catalog/domain"
	"github.com/commercekit/order-intake/internal/order/domain"
	userdom "github.com/commercekit/order-intake/internal/user/domain"
)

type OrderRepository interface {
	SaveWithOutbox(ctx context.Context, o domain.Order, eventType string, payload []byte) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, bool, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context, q ListQuery) ([]domain.Order, int, error)
	Update(ctx context.Context, id string, upd OrderUpdate) (domain.Order, bool, error)
	Delete(ctx context.Context, id string) (domain.Order, bool, error)
}

// ListQuery mirrors the admin listing parameters: sort column, direction,
// and 1-based pagination. Zero Page/Limit means no pagination.
type ListQuery struct {
	Sort  string
	Order string
	Page  int
	Limit int
}

type OrderUpdate struct {
	Status  *domain.OrderStatus
	Address *domain.Address
}

type ProductStore interface {
	FindByID(ctx context.Context, id string) (catalogdom.Product, bool, error)
	Save(ctx context.Context, p catalogdom.Product) error
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (userdom.User, bool, error)
}

// Notifier delivers the confirmation email. Failures are non-fatal to the
// intake workflow.
type Notifier interface {
	OrderReceived(ctx context.Context, to userdom.User, o domain.Order) error
}
