package application

import (
	"context"

	catalogdom "github.com/commercekit/order-intake/internal/catalog/domain"
	"github.com/commercekit/order-intake/internal/inventory/domain"
)

type ProductStore interface {
	FindByID(ctx context.Context, id string) (catalogdom.Product, bool, error)
}

type RestockStore interface {
	Record(ctx context.Context, req domain.RestockRequest) error
}
