package application

import (
	"context"
	"log/slog"

	"github.com/commercekit/order-intake/internal/inventory/domain"
	orderdom "github.com/commercekit/order-intake/internal/order/domain"
)

type Service struct {
	log       *slog.Logger
	products  ProductStore
	restocks  RestockStore
	threshold int
}

func NewService(log *slog.Logger, products ProductStore, restocks RestockStore, threshold int) *Service {
	return &Service{log: log, products: products, restocks: restocks, threshold: threshold}
}

// HandleOrderCreated checks remaining stock for each ordered product and
// records a restock request when it is at or below the threshold. Products
// that disappeared from the catalog are skipped with a warning.
func (s *Service) HandleOrderCreated(ctx context.Context, ev orderdom.OrderCreated) error {
	for _, item := range ev.Items {
		p, ok, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Warn("ordered product missing from catalog", "product_id", item.ProductID, "order_id", ev.OrderID)
			continue
		}
		if p.Stock > s.threshold {
			continue
		}
		if err := s.restocks.Record(ctx, domain.RestockRequest{
			ProductID: p.ID,
			Stock:     p.Stock,
			Threshold: s.threshold,
		}); err != nil {
			return err
		}
		s.log.Warn("stock at or below restock threshold",
			"product_id", p.ID, "stock", p.Stock, "threshold", s.threshold, "order_id", ev.OrderID)
	}
	return nil
}
