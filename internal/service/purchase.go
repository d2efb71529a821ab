package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"kasirpos/internal/domain"
	"kasirpos/internal/store"
)

// ReceivePurchaseInvoice adds received quantities to stock. Zero quantities
// are dropped and unknown barcodes skipped. Receipts are not written to the
// transaction ledger.
func (s *Service) ReceivePurchaseInvoice(ctx context.Context, quantities map[string]int) ([]domain.ReceiptLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireLocked(ctx, domain.CapManagePurchases)
	if err != nil {
		return nil, err
	}

	received := make(map[string]int, len(quantities))
	for id, qty := range quantities {
		id = strings.TrimSpace(id)
		if qty < 0 {
			return nil, fmt.Errorf("%w: negative quantity for %s", ErrInvalidInput, id)
		}
		if qty == 0 || id == "" {
			continue
		}
		received[id] += qty
	}
	if len(received) == 0 {
		return nil, fmt.Errorf("%w: no quantities to receive", ErrInvalidInput)
	}

	lines := make([]domain.ReceiptLine, 0, len(received))
	for i := range s.products {
		product := &s.products[i]
		qty, ok := received[product.ID]
		if !ok {
			continue
		}
		product.Stock += qty
		lines = append(lines, domain.ReceiptLine{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  qty,
			NewStock:  product.Stock,
		})
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: none of the products exist", store.ErrNotFound)
	}

	s.persistLocked(ctx, store.KeyProducts)
	s.logAction(user, "purchase_invoice", logrus.Fields{"lines": len(lines)})
	return lines, nil
}
