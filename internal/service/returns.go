package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"kasirpos/internal/domain"
	"kasirpos/internal/metrics"
	"kasirpos/internal/store"
	"kasirpos/internal/xid"
)

// FindReturnableSale looks up a sale by id. Return transactions are never
// returnable themselves.
func (s *Service) FindReturnableSale(ctx context.Context, id string) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireLocked(ctx, domain.CapProcessReturns); err != nil {
		return domain.Transaction{}, err
	}
	idx, ok := s.saleIndexLocked(strings.TrimSpace(id))
	if !ok {
		return domain.Transaction{}, fmt.Errorf("%w: sale %s", store.ErrNotFound, id)
	}
	return cloneTransaction(s.transactions[idx]), nil
}

func (s *Service) saleIndexLocked(id string) (int, bool) {
	for i := range s.transactions {
		if s.transactions[i].ID == id && s.transactions[i].Type == domain.TransactionSale {
			return i, true
		}
	}
	return 0, false
}

// ProcessReturn returns quantities of a sale's lines, keyed by product id.
// Each quantity is capped at what is still returnable on that line; ids not
// on the sale and non-positive quantities are ignored.
func (s *Service) ProcessReturn(ctx context.Context, saleID string, quantities map[string]int) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireLocked(ctx, domain.CapProcessReturns)
	if err != nil {
		return domain.Transaction{}, err
	}
	saleID = strings.TrimSpace(saleID)
	idx, ok := s.saleIndexLocked(saleID)
	if !ok {
		return domain.Transaction{}, fmt.Errorf("%w: sale %s", store.ErrNotFound, saleID)
	}
	sale := &s.transactions[idx]

	returned := make([]domain.TransactionLine, 0, len(quantities))
	refund := decimal.Zero
	applied := make(map[int]int, len(quantities))
	for i, line := range sale.Items {
		qty := quantities[line.ID]
		if qty <= 0 {
			continue
		}
		if left := line.Returnable() - applied[i]; qty > left {
			qty = left
		}
		if qty <= 0 {
			continue
		}
		applied[i] += qty
		refund = refund.Add(refundFor(line, qty))

		out := line
		out.Quantity = qty
		out.Returned = 0
		returned = append(returned, out)
	}
	if len(returned) == 0 {
		return domain.Transaction{}, ErrNothingToReturn
	}

	for i, qty := range applied {
		sale.Items[i].Returned += qty
		if product, ok := s.productLocked(sale.Items[i].ID); ok {
			product.Stock += qty
		}
	}
	for i := range returned {
		if product, ok := s.productLocked(returned[i].ID); ok {
			returned[i].Stock = product.Stock
		}
	}

	ret := domain.Transaction{
		ID:                    xid.New("ret"),
		Date:                  s.now().UTC(),
		Type:                  domain.TransactionReturn,
		OriginalTransactionID: sale.ID,
		Items:                 returned,
		Total:                 refund.Neg(),
	}
	s.transactions = append(s.transactions, ret)
	s.persistLocked(ctx, store.KeyProducts, store.KeyTransactions)

	metrics.Returns.Inc()
	s.logAction(user, "return", logrus.Fields{"transaction_id": ret.ID, "sale_id": sale.ID, "refund": refund.String()})
	return cloneTransaction(ret), nil
}
