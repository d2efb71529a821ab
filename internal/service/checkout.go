package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"kasirpos/internal/domain"
	"kasirpos/internal/metrics"
	"kasirpos/internal/store"
	"kasirpos/internal/xid"
)

// Checkout sells the caller's cart. Stock is re-checked against the catalog
// because another session may have sold the same units since they were
// added.
func (s *Service) Checkout(ctx context.Context, amountReceived decimal.Decimal) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.actorLocked(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}
	c := s.cartLocked(user.Username)
	lines := c.snapshot()
	if len(lines) == 0 {
		return domain.Transaction{}, ErrEmptyCart
	}

	totals := ComputeTotals(lines)
	if amountReceived.LessThan(totals.Total) {
		return domain.Transaction{}, fmt.Errorf("%w: total %s, received %s", ErrInsufficientPayment, totals.Total.StringFixed(2), amountReceived.StringFixed(2))
	}

	for _, line := range lines {
		product, ok := s.productLocked(line.ID)
		if !ok {
			return domain.Transaction{}, fmt.Errorf("%w: product %s", store.ErrNotFound, line.ID)
		}
		if line.Quantity > product.Stock {
			return domain.Transaction{}, fmt.Errorf("%w: only %d of %s available", ErrInsufficientStock, product.Stock, product.Name)
		}
	}

	items := make([]domain.TransactionLine, 0, len(lines))
	for _, line := range lines {
		product, _ := s.productLocked(line.ID)
		product.Stock -= line.Quantity
		line.Stock = product.Stock
		items = append(items, domain.TransactionLine{CartLine: line})
	}

	received := amountReceived
	change := amountReceived.Sub(totals.Total)
	sale := domain.Transaction{
		ID:             xid.New("txn"),
		Date:           s.now().UTC(),
		Type:           domain.TransactionSale,
		Items:          items,
		Total:          totals.Total,
		AmountReceived: &received,
		ChangeDue:      &change,
	}
	s.transactions = append(s.transactions, sale)

	delete(s.carts, user.Username)
	s.suggestions.Clear(user.Username)
	s.persistLocked(ctx, store.KeyProducts, store.KeyTransactions)

	metrics.Checkouts.Inc()
	s.logAction(user, "checkout", logrus.Fields{"transaction_id": sale.ID, "total": sale.Total.String()})
	return cloneTransaction(sale), nil
}

func cloneTransaction(tx domain.Transaction) domain.Transaction {
	tx.Items = append([]domain.TransactionLine(nil), tx.Items...)
	return tx
}
