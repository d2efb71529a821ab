package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"kasirpos/internal/domain"
)

func ParsePeriod(raw string) (domain.Period, error) {
	switch raw {
	case "day", "daily", "":
		return domain.PeriodDay, nil
	case "month", "monthly":
		return domain.PeriodMonth, nil
	case "year", "annual", "yearly":
		return domain.PeriodYear, nil
	default:
		return "", fmt.Errorf("%w: unknown period %q", ErrInvalidInput, raw)
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func samePeriod(period domain.Period, a time.Time, b time.Time) bool {
	switch period {
	case domain.PeriodDay:
		return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
	case domain.PeriodMonth:
		return a.Year() == b.Year() && a.Month() == b.Month()
	case domain.PeriodYear:
		return a.Year() == b.Year()
	default:
		return false
	}
}

// PeriodReport aggregates ledger entries whose store-local date falls in the
// same day, month or year as ref. Returns count against both revenue and
// product quantities.
func (s *Service) PeriodReport(ctx context.Context, period domain.Period, ref time.Time) (domain.PeriodReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireLocked(ctx, domain.CapViewReports); err != nil {
		return domain.PeriodReport{}, err
	}

	ref = ref.In(s.loc)
	report := domain.PeriodReport{
		Period:     period,
		Reference:  ref.Format("2006-01-02"),
		NetRevenue: decimal.Zero,
		Products:   []domain.ProductSales{},
	}

	byProduct := make(map[string]*domain.ProductSales)
	order := make([]string, 0)
	for _, tx := range s.transactions {
		if !samePeriod(period, tx.Date.In(s.loc), ref) {
			continue
		}
		report.NetRevenue = report.NetRevenue.Add(tx.Total)
		sign := 1
		if tx.Type == domain.TransactionReturn {
			sign = -1
			report.ReturnCount++
		} else {
			report.SaleCount++
		}

		for _, item := range tx.Items {
			entry, ok := byProduct[item.ID]
			if !ok {
				entry = &domain.ProductSales{ProductID: item.ID, Name: item.Name, Revenue: decimal.Zero}
				byProduct[item.ID] = entry
				order = append(order, item.ID)
			}
			entry.Quantity += item.Quantity * sign
			entry.Revenue = entry.Revenue.Add(lineTotal(item.Price, item.Quantity*sign))
		}
	}
	report.TransactionCount = report.SaleCount + report.ReturnCount

	for _, id := range order {
		report.Products = append(report.Products, *byProduct[id])
	}
	sort.SliceStable(report.Products, func(i, j int) bool {
		return report.Products[i].Quantity > report.Products[j].Quantity
	})
	return report, nil
}

// SalesExport lists one row per ledger line between the start of from's day
// and the end of to's day, store-local.
func (s *Service) SalesExport(ctx context.Context, from time.Time, to time.Time) ([]domain.SalesExportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireLocked(ctx, domain.CapViewReports); err != nil {
		return nil, err
	}

	start := startOfDay(from.In(s.loc))
	end := startOfDay(to.In(s.loc)).AddDate(0, 0, 1).Add(-time.Millisecond)
	if start.After(end) {
		return nil, fmt.Errorf("%w: start date must not be after end date", ErrInvalidInput)
	}

	rows := make([]domain.SalesExportRow, 0)
	for _, tx := range s.transactions {
		at := tx.Date.In(s.loc)
		if at.Before(start) || at.After(end) {
			continue
		}
		for _, item := range tx.Items {
			rows = append(rows, domain.SalesExportRow{
				TransactionID:         tx.ID,
				Type:                  tx.Type,
				OriginalTransactionID: tx.OriginalTransactionID,
				At:                    at,
				ProductID:             item.ID,
				Name:                  item.Name,
				Quantity:              item.Quantity,
				UnitPrice:             item.Price,
				LineTotal:             lineTotal(item.Price, item.Quantity),
				InvoiceTotal:          tx.Total,
				AmountReceived:        tx.AmountReceived,
				ChangeDue:             tx.ChangeDue,
			})
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no transactions in the selected range", ErrEmptyExport)
	}
	return rows, nil
}

func (s *Service) StockSnapshot(ctx context.Context) ([]domain.StockRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireLocked(ctx, domain.CapViewReports); err != nil {
		return nil, err
	}
	if len(s.products) == 0 {
		return nil, fmt.Errorf("%w: no products", ErrEmptyExport)
	}
	rows := make([]domain.StockRow, 0, len(s.products))
	for _, p := range s.products {
		rows = append(rows, domain.StockRow{ProductID: p.ID, Name: p.Name, Stock: p.Stock})
	}
	return rows, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
