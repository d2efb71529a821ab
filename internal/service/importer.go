package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"kasirpos/internal/domain"
	"kasirpos/internal/store"
)

var taxableWords = map[string]bool{"true": true, "yes": true, "نعم": true}

// ParseTaxable reports whether a spreadsheet cell marks a product taxable.
func ParseTaxable(raw string) bool {
	return taxableWords[strings.ToLower(strings.TrimSpace(raw))]
}

// ValidateImport checks rows against the catalog without changing it.
func (s *Service) ValidateImport(ctx context.Context, rows []domain.ImportRow) (domain.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireLocked(ctx, domain.CapManageProducts); err != nil {
		return domain.ImportResult{}, err
	}
	return s.validateImportLocked(rows), nil
}

// ImportProducts validates rows and adds the valid ones in file order.
func (s *Service) ImportProducts(ctx context.Context, rows []domain.ImportRow) (domain.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireLocked(ctx, domain.CapManageProducts)
	if err != nil {
		return domain.ImportResult{}, err
	}
	result := s.validateImportLocked(rows)
	if len(result.Valid) == 0 {
		return result, nil
	}
	for _, product := range result.Valid {
		s.appendProductLocked(product)
	}
	result.Committed = true
	s.persistLocked(ctx, store.KeyProducts)
	s.logAction(user, "product_import", logrus.Fields{"imported": len(result.Valid), "rejected": len(result.Errors)})
	return result, nil
}

func (s *Service) validateImportLocked(rows []domain.ImportRow) domain.ImportResult {
	result := domain.ImportResult{Valid: []domain.Product{}, Errors: []domain.ImportError{}}
	seen := make(map[string]bool, len(rows))

	for _, row := range rows {
		product, msg := parseImportRow(row)
		if msg == "" {
			if _, exists := s.productIndex[product.ID]; exists {
				msg = fmt.Sprintf("barcode %s already exists in the catalog", product.ID)
			}
		}
		if msg == "" && seen[product.ID] {
			msg = fmt.Sprintf("barcode %s is duplicated within the file", product.ID)
		}
		if msg != "" {
			result.Errors = append(result.Errors, domain.ImportError{Row: row.Row, Data: row, Message: msg})
			continue
		}
		seen[product.ID] = true
		result.Valid = append(result.Valid, product)
	}
	return result
}

func parseImportRow(row domain.ImportRow) (domain.Product, string) {
	barcode := strings.TrimSpace(row.Barcode)
	name := strings.TrimSpace(row.Name)
	priceRaw := strings.TrimSpace(row.Price)
	stockRaw := strings.TrimSpace(row.Stock)

	if barcode == "" || name == "" || priceRaw == "" {
		return domain.Product{}, "barcode, product name and price are required"
	}
	price, err := decimal.NewFromString(priceRaw)
	if err != nil || !price.IsPositive() {
		return domain.Product{}, "price must be a valid number greater than zero"
	}
	stock := 0
	if stockRaw != "" {
		stock, err = parseStock(stockRaw)
		if err != nil || stock < 0 {
			return domain.Product{}, "stock must be a non-negative whole number"
		}
	}

	return productFromInput(domain.ProductInput{
		ID:        barcode,
		Name:      name,
		Price:     price,
		ImageURL:  strings.TrimSpace(row.ImageURL),
		IsTaxable: ParseTaxable(row.Taxable),
		Stock:     stock,
	}), ""
}

// parseStock accepts integers and spreadsheet numbers like "12.0",
// truncating any fraction.
func parseStock(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid stock %q", raw)
	}
	return int(math.Trunc(f)), nil
}
