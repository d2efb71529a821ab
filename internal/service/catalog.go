package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"kasirpos/internal/domain"
	"kasirpos/internal/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

func validateProduct(input domain.ProductInput) error {
	if err := validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed %s", ErrInvalidInput, strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func normalizeProductInput(input domain.ProductInput) domain.ProductInput {
	input.ID = strings.TrimSpace(input.ID)
	input.Name = strings.TrimSpace(input.Name)
	input.ImageURL = strings.TrimSpace(input.ImageURL)
	return input
}

func productFromInput(input domain.ProductInput) domain.Product {
	imageURL := input.ImageURL
	if imageURL == "" {
		imageURL = domain.DefaultImageURL
	}
	return domain.Product{
		ID:        input.ID,
		Name:      input.Name,
		Price:     input.Price,
		ImageURL:  imageURL,
		IsTaxable: input.IsTaxable,
		Stock:     input.Stock,
	}
}

// ListProducts filters by case-insensitive substring of name or barcode.
func (s *Service) ListProducts(_ context.Context, query string) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if query == "" || strings.Contains(strings.ToLower(p.Name), query) || strings.Contains(strings.ToLower(p.ID), query) {
			out = append(out, p)
		}
	}
	return out
}

func (s *Service) GetProduct(_ context.Context, id string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.productLocked(strings.TrimSpace(id))
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	return *product, nil
}

func (s *Service) AddProduct(ctx context.Context, input domain.ProductInput) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireLocked(ctx, domain.CapManageProducts)
	if err != nil {
		return domain.Product{}, err
	}
	input = normalizeProductInput(input)
	if err := validateProduct(input); err != nil {
		return domain.Product{}, err
	}
	if _, exists := s.productIndex[input.ID]; exists {
		return domain.Product{}, fmt.Errorf("%w: barcode %s", ErrDuplicate, input.ID)
	}

	product := productFromInput(input)
	s.appendProductLocked(product)
	s.persistLocked(ctx, store.KeyProducts)
	s.logAction(user, "product_create", logrus.Fields{"product_id": product.ID})
	return product, nil
}

// EditProduct replaces every field except the barcode, which is fixed once
// the product exists.
func (s *Service) EditProduct(ctx context.Context, id string, input domain.ProductInput) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.requireLocked(ctx, domain.CapManageProducts)
	if err != nil {
		return domain.Product{}, err
	}
	id = strings.TrimSpace(id)
	input = normalizeProductInput(input)
	if input.ID == "" {
		input.ID = id
	}
	if input.ID != id {
		return domain.Product{}, fmt.Errorf("%w: barcode cannot be changed", ErrInvalidInput)
	}
	if err := validateProduct(input); err != nil {
		return domain.Product{}, err
	}
	existing, ok := s.productLocked(id)
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}

	*existing = productFromInput(input)
	s.persistLocked(ctx, store.KeyProducts)
	s.logAction(user, "product_update", logrus.Fields{"product_id": id})
	return *existing, nil
}

func (s *Service) appendProductLocked(product domain.Product) {
	s.products = append(s.products, product)
	s.productIndex[product.ID] = len(s.products) - 1
}
