package service

import (
	"context"
	"fmt"
	"strings"

	"kasirpos/internal/domain"
	"kasirpos/internal/store"
	"kasirpos/internal/suggestion"
)

type cart struct {
	order []string
	lines map[string]domain.CartLine
}

func newCart() *cart {
	return &cart{lines: make(map[string]domain.CartLine)}
}

func (c *cart) snapshot() []domain.CartLine {
	out := make([]domain.CartLine, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.lines[id])
	}
	return out
}

func (c *cart) set(line domain.CartLine) {
	if _, ok := c.lines[line.ID]; !ok {
		c.order = append(c.order, line.ID)
	}
	c.lines[line.ID] = line
}

func (c *cart) remove(id string) {
	if _, ok := c.lines[id]; !ok {
		return
	}
	delete(c.lines, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (s *Service) cartLocked(username string) *cart {
	c, ok := s.carts[username]
	if !ok {
		c = newCart()
		s.carts[username] = c
	}
	return c
}

// cartViewLocked reports each line with the catalog's current stock rather
// than the count copied when the line was added.
func (s *Service) cartViewLocked(c *cart) domain.Cart {
	lines := c.snapshot()
	for i := range lines {
		if product, ok := s.productLocked(lines[i].ID); ok {
			lines[i].Stock = product.Stock
		}
	}
	return domain.Cart{Lines: lines, Totals: ComputeTotals(lines)}
}

func (s *Service) Cart(ctx context.Context) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.actorLocked(ctx)
	if err != nil {
		return domain.Cart{}, err
	}
	return s.cartViewLocked(s.cartLocked(user.Username)), nil
}

// AddToCart adds one unit of the product. It refuses once the cart already
// holds every unit in stock.
func (s *Service) AddToCart(ctx context.Context, productID string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.actorLocked(ctx)
	if err != nil {
		return domain.Cart{}, err
	}
	productID = strings.TrimSpace(productID)
	product, ok := s.productLocked(productID)
	if !ok {
		return domain.Cart{}, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}

	c := s.cartLocked(user.Username)
	inCart := c.lines[productID].Quantity
	if product.Stock <= 0 || inCart >= product.Stock {
		return domain.Cart{}, fmt.Errorf("%w: only %d of %s available", ErrInsufficientStock, product.Stock, product.Name)
	}

	c.set(domain.CartLine{Product: *product, Quantity: inCart + 1})
	s.suggestions.Trigger(user.Username, c.snapshot())
	return s.cartViewLocked(c), nil
}

// UpdateCartQuantity sets the line quantity; zero or less removes the line.
func (s *Service) UpdateCartQuantity(ctx context.Context, productID string, qty int) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.actorLocked(ctx)
	if err != nil {
		return domain.Cart{}, err
	}
	productID = strings.TrimSpace(productID)
	c := s.cartLocked(user.Username)
	line, inCart := c.lines[productID]
	if !inCart {
		return domain.Cart{}, fmt.Errorf("%w: product %s is not in the cart", store.ErrNotFound, productID)
	}

	if qty <= 0 {
		c.remove(productID)
	} else {
		product, ok := s.productLocked(productID)
		if !ok {
			return domain.Cart{}, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
		}
		if qty > product.Stock {
			return domain.Cart{}, fmt.Errorf("%w: only %d of %s available", ErrInsufficientStock, product.Stock, product.Name)
		}
		line.Quantity = qty
		c.set(line)
	}

	s.suggestions.Trigger(user.Username, c.snapshot())
	return s.cartViewLocked(c), nil
}

func (s *Service) RemoveFromCart(ctx context.Context, productID string) (domain.Cart, error) {
	return s.UpdateCartQuantity(ctx, productID, 0)
}

func (s *Service) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.actorLocked(ctx)
	if err != nil {
		return err
	}
	delete(s.carts, user.Username)
	s.suggestions.Clear(user.Username)
	return nil
}

// Logout discards the session cart and any pending suggestion.
func (s *Service) Logout(ctx context.Context) error {
	return s.ClearCart(ctx)
}

func (s *Service) Suggestion(ctx context.Context) (suggestion.Result, error) {
	s.mu.Lock()
	user, err := s.actorLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return suggestion.Result{}, err
	}
	return s.suggestions.Latest(user.Username), nil
}
