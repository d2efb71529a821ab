package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"kasirpos/internal/config"
	"kasirpos/internal/domain"
	"kasirpos/internal/metrics"
	"kasirpos/internal/store"
	"kasirpos/internal/suggestion"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Logger      logrus.FieldLogger
	Suggestions *suggestion.Debouncer
	Location    *time.Location
	Clock       func() time.Time
	// Seed passwords are used only when no users snapshot can be loaded.
	SeedAdminPassword string
	SeedUserPassword  string
	PasswordCost      int
}

// Service owns the whole POS state. Every exported method takes the lock,
// so callers see each operation as atomic.
type Service struct {
	mu          sync.Mutex
	repo        store.SnapshotStore
	log         logrus.FieldLogger
	suggestions *suggestion.Debouncer
	loc         *time.Location
	now         func() time.Time
	seedAdmin   string
	seedUser    string
	hashCost    int

	products     []domain.Product
	productIndex map[string]int
	transactions []domain.Transaction
	users        []domain.User
	carts        map[string]*cart
}

func New(repo store.SnapshotStore, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SeedAdminPassword == "" {
		opts.SeedAdminPassword = "admin123"
	}
	if opts.SeedUserPassword == "" {
		opts.SeedUserPassword = "user123"
	}
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}

	return &Service{
		repo:         repo,
		log:          opts.Logger.WithField("module", "service"),
		suggestions:  opts.Suggestions,
		loc:          opts.Location,
		now:          opts.Clock,
		seedAdmin:    opts.SeedAdminPassword,
		seedUser:     opts.SeedUserPassword,
		hashCost:     opts.PasswordCost,
		productIndex: make(map[string]int),
		carts:        make(map[string]*cart),
	}
}

// Load reads the three snapshots. Missing or unreadable snapshots fall back
// to seed users, seed products and an empty ledger; the fallback is written
// back so the next start reads it. Seed accounts that cannot be created are
// an error and nothing is written.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := decodeSnapshot[[]domain.User](ctx, s, store.KeyUsers)
	if !ok || len(users) == 0 {
		s.log.Warn("no stored users, seeding default accounts")
		seeded, err := seedUsers(s.seedAdmin, s.seedUser, s.hashCost)
		if err != nil {
			config.LogError(s.log, "service", "Load", "seed users", nil, err)
			return err
		}
		s.users = seeded
		s.persistLocked(ctx, store.KeyUsers)
	} else {
		s.users = users
		if s.upgradeLegacyPasswordsLocked() > 0 {
			s.persistLocked(ctx, store.KeyUsers)
		}
	}

	products, ok := decodeSnapshot[[]domain.Product](ctx, s, store.KeyProducts)
	if !ok {
		s.log.Warn("no stored products, seeding default catalog")
		products = seedProducts()
		s.setProductsLocked(products)
		s.persistLocked(ctx, store.KeyProducts)
	} else {
		s.setProductsLocked(products)
	}

	transactions, ok := decodeSnapshot[[]domain.Transaction](ctx, s, store.KeyTransactions)
	if !ok {
		transactions = []domain.Transaction{}
	}
	s.transactions = transactions

	s.log.WithFields(logrus.Fields{
		"users":        len(s.users),
		"products":     len(s.products),
		"transactions": len(s.transactions),
	}).Info("pos state loaded")
	return nil
}

func decodeSnapshot[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var zero T
	payload, err := s.repo.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			config.LogError(s.log, "service", "Load", "read snapshot", key, err)
		}
		return zero, false
	}

	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		config.LogError(s.log, "service", "Load", "parse snapshot", key, err)
		return zero, false
	}
	return out, true
}

// persistLocked writes the named collections. Failures are logged and
// counted, never returned: the in-memory state stays authoritative.
func (s *Service) persistLocked(ctx context.Context, keys ...string) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	for _, key := range keys {
		var value any
		switch key {
		case store.KeyUsers:
			value = s.users
		case store.KeyProducts:
			value = s.products
		case store.KeyTransactions:
			value = s.transactions
		default:
			continue
		}

		payload, err := json.Marshal(value)
		if err == nil {
			err = s.repo.Save(saveCtx, key, payload)
		}
		if err != nil {
			metrics.PersistFailures.WithLabelValues(key).Inc()
			config.LogError(s.log, "service", "persist", "save snapshot", key, err)
		}
	}
}

func (s *Service) setProductsLocked(products []domain.Product) {
	s.products = products
	s.productIndex = make(map[string]int, len(products))
	for i, p := range products {
		s.productIndex[p.ID] = i
	}
}

func (s *Service) productLocked(id string) (*domain.Product, bool) {
	idx, ok := s.productIndex[id]
	if !ok {
		return nil, false
	}
	return &s.products[idx], true
}

// actorLocked resolves the caller's live account, so permission changes and
// deletions apply to sessions that are already open.
func (s *Service) actorLocked(ctx context.Context) (domain.User, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return domain.User{}, ErrUnauthenticated
	}
	for _, u := range s.users {
		if u.Username == actor.Username {
			return u, nil
		}
	}
	return domain.User{}, ErrUnauthenticated
}

func (s *Service) requireLocked(ctx context.Context, c domain.Capability) (domain.User, error) {
	user, err := s.actorLocked(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if !user.Can(c) {
		return domain.User{}, fmt.Errorf("%w: %s permission required", ErrForbidden, c)
	}
	return user, nil
}

func (s *Service) requireAdminLocked(ctx context.Context) (domain.User, error) {
	user, err := s.actorLocked(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if user.Role != domain.RoleAdmin {
		return domain.User{}, fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return user, nil
}

func (s *Service) logAction(user domain.User, action string, fields logrus.Fields) {
	entry := s.log.WithFields(logrus.Fields{
		"actor":  user.Username,
		"role":   user.Role,
		"action": action,
	})
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Info("pos action")
}
