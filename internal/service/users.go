package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"kasirpos/internal/domain"
	"kasirpos/internal/store"
	"kasirpos/internal/xid"
)

// Authenticate checks credentials. Unknown usernames and wrong passwords
// return the same error.
func (s *Service) Authenticate(ctx context.Context, username string, password string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.TrimSpace(username)
	for _, u := range s.users {
		if u.Username != username {
			continue
		}
		if !verifyPassword(u.Password, password) {
			break
		}
		s.logAction(u, "login", nil)
		return u, nil
	}
	return domain.User{}, ErrInvalidCredentials
}

func (s *Service) Me(ctx context.Context) (domain.UserView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.actorLocked(ctx)
	if err != nil {
		return domain.UserView{}, err
	}
	return user.View(), nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireAdminLocked(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.UserView, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.View())
	}
	return out, nil
}

func (s *Service) AddUser(ctx context.Context, req domain.UserCreateRequest) (domain.UserView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireAdminLocked(ctx)
	if err != nil {
		return domain.UserView{}, err
	}

	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	if username == "" || password == "" {
		return domain.UserView{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if s.userIndexByNameLocked(username) >= 0 {
		return domain.UserView{}, fmt.Errorf("%w: username %q", ErrDuplicate, username)
	}
	if err := checkNewPassword(password); err != nil {
		return domain.UserView{}, err
	}

	hashed, err := hashPassword(password, s.hashCost)
	if err != nil {
		return domain.UserView{}, err
	}
	user := domain.User{
		ID:          xid.New("usr"),
		Username:    username,
		Password:    hashed,
		Role:        domain.RoleUser,
		Permissions: &domain.Permissions{},
	}
	s.users = append(s.users, user)
	s.persistLocked(ctx, store.KeyUsers)

	s.logAction(admin, "user_create", logrus.Fields{"username": username})
	return user.View(), nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireAdminLocked(ctx)
	if err != nil {
		return err
	}
	idx := s.userIndexLocked(id)
	if idx < 0 {
		return fmt.Errorf("user %q: %w", id, store.ErrNotFound)
	}
	target := s.users[idx]
	if target.Username == admin.Username {
		return fmt.Errorf("%w: cannot delete your own account", ErrForbidden)
	}
	if target.Role != domain.RoleUser {
		return fmt.Errorf("%w: only cashier accounts can be deleted", ErrForbidden)
	}

	s.users = append(s.users[:idx], s.users[idx+1:]...)
	delete(s.carts, target.Username)
	s.suggestions.Clear(target.Username)
	s.persistLocked(ctx, store.KeyUsers)

	s.logAction(admin, "user_delete", logrus.Fields{"username": target.Username})
	return nil
}

func (s *Service) SetPermissions(ctx context.Context, id string, perms domain.Permissions) (domain.UserView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	admin, err := s.requireAdminLocked(ctx)
	if err != nil {
		return domain.UserView{}, err
	}
	idx := s.userIndexLocked(id)
	if idx < 0 {
		return domain.UserView{}, fmt.Errorf("user %q: %w", id, store.ErrNotFound)
	}
	if s.users[idx].Role != domain.RoleUser {
		return domain.UserView{}, fmt.Errorf("%w: admin permissions are fixed", ErrForbidden)
	}

	stored := perms
	s.users[idx].Permissions = &stored
	s.persistLocked(ctx, store.KeyUsers)

	s.logAction(admin, "user_permissions", logrus.Fields{
		"username":    s.users[idx].Username,
		"permissions": stored,
	})
	return s.users[idx].View(), nil
}

// ChangePassword lets any account change its own password after proving the
// current one. Admins may reset any other account's password without it.
func (s *Service) ChangePassword(ctx context.Context, id string, req domain.PasswordChangeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, err := s.actorLocked(ctx)
	if err != nil {
		return err
	}
	idx := s.userIndexLocked(id)
	if idx < 0 {
		return fmt.Errorf("user %q: %w", id, store.ErrNotFound)
	}
	target := s.users[idx]

	self := target.Username == actor.Username
	switch {
	case self:
		if !verifyPassword(target.Password, req.CurrentPassword) {
			return fmt.Errorf("%w: current password is incorrect", ErrInvalidCredentials)
		}
	case actor.Role == domain.RoleAdmin:
	default:
		return fmt.Errorf("%w: cannot change this account's password", ErrForbidden)
	}

	if req.NewPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}
	if req.NewPassword != req.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}
	if err := checkNewPassword(req.NewPassword); err != nil {
		return err
	}

	hashed, err := hashPassword(req.NewPassword, s.hashCost)
	if err != nil {
		return err
	}
	s.users[idx].Password = hashed
	s.persistLocked(ctx, store.KeyUsers)

	s.logAction(actor, "password_change", logrus.Fields{"username": target.Username})
	return nil
}

func (s *Service) userIndexLocked(id string) int {
	for i, u := range s.users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) userIndexByNameLocked(username string) int {
	for i, u := range s.users {
		if u.Username == username {
			return i
		}
	}
	return -1
}
