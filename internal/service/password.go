package service

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	maxPasswordBytes  = 72
)

// checkNewPassword applies the rules for passwords chosen by a person. Seed
// and legacy passwords only have to fit bcrypt.
func checkNewPassword(password string) error {
	if len([]rune(password)) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	}
	return nil
}

func hashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	}
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || input == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}

// upgradeLegacyPasswordsLocked hashes any plaintext passwords left by older
// snapshots and reports how many were rewritten.
func (s *Service) upgradeLegacyPasswordsLocked() int {
	upgraded := 0
	for i := range s.users {
		if s.users[i].Password == "" || isPasswordHash(s.users[i].Password) {
			continue
		}
		hashed, err := hashPassword(s.users[i].Password, s.hashCost)
		if err != nil {
			s.log.WithError(err).WithField("username", s.users[i].Username).Warn("failed to upgrade legacy password")
			continue
		}
		s.users[i].Password = hashed
		upgraded++
	}
	if upgraded > 0 {
		s.log.WithField("count", upgraded).Info("upgraded legacy plaintext passwords")
	}
	return upgraded
}
