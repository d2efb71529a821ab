package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"kasirpos/internal/domain"
)

func seedUsers(adminPassword string, userPassword string, cost int) ([]domain.User, error) {
	users := make([]domain.User, 0, 2)
	for _, u := range []struct {
		id       string
		username string
		password string
		role     domain.Role
	}{
		{"1", "admin", adminPassword, domain.RoleAdmin},
		{"2", "user", userPassword, domain.RoleUser},
	} {
		hash, err := hashPassword(u.password, cost)
		if err != nil {
			return users, fmt.Errorf("hash seed password for %s: %w", u.username, err)
		}
		user := domain.User{ID: u.id, Username: u.username, Password: hash, Role: u.role}
		if u.role == domain.RoleUser {
			user.Permissions = &domain.Permissions{}
		}
		users = append(users, user)
	}
	return users, nil
}

func seedProducts() []domain.Product {
	products := []domain.Product{
		{ID: "8991001000011", Name: "Mie Goreng Instan", Price: decimal.RequireFromString("3.50"), IsTaxable: false, Stock: 120},
		{ID: "8991001000028", Name: "Telur 10 Butir", Price: decimal.RequireFromString("26.50"), IsTaxable: false, Stock: 40},
		{ID: "8991001000035", Name: "Susu UHT 1L", Price: decimal.RequireFromString("18.90"), IsTaxable: true, Stock: 60},
		{ID: "8991001000042", Name: "Roti Tawar", Price: decimal.RequireFromString("17.80"), IsTaxable: false, Stock: 30},
		{ID: "8991001000059", Name: "Kopi Sachet", Price: decimal.RequireFromString("2.60"), IsTaxable: true, Stock: 200},
		{ID: "8991001000066", Name: "Gula 1kg", Price: decimal.RequireFromString("17.40"), IsTaxable: false, Stock: 50},
		{ID: "8991001000073", Name: "Teh Celup", Price: decimal.RequireFromString("9.80"), IsTaxable: true, Stock: 80},
		{ID: "8991001000080", Name: "Air Mineral 600ml", Price: decimal.RequireFromString("3.90"), IsTaxable: true, Stock: 150},
		{ID: "8991001000097", Name: "Keripik Singkong", Price: decimal.RequireFromString("12.80"), IsTaxable: true, Stock: 45},
		{ID: "8991001000103", Name: "Sabun Mandi", Price: decimal.RequireFromString("7.40"), IsTaxable: true, Stock: 70},
	}
	for i := range products {
		products[i].ImageURL = domain.DefaultImageURL
	}
	return products
}
