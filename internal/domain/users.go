package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Capability int

const (
	CapManageProducts Capability = iota
	CapViewReports
	CapManagePurchases
	CapProcessReturns
)

func (c Capability) String() string {
	switch c {
	case CapManageProducts:
		return "manage_products"
	case CapViewReports:
		return "view_reports"
	case CapManagePurchases:
		return "manage_purchases"
	case CapProcessReturns:
		return "process_returns"
	default:
		return "unknown"
	}
}

type Permissions struct {
	CanManageProducts  bool `json:"can_manage_products"`
	CanViewReports     bool `json:"can_view_reports"`
	CanManagePurchases bool `json:"can_manage_purchases"`
	CanProcessReturns  bool `json:"can_process_returns"`
}

// UnmarshalJSON also reads the camelCase keys used by browser-era user
// snapshots.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	var raw struct {
		CanManageProducts  *bool `json:"can_manage_products"`
		CanViewReports     *bool `json:"can_view_reports"`
		CanManagePurchases *bool `json:"can_manage_purchases"`
		CanProcessReturns  *bool `json:"can_process_returns"`

		LegacyManageProducts  *bool `json:"canManageProducts"`
		LegacyViewReports     *bool `json:"canViewReports"`
		LegacyManagePurchases *bool `json:"canManagePurchases"`
		LegacyProcessReturns  *bool `json:"canProcessReturns"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*p = Permissions{
		CanManageProducts:  firstSet(raw.CanManageProducts, raw.LegacyManageProducts),
		CanViewReports:     firstSet(raw.CanViewReports, raw.LegacyViewReports),
		CanManagePurchases: firstSet(raw.CanManagePurchases, raw.LegacyManagePurchases),
		CanProcessReturns:  firstSet(raw.CanProcessReturns, raw.LegacyProcessReturns),
	}
	return nil
}

func firstSet(values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return false
}

func AllPermissions() Permissions {
	return Permissions{
		CanManageProducts:  true,
		CanViewReports:     true,
		CanManagePurchases: true,
		CanProcessReturns:  true,
	}
}

func (p Permissions) Allows(c Capability) bool {
	switch c {
	case CapManageProducts:
		return p.CanManageProducts
	case CapViewReports:
		return p.CanViewReports
	case CapManagePurchases:
		return p.CanManagePurchases
	case CapProcessReturns:
		return p.CanProcessReturns
	default:
		return false
	}
}

type User struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	Password    string       `json:"password"`
	Role        Role         `json:"role"`
	Permissions *Permissions `json:"permissions,omitempty"`
}

// UnmarshalJSON accepts browser-era snapshots: a numeric id and the
// password under password_DO_NOT_STORE_IN_PRODUCTION.
func (u *User) UnmarshalJSON(data []byte) error {
	type stored User
	var raw struct {
		stored
		ID             json.RawMessage `json:"id"`
		LegacyPassword string          `json:"password_DO_NOT_STORE_IN_PRODUCTION"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := decodeUserID(raw.ID)
	if err != nil {
		return err
	}
	*u = User(raw.stored)
	u.ID = id
	if u.Password == "" {
		u.Password = raw.LegacyPassword
	}
	return nil
}

func decodeUserID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var id string
		err := json.Unmarshal(raw, &id)
		return id, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("user id: %w", err)
	}
	return n.String(), nil
}

// EffectivePermissions ignores stored flags for admins; a user without
// stored flags has none.
func (u User) EffectivePermissions() Permissions {
	if u.Role == RoleAdmin {
		return AllPermissions()
	}
	if u.Permissions == nil {
		return Permissions{}
	}
	return *u.Permissions
}

func (u User) Can(c Capability) bool {
	return u.EffectivePermissions().Allows(c)
}

type UserView struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Role        Role        `json:"role"`
	Permissions Permissions `json:"permissions"`
}

func (u User) View() UserView {
	return UserView{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Permissions: u.EffectivePermissions(),
	}
}
