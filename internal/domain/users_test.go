package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectivePermissionsAdminBypassesFlags(t *testing.T) {
	admin := User{Role: RoleAdmin, Permissions: &Permissions{}}
	for _, c := range []Capability{CapManageProducts, CapViewReports, CapManagePurchases, CapProcessReturns} {
		assert.True(t, admin.Can(c), c.String())
	}
}

func TestEffectivePermissionsUserDefaultsToNone(t *testing.T) {
	user := User{Role: RoleUser}
	assert.Equal(t, Permissions{}, user.EffectivePermissions())
	assert.False(t, user.Can(CapViewReports))

	user.Permissions = &Permissions{CanProcessReturns: true}
	assert.True(t, user.Can(CapProcessReturns))
	assert.False(t, user.Can(CapManageProducts))
}

func TestUserViewOmitsPassword(t *testing.T) {
	view := User{ID: "usr-1", Username: "kasir", Password: "$2a$secret", Role: RoleUser}.View()
	assert.Equal(t, "kasir", view.Username)
	assert.Equal(t, Permissions{}, view.Permissions)
}

func TestTransactionLineReturnable(t *testing.T) {
	line := TransactionLine{CartLine: CartLine{Quantity: 3}, Returned: 1}
	assert.Equal(t, 2, line.Returnable())
	line.Returned = 5
	assert.Equal(t, 0, line.Returnable())
}

func TestUserDecodesBrowserSnapshot(t *testing.T) {
	payload := `[
		{"id": 1, "username": "admin", "password_DO_NOT_STORE_IN_PRODUCTION": "admin123", "role": "admin"},
		{"id": 1712345678901, "username": "kasir", "password_DO_NOT_STORE_IN_PRODUCTION": "kasir123", "role": "user",
		 "permissions": {"canManageProducts": false, "canViewReports": true, "canManagePurchases": false, "canProcessReturns": true}}
	]`
	var users []User
	require.NoError(t, json.Unmarshal([]byte(payload), &users))
	require.Len(t, users, 2)

	assert.Equal(t, "1", users[0].ID)
	assert.Equal(t, "admin123", users[0].Password)
	assert.Equal(t, RoleAdmin, users[0].Role)

	assert.Equal(t, "1712345678901", users[1].ID)
	assert.Equal(t, "kasir123", users[1].Password)
	require.NotNil(t, users[1].Permissions)
	assert.Equal(t, Permissions{CanViewReports: true, CanProcessReturns: true}, *users[1].Permissions)
}

func TestUserJSONRoundTripKeepsCurrentFormat(t *testing.T) {
	in := User{ID: "usr-1", Username: "siti", Password: "$2a$10$hash", Role: RoleUser, Permissions: &Permissions{CanManagePurchases: true}}
	payload, err := json.Marshal(in)
	require.NoError(t, err)

	var out User
	require.NoError(t, json.Unmarshal(payload, &out))
	assert.Equal(t, in, out)
}

func TestPermissionsRejectUnknownKeys(t *testing.T) {
	var p Permissions
	assert.Error(t, json.Unmarshal([]byte(`{"can_delete_everything": true}`), &p))
}
