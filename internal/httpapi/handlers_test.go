package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"kasirpos/internal/domain"
	"kasirpos/internal/service"
	"kasirpos/internal/sheet"
	"kasirpos/internal/store/memory"
)

const (
	noodles = "8991001000011"
	milk    = "8991001000035"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, _ := test.NewNullLogger()
	svc := service.New(memory.New(), service.Options{
		Logger:       logger,
		Location:     time.UTC,
		PasswordCost: bcrypt.MinCost,
	})
	require.NoError(t, svc.Load(context.Background()))
	auth := NewAuthManager("test-secret-key", time.Hour, svc)

	return New(svc, auth, "*", logger)
}

func do(t *testing.T, h http.Handler, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func decode[T any](t *testing.T, res *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out), res.Body.String())
	return out
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	res := do(t, api.Handler(), http.MethodGet, "/healthz", "", nil)

	require.Equal(t, http.StatusOK, res.Code)
	body := decode[map[string]any](t, res)
	assert.Equal(t, true, body["ok"])
}

func TestHandleLogin(t *testing.T) {
	api := newTestAPI(t)
	h := api.Handler()

	res := do(t, h, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "admin123"})
	require.Equal(t, http.StatusOK, res.Code)
	payload := decode[domain.LoginResponse](t, res)
	assert.NotEmpty(t, payload.AccessToken)
	assert.Equal(t, domain.RoleAdmin, payload.User.Role)
	assert.True(t, payload.User.Permissions.CanViewReports)

	wrongPassword := do(t, h, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "nope"})
	unknownUser := do(t, h, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "ghost", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())

	res = do(t, h, http.MethodGet, "/api/v1/auth/me", payload.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"username":"admin"`)
}

func TestCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)
	h := api.Handler()
	token := login(t, api, "user", "user123")

	res := do(t, h, http.MethodPost, "/api/v1/checkout", token, checkoutRequest{AmountReceived: decimal.NewFromInt(10)})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	for _, id := range []string{noodles, noodles, milk} {
		res = do(t, h, http.MethodPost, "/api/v1/cart/items", token, addCartItemRequest{ProductID: id})
		require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	}
	cart := decode[domain.Cart](t, res)
	require.Len(t, cart.Lines, 2)
	assert.True(t, decimal.RequireFromString("25.90").Equal(cart.Totals.Subtotal), cart.Totals.Subtotal.String())
	assert.True(t, decimal.RequireFromString("28.546").Equal(cart.Totals.Total), cart.Totals.Total.String())

	res = do(t, h, http.MethodPost, "/api/v1/cart/items", token, addCartItemRequest{ProductID: "missing"})
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = do(t, h, http.MethodPatch, "/api/v1/cart/items/"+milk, token, cartQuantityRequest{Quantity: 1000})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = do(t, h, http.MethodPost, "/api/v1/checkout", token, checkoutRequest{AmountReceived: decimal.NewFromInt(20)})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = do(t, h, http.MethodPost, "/api/v1/checkout", token, checkoutRequest{AmountReceived: decimal.NewFromInt(30)})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	sale := decode[struct {
		Transaction domain.Transaction `json:"transaction"`
	}](t, res).Transaction
	assert.Equal(t, domain.TransactionSale, sale.Type)
	require.NotNil(t, sale.ChangeDue)
	assert.True(t, decimal.RequireFromString("1.454").Equal(*sale.ChangeDue))

	res = do(t, h, http.MethodGet, "/api/v1/products/"+noodles, token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"stock":118`)

	res = do(t, h, http.MethodGet, "/api/v1/cart", token, nil)
	assert.Empty(t, decode[domain.Cart](t, res).Lines)

	res = do(t, h, http.MethodGet, "/api/v1/returns/"+sale.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	admin := loginAsAdmin(t, api)
	res = do(t, h, http.MethodPost, "/api/v1/returns/"+sale.ID, admin, quantitiesRequest{Items: map[string]int{noodles: 5}})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"type":"return"`)

	res = do(t, h, http.MethodPost, "/api/v1/returns/"+sale.ID, admin, quantitiesRequest{Items: map[string]int{noodles: 1}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
}

func TestCashierPermissionsAreEnforced(t *testing.T) {
	api := newTestAPI(t)
	h := api.Handler()
	cashier := login(t, api, "user", "user123")
	admin := loginAsAdmin(t, api)

	res := do(t, h, http.MethodGet, "/api/v1/reports/period?period=day", cashier, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = do(t, h, http.MethodPost, "/api/v1/purchases", cashier, quantitiesRequest{Items: map[string]int{noodles: 1}})
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = do(t, h, http.MethodGet, "/api/v1/users", cashier, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = do(t, h, http.MethodPut, "/api/v1/users/2/permissions", admin, domain.Permissions{CanManagePurchases: true})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = do(t, h, http.MethodPost, "/api/v1/purchases", cashier, quantitiesRequest{Items: map[string]int{noodles: 5}})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"new_stock":125`)
}

func TestProductManagement(t *testing.T) {
	api := newTestAPI(t)
	h := api.Handler()
	admin := loginAsAdmin(t, api)

	input := domain.ProductInput{ID: "123", Name: "Kurma", Price: decimal.NewFromInt(40), Stock: 2}
	res := do(t, h, http.MethodPost, "/api/v1/products", admin, input)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	res = do(t, h, http.MethodPost, "/api/v1/products", admin, input)
	assert.Equal(t, http.StatusConflict, res.Code)

	input.Price = decimal.Zero
	res = do(t, h, http.MethodPut, "/api/v1/products/123", admin, input)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	input.Price = decimal.NewFromInt(45)
	res = do(t, h, http.MethodPut, "/api/v1/products/123", admin, input)
	require.Equal(t, http.StatusOK, res.Code)

	res = do(t, h, http.MethodGet, "/api/v1/products?q=kurma", admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"price":"45"`)
}

func uploadWorkbook(t *testing.T, h http.Handler, token string, commit bool, rows [][]any) *httptest.ResponseRecorder {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var xlsx bytes.Buffer
	_, err := f.WriteTo(&xlsx)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "products.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	path := "/api/v1/products/import"
	if commit {
		path += "?commit=true"
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestImportProducts(t *testing.T) {
	api := newTestAPI(t)
	h := api.Handler()
	admin := loginAsAdmin(t, api)
	rows := [][]any{
		{"الباركود", "اسم المنتج", "السعر", "الرصيد", "خاضع للضريبة"},
		{"700", "تمر", "22.5", 10, "نعم"},
		{noodles, "Duplicate", "1", 1, ""},
	}

	res := uploadWorkbook(t, h, admin, false, rows)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	preview := decode[domain.ImportResult](t, res)
	assert.False(t, preview.Committed)
	assert.Len(t, preview.Valid, 1)
	require.Len(t, preview.Errors, 1)
	assert.Equal(t, 3, preview.Errors[0].Row)

	res = do(t, h, http.MethodGet, "/api/v1/products/700", admin, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = uploadWorkbook(t, h, admin, true, rows)
	require.Equal(t, http.StatusOK, res.Code)
	assert.True(t, decode[domain.ImportResult](t, res).Committed)

	res = do(t, h, http.MethodGet, "/api/v1/products/700", admin, nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestReportExports(t *testing.T) {
	api := newTestAPI(t)
	h := api.Handler()
	admin := loginAsAdmin(t, api)

	res := do(t, h, http.MethodGet, "/api/v1/reports/stock.xlsx", admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, sheet.ContentType, res.Header().Get("Content-Type"))
	assert.Contains(t, res.Header().Get("Content-Disposition"), "stock_")

	today := time.Now().UTC().Format("2006-01-02")
	res = do(t, h, http.MethodGet, "/api/v1/reports/sales.xlsx?from="+today+"&to="+today, admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = do(t, h, http.MethodPost, "/api/v1/cart/items", admin, addCartItemRequest{ProductID: noodles})
	require.Equal(t, http.StatusOK, res.Code)
	res = do(t, h, http.MethodPost, "/api/v1/checkout", admin, checkoutRequest{AmountReceived: decimal.NewFromInt(5)})
	require.Equal(t, http.StatusOK, res.Code)

	res = do(t, h, http.MethodGet, "/api/v1/reports/sales.xlsx?from="+today+"&to="+today, admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	f, err := excelize.OpenReader(bytes.NewReader(res.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows(sheet.SalesSheet)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	res = do(t, h, http.MethodGet, "/api/v1/reports/sales.xlsx?from=2025-02-01&to=2025-01-01", admin, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	res = do(t, h, http.MethodGet, "/api/v1/reports/sales.xlsx", admin, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = do(t, h, http.MethodGet, "/api/v1/reports/period?period=day&date="+today, admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	report := decode[domain.PeriodReport](t, res)
	assert.Equal(t, 1, report.SaleCount)
}

func TestUserManagementRoutes(t *testing.T) {
	api := newTestAPI(t)
	h := api.Handler()
	admin := loginAsAdmin(t, api)

	res := do(t, h, http.MethodPost, "/api/v1/users", admin, domain.UserCreateRequest{Username: "budi", Password: strings.Repeat("p", 80)})
	assert.Equal(t, http.StatusBadRequest, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), "at most 72 bytes")

	res = do(t, h, http.MethodPost, "/api/v1/users", admin, domain.UserCreateRequest{Username: "siti", Password: "rahasia"})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	created := decode[struct {
		User domain.UserView `json:"user"`
	}](t, res).User

	res = do(t, h, http.MethodDelete, "/api/v1/users/1", admin, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	siti := login(t, api, "siti", "rahasia")
	res = do(t, h, http.MethodPut, "/api/v1/users/"+created.ID+"/password", siti, domain.PasswordChangeRequest{
		CurrentPassword: "salah", NewPassword: "baru123", ConfirmPassword: "baru123",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	res = do(t, h, http.MethodPut, "/api/v1/users/"+created.ID+"/password", siti, domain.PasswordChangeRequest{
		CurrentPassword: "rahasia", NewPassword: "baru123", ConfirmPassword: "baru123",
	})
	assert.Equal(t, http.StatusNoContent, res.Code)

	res = do(t, h, http.MethodDelete, "/api/v1/users/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, res.Code)

	res = do(t, h, http.MethodGet, "/api/v1/cart", siti, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	api := newTestAPI(t)
	res := do(t, api.Handler(), http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Contains(t, res.Body.String(), "route not found")
}
