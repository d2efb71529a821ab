package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"kasirpos/internal/domain"
	"kasirpos/internal/service"
	"kasirpos/internal/sheet"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type checkoutRequest struct {
	AmountReceived decimal.Decimal `json:"amount_received"`
}

type quantitiesRequest struct {
	Items map[string]int `json:"items"`
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(c *gin.Context) {
	if !a.loginLimiter.Allow(c.ClientIP()) {
		writeError(c, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}
	var req domain.LoginRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	resp, err := a.auth.Login(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) handleLogout(c *gin.Context) {
	if err := a.service.Logout(c.Request.Context()); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleMe(c *gin.Context) {
	me, err := a.service.Me(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": me})
}

func (a *API) handleListProducts(c *gin.Context) {
	products := a.service.ListProducts(c.Request.Context(), c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (a *API) handleGetProduct(c *gin.Context) {
	product, err := a.service.GetProduct(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func (a *API) handleCreateProduct(c *gin.Context) {
	var req domain.ProductInput
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.AddProduct(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

func (a *API) handleUpdateProduct(c *gin.Context) {
	var req domain.ProductInput
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.EditProduct(c.Request.Context(), c.Param("barcode"), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// handleImportProducts validates an uploaded workbook. Valid rows are only
// added when commit=true.
func (a *API) handleImportProducts(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, errors.New("file is required"))
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		writeError(c, http.StatusBadRequest, errors.New("only .xlsx files are accepted"))
		return
	}
	file, err := header.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	rows, err := sheet.ReadProductRows(file)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	commit, _ := strconv.ParseBool(c.DefaultQuery("commit", "false"))
	var result domain.ImportResult
	if commit {
		result, err = a.service.ImportProducts(c.Request.Context(), rows)
	} else {
		result, err = a.service.ValidateImport(c.Request.Context(), rows)
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) handleCart(c *gin.Context) {
	cart, err := a.service.Cart(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (a *API) handleClearCart(c *gin.Context) {
	if err := a.service.ClearCart(c.Request.Context()); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleAddCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	cart, err := a.service.AddToCart(c.Request.Context(), req.ProductID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (a *API) handleUpdateCartItem(c *gin.Context) {
	var req cartQuantityRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	cart, err := a.service.UpdateCartQuantity(c.Request.Context(), c.Param("barcode"), req.Quantity)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (a *API) handleRemoveCartItem(c *gin.Context) {
	cart, err := a.service.RemoveFromCart(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (a *API) handleSuggestion(c *gin.Context) {
	result, err := a.service.Suggestion(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) handleCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.Checkout(c.Request.Context(), req.AmountReceived)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": sale})
}

func (a *API) handleFindSale(c *gin.Context) {
	sale, err := a.service.FindReturnableSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": sale})
}

func (a *API) handleProcessReturn(c *gin.Context) {
	var req quantitiesRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	ret, err := a.service.ProcessReturn(c.Request.Context(), c.Param("id"), req.Items)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": ret})
}

func (a *API) handlePurchase(c *gin.Context) {
	var req quantitiesRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	lines, err := a.service.ReceivePurchaseInvoice(c.Request.Context(), req.Items)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": lines})
}

func (a *API) handlePeriodReport(c *gin.Context) {
	period, err := service.ParsePeriod(c.Query("period"))
	if err != nil {
		a.fail(c, err)
		return
	}
	ref, err := a.parseDate(c.Query("date"), time.Now())
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	report, err := a.service.PeriodReport(c.Request.Context(), period, ref)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *API) handleSalesExport(c *gin.Context) {
	from, err := a.parseDate(c.Query("from"), time.Time{})
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	to, err := a.parseDate(c.Query("to"), time.Time{})
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if from.IsZero() || to.IsZero() {
		writeError(c, http.StatusBadRequest, errors.New("from and to dates are required"))
		return
	}

	rows, err := a.service.SalesExport(c.Request.Context(), from, to)
	if err != nil {
		a.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := sheet.WriteSales(&buf, rows, a.service.Location()); err != nil {
		a.fail(c, err)
		return
	}
	name := fmt.Sprintf("sales_%s_%s.xlsx", from.Format("2006-01-02"), to.Format("2006-01-02"))
	a.sendWorkbook(c, name, buf.Bytes())
}

func (a *API) handleStockExport(c *gin.Context) {
	rows, err := a.service.StockSnapshot(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := sheet.WriteStock(&buf, rows); err != nil {
		a.fail(c, err)
		return
	}
	name := fmt.Sprintf("stock_%s.xlsx", time.Now().In(a.service.Location()).Format("2006-01-02"))
	a.sendWorkbook(c, name, buf.Bytes())
}

func (a *API) sendWorkbook(c *gin.Context, name string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, sheet.ContentType, body)
}

// parseDate reads a YYYY-MM-DD query value in the store timezone.
func (a *API) parseDate(raw string, fallback time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, a.service.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

func (a *API) handleListUsers(c *gin.Context) {
	users, err := a.service.ListUsers(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (a *API) handleCreateUser(c *gin.Context) {
	var req domain.UserCreateRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.AddUser(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (a *API) handleDeleteUser(c *gin.Context) {
	if err := a.service.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleSetPermissions(c *gin.Context) {
	var req domain.Permissions
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.SetPermissions(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (a *API) handleChangePassword(c *gin.Context) {
	var req domain.PasswordChangeRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	err := a.service.ChangePassword(c.Request.Context(), c.Param("id"), req)
	if errors.Is(err, service.ErrInvalidCredentials) {
		// The caller is signed in; a wrong current password is a bad request.
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
