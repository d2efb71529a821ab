package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultImageURL = "https://storage.googleapis.com/aistudio-apps/demos/pos/placeholder.png"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type TransactionType string

const (
	TransactionSale   TransactionType = "sale"
	TransactionReturn TransactionType = "return"
)

type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url"`
	IsTaxable bool            `json:"is_taxable"`
	Stock     int             `json:"stock"`
}

type ProductInput struct {
	ID        string          `json:"id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"gt=0"`
	ImageURL  string          `json:"image_url"`
	IsTaxable bool            `json:"is_taxable"`
	Stock     int             `json:"stock" validate:"gte=0"`
}

type CartLine struct {
	Product
	Quantity int `json:"quantity"`
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

type Cart struct {
	Lines  []CartLine `json:"lines"`
	Totals Totals     `json:"totals"`
}

type TransactionLine struct {
	CartLine
	Returned int `json:"returned"`
}

func (l TransactionLine) Returnable() int {
	left := l.Quantity - l.Returned
	if left < 0 {
		return 0
	}
	return left
}

type Transaction struct {
	ID                    string            `json:"id"`
	Date                  time.Time         `json:"date"`
	Type                  TransactionType   `json:"type"`
	OriginalTransactionID string            `json:"original_transaction_id,omitempty"`
	Items                 []TransactionLine `json:"items"`
	Total                 decimal.Decimal   `json:"total"`
	AmountReceived        *decimal.Decimal  `json:"amount_received,omitempty"`
	ChangeDue             *decimal.Decimal  `json:"change_due,omitempty"`
}

type ReceiptLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	NewStock  int    `json:"new_stock"`
}

type Actor struct {
	Username string
	Role     Role
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	ExpiresAt   string   `json:"expires_at"`
	User        UserView `json:"user"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

type ProductSales struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type PeriodReport struct {
	Period           Period          `json:"period"`
	Reference        string          `json:"reference"`
	NetRevenue       decimal.Decimal `json:"net_revenue"`
	TransactionCount int             `json:"transaction_count"`
	SaleCount        int             `json:"sale_count"`
	ReturnCount      int             `json:"return_count"`
	Products         []ProductSales  `json:"products"`
}

type SalesExportRow struct {
	TransactionID         string           `json:"transaction_id"`
	Type                  TransactionType  `json:"type"`
	OriginalTransactionID string           `json:"original_transaction_id,omitempty"`
	At                    time.Time        `json:"at"`
	ProductID             string           `json:"product_id"`
	Name                  string           `json:"name"`
	Quantity              int              `json:"quantity"`
	UnitPrice             decimal.Decimal  `json:"unit_price"`
	LineTotal             decimal.Decimal  `json:"line_total"`
	InvoiceTotal          decimal.Decimal  `json:"invoice_total"`
	AmountReceived        *decimal.Decimal `json:"amount_received,omitempty"`
	ChangeDue             *decimal.Decimal `json:"change_due,omitempty"`
}

type StockRow struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

// ImportRow is one spreadsheet row before validation. Row is the 1-based
// sheet row the values came from.
type ImportRow struct {
	Row      int    `json:"row"`
	Barcode  string `json:"barcode"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Stock    string `json:"stock"`
	ImageURL string `json:"image_url"`
	Taxable  string `json:"taxable"`
}

type ImportError struct {
	Row     int       `json:"row"`
	Data    ImportRow `json:"data"`
	Message string    `json:"message"`
}

type ImportResult struct {
	Valid     []Product     `json:"valid"`
	Errors    []ImportError `json:"errors"`
	Committed bool          `json:"committed"`
}
