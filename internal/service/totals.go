package service

import (
	"github.com/shopspring/decimal"

	"kasirpos/internal/domain"
)

var TaxRate = decimal.RequireFromString("0.14")

// ComputeTotals applies TaxRate to taxable lines only.
func ComputeTotals(lines []domain.CartLine) domain.Totals {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, line := range lines {
		amount := lineTotal(line.Price, line.Quantity)
		subtotal = subtotal.Add(amount)
		if line.IsTaxable {
			tax = tax.Add(amount.Mul(TaxRate))
		}
	}
	return domain.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

func lineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// refundFor is the tax-inclusive amount paid for qty units of line.
func refundFor(line domain.TransactionLine, qty int) decimal.Decimal {
	amount := lineTotal(line.Price, qty)
	if line.IsTaxable {
		amount = amount.Add(amount.Mul(TaxRate))
	}
	return amount
}
