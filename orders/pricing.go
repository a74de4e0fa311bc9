package orders

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/apperr"
	"storefront/models"
)

var (
	TaxPrice      = decimal.NewFromInt(10)
	ShippingPrice = decimal.Zero
)

type Pricing struct {
	Items    decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// ParsePrice reads a line item price. Non-numeric and negative prices are
// rejected rather than coerced.
func ParsePrice(p models.PriceText) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(p))
	if s == "" {
		return decimal.Zero, apperr.New(apperr.Validation, "price is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperr.Wrap(apperr.Validation, "price must be a number", err)
	}
	if d.IsNegative() {
		return decimal.Zero, apperr.New(apperr.Validation, "price must not be negative")
	}
	return d, nil
}

// CanonicalPrice renders d with at least two decimal places.
func CanonicalPrice(d decimal.Decimal) models.PriceText {
	if d.Exponent() < -2 {
		return models.PriceText(d.String())
	}
	return models.PriceText(d.StringFixed(2))
}

// ItemsTotal sums price × qty over items. An empty list totals zero.
func ItemsTotal(items []models.LineItem) (decimal.Decimal, error) {
	total := decimal.Zero
	for i, it := range items {
		price, err := ParsePrice(it.Price)
		if err != nil {
			return decimal.Zero, apperr.Wrap(apperr.Validation, fmt.Sprintf("orderItems[%d]: %s", i, apperr.Message(err)), err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return total, nil
}

func Price(items []models.LineItem) (Pricing, error) {
	itemsPrice, err := ItemsTotal(items)
	if err != nil {
		return Pricing{}, err
	}
	return Pricing{
		Items:    itemsPrice,
		Tax:      TaxPrice,
		Shipping: ShippingPrice,
		Total:    itemsPrice.Add(TaxPrice).Add(ShippingPrice),
	}, nil
}

// UnitAmountCents converts a price into the smallest currency unit.
func UnitAmountCents(p models.PriceText) (int64, error) {
	d, err := ParsePrice(p)
	if err != nil {
		return 0, err
	}
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}
