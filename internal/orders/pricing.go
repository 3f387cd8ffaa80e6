package orders

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
)

// TaxPolicy decides whether catalog prices already contain tax.
type TaxPolicy string

const (
	// TaxPerProduct honours each product's tax_included flag.
	TaxPerProduct TaxPolicy = "per_product"
	TaxInclusive  TaxPolicy = "inclusive"
	TaxExclusive  TaxPolicy = "exclusive"
)

func ParseTaxPolicy(value string) (TaxPolicy, error) {
	switch TaxPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", TaxPerProduct:
		return TaxPerProduct, nil
	case TaxInclusive:
		return TaxInclusive, nil
	case TaxExclusive:
		return TaxExclusive, nil
	}
	return "", fmt.Errorf("invalid tax policy %q", value)
}

func (p TaxPolicy) includesTax(product models.Product) bool {
	switch p {
	case TaxInclusive:
		return true
	case TaxExclusive:
		return false
	default:
		return product.TaxIncluded
	}
}

// Totals are the order-level sums of priced lines.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

var one = decimal.NewFromInt(1)

// PriceLine computes one line. gross = qty x price and base = gross - discount.
// Inclusive prices carve the tax out of base; exclusive prices add it on top.
func PriceLine(policy TaxPolicy, product models.Product, input LineInput) (models.OrderLine, error) {
	if input.Quantity <= 0 {
		return models.OrderLine{}, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity for %s must be positive", product.Code)
	}
	price := product.SalePrice
	if input.Wholesale && product.WholesalePrice.Valid {
		price = product.WholesalePrice.Decimal
	}
	if input.UnitPrice != nil {
		price = *input.UnitPrice
	}
	price = price.Round(2)
	if price.IsNegative() {
		return models.OrderLine{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unit price for %s cannot be negative", product.Code)
	}
	discount := input.Discount.Round(2)
	if discount.IsNegative() {
		return models.OrderLine{}, pkgerrors.Newf(pkgerrors.CodeValidation, "discount for %s cannot be negative", product.Code)
	}

	gross := price.Mul(decimal.NewFromInt(int64(input.Quantity))).Round(2)
	if discount.GreaterThan(gross) {
		return models.OrderLine{}, pkgerrors.Newf(pkgerrors.CodeValidation, "discount for %s exceeds line amount", product.Code).
			WithDetails(map[string]any{"product_id": product.ID, "gross": gross.StringFixed(2), "discount": discount.StringFixed(2)})
	}
	base := gross.Sub(discount)

	included := policy.includesTax(product)
	var tax, total decimal.Decimal
	if included {
		tax = base.Sub(base.Div(one.Add(product.TaxRate))).Round(2)
		total = base
	} else {
		tax = base.Mul(product.TaxRate).Round(2)
		total = base.Add(tax)
	}

	return models.OrderLine{
		ProductID:   product.ID,
		Quantity:    input.Quantity,
		UnitPrice:   price,
		UnitCost:    product.CostPrice,
		Discount:    discount,
		TaxRate:     product.TaxRate,
		TaxIncluded: included,
		TaxAmount:   tax,
		Subtotal:    total,
		TrackStock:  product.TrackStock,
	}, nil
}

// PriceOrder prices every line in request order and sums the totals.
func PriceOrder(policy TaxPolicy, products map[uuid.UUID]models.Product, inputs []LineInput) ([]models.OrderLine, Totals, error) {
	totals := Totals{Subtotal: decimal.Zero, Discount: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
	if len(inputs) == 0 {
		return nil, totals, pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}
	lines := make([]models.OrderLine, 0, len(inputs))
	for i, input := range inputs {
		product, ok := products[input.ProductID]
		if !ok {
			return nil, totals, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s not found", input.ProductID)
		}
		line, err := PriceLine(policy, product, input)
		if err != nil {
			return nil, totals, err
		}
		line.Position = i + 1
		lines = append(lines, line)

		totals.Subtotal = totals.Subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		totals.Discount = totals.Discount.Add(line.Discount)
		totals.Tax = totals.Tax.Add(line.TaxAmount)
		totals.Total = totals.Total.Add(line.Subtotal)
	}
	totals.Subtotal = totals.Subtotal.Round(2)
	return lines, totals, nil
}
