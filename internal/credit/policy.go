package credit

import "github.com/shopspring/decimal"

// ProportionalRelease returns how much credit a return gives back: the credit
// share of the returned amount, capped by what has not been released yet.
func ProportionalRelease(creditUsed, alreadyReleased, returnedAmount, orderTotal decimal.Decimal) decimal.Decimal {
	remaining := creditUsed.Sub(alreadyReleased)
	if !remaining.IsPositive() || !orderTotal.IsPositive() || !returnedAmount.IsPositive() {
		return decimal.Zero
	}
	share := creditUsed.Mul(returnedAmount).Div(orderTotal).Round(2)
	return decimal.Min(remaining, share)
}
