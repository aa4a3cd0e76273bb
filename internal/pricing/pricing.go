// Package pricing computes order totals. All functions are pure: no I/O,
// no clock, decimal arithmetic only. Callers load cart/wallet state and
// pass it in.
package pricing

import "github.com/shopspring/decimal"

// Rates holds the pricing policy knobs. Values come from configuration;
// Default matches the current storefront policy.
type Rates struct {
	TaxRate decimal.Decimal
	// CheckoutCoinRate is the currency value of one coin when spent at
	// checkout. RedeemCoinRate (used by the wallet redemption flow, not
	// here) is intentionally a different rate; do not unify them.
	CheckoutCoinRate decimal.Decimal
	FreeShippingMin  decimal.Decimal
	ShippingStandard decimal.Decimal
	ShippingExpress  decimal.Decimal
	WrapBasic        decimal.Decimal
	WrapPremium      decimal.Decimal
	WrapLuxury       decimal.Decimal
	// EarnDivisor: one coin earned per EarnDivisor currency units of the
	// final total.
	EarnDivisor decimal.Decimal
}

// Default returns the stock rate card (5% VAT, 1:1 checkout coins,
// free shipping over 200, 1 coin per 10 spent).
func Default() Rates {
	return Rates{
		TaxRate:          decimal.NewFromFloat(0.05),
		CheckoutCoinRate: decimal.NewFromInt(1),
		FreeShippingMin:  decimal.NewFromInt(200),
		ShippingStandard: decimal.NewFromInt(15),
		ShippingExpress:  decimal.NewFromInt(25),
		WrapBasic:        decimal.NewFromInt(10),
		WrapPremium:      decimal.NewFromInt(20),
		WrapLuxury:       decimal.NewFromInt(35),
		EarnDivisor:      decimal.NewFromInt(10),
	}
}

// Item is one order line.
type Item struct {
	UnitPrice decimal.Decimal
	Quantity  int64
}

// Input is everything a quote depends on.
type Input struct {
	Items          []Item
	DeliveryFee    decimal.Decimal
	GiftWrapFee    decimal.Decimal
	CouponDiscount decimal.Decimal
	CoinsToUse     int64
	CoinBalance    int64
}

// Quote is the computed price breakdown.
type Quote struct {
	Subtotal       decimal.Decimal
	CouponDiscount decimal.Decimal
	CoinsDiscount  decimal.Decimal
	Discount       decimal.Decimal
	ShippingFee    decimal.Decimal
	GiftWrapFee    decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	CoinsUsed      int64
	CoinsEarned    int64
}

// Compute prices an order. Coins may cover at most half of the
// post-coupon subtotal; CoinsUsed is rounded down and the coin discount
// recomputed from it, so the discount never exceeds the coins consumed.
func Compute(r Rates, in Input) Quote {
	subtotal := decimal.Zero
	for _, it := range in.Items {
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
	}

	couponDiscount := in.CouponDiscount
	if couponDiscount.GreaterThan(subtotal) {
		couponDiscount = subtotal
	}
	if couponDiscount.IsNegative() {
		couponDiscount = decimal.Zero
	}

	coinRate := r.CheckoutCoinRate
	if !coinRate.IsPositive() {
		coinRate = decimal.NewFromInt(1)
	}

	// 金币最多抵扣券后小计的一半
	maxCoinsDiscount := subtotal.Sub(couponDiscount).Div(decimal.NewFromInt(2))
	coinsDiscount := decimal.NewFromInt(in.CoinsToUse).Mul(coinRate)
	if balanceValue := decimal.NewFromInt(in.CoinBalance).Mul(coinRate); coinsDiscount.GreaterThan(balanceValue) {
		coinsDiscount = balanceValue
	}
	if coinsDiscount.GreaterThan(maxCoinsDiscount) {
		coinsDiscount = maxCoinsDiscount
	}
	if coinsDiscount.IsNegative() {
		coinsDiscount = decimal.Zero
	}

	coinsUsed := coinsDiscount.Div(coinRate).Floor().IntPart()
	coinsDiscount = decimal.NewFromInt(coinsUsed).Mul(coinRate)

	discount := couponDiscount.Add(coinsDiscount)
	taxable := subtotal.Sub(discount).Add(in.DeliveryFee).Add(in.GiftWrapFee)
	tax := taxable.Mul(r.TaxRate).Round(2)
	total := taxable.Add(tax)

	earnDivisor := r.EarnDivisor
	if !earnDivisor.IsPositive() {
		earnDivisor = decimal.NewFromInt(10)
	}
	coinsEarned := total.Div(earnDivisor).Floor().IntPart()

	return Quote{
		Subtotal:       subtotal,
		CouponDiscount: couponDiscount,
		CoinsDiscount:  coinsDiscount,
		Discount:       discount,
		ShippingFee:    in.DeliveryFee,
		GiftWrapFee:    in.GiftWrapFee,
		Tax:            tax,
		Total:          total,
		CoinsUsed:      coinsUsed,
		CoinsEarned:    coinsEarned,
	}
}

// Delivery methods and gift-wrap tiers.
const (
	DeliveryStandard = "STANDARD"
	DeliveryExpress  = "EXPRESS"

	WrapNone    = ""
	WrapBasic   = "BASIC"
	WrapPremium = "PREMIUM"
	WrapLuxury  = "LUXURY"
)

// CheckoutShipping is the standard (cart) checkout policy: free over the
// threshold, flat tier otherwise.
func CheckoutShipping(r Rates, subtotal decimal.Decimal, method string) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(r.FreeShippingMin) {
		return decimal.Zero
	}
	return QuickShipping(r, method)
}

// QuickShipping is the quick-buy policy: flat tier regardless of subtotal.
func QuickShipping(r Rates, method string) decimal.Decimal {
	if method == DeliveryExpress {
		return r.ShippingExpress
	}
	return r.ShippingStandard
}

// GiftWrapFee maps a wrap tier to its flat fee; unknown tiers wrap free.
func GiftWrapFee(r Rates, tier string) decimal.Decimal {
	switch tier {
	case WrapBasic:
		return r.WrapBasic
	case WrapPremium:
		return r.WrapPremium
	case WrapLuxury:
		return r.WrapLuxury
	default:
		return decimal.Zero
	}
}
