package paapi

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PricePolicy decides which offer provides the current price of a product.
type PricePolicy int

const (
	// Price of the buy box winner only, absent when there is none
	PolicyBuyBox PricePolicy = iota

	// Lowest price across all offers of both schemas
	PolicyLowestPrice
)

var hundred = decimal.NewFromInt(100)

func (pp PricePolicy) String() string {
	switch pp {
	case PolicyBuyBox:
		return "buybox"
	case PolicyLowestPrice:
		return "lowest"
	}
	return "unknown"
}

// ParsePricePolicy accepts "buybox" (or an empty string) and "lowest".
func ParsePricePolicy(name string) (PricePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "buybox", "buy_box", "buy-box":
		return PolicyBuyBox, nil
	case "lowest", "lowest_price", "lowest-price":
		return PolicyLowestPrice, nil
	}
	return PolicyBuyBox, fmt.Errorf("unknown price policy %q", name)
}

// BuyBoxOffer returns the first offer flagged as buy box winner.
func (p *Product) BuyBoxOffer() (Offer, bool) {
	for _, offer := range p.Offers() {
		if offer.IsBuyBoxWinner() {
			return offer, true
		}
	}
	return Offer{}, false
}

// LowestPriceOffer returns the cheapest offer carrying a price; ties are
// resolved in favor of the offer found first.
func (p *Product) LowestPriceOffer() (Offer, bool) {
	var lowest Offer
	var lowestPrice Price
	var found bool
	for _, offer := range p.Offers() {
		price, ok := offer.Price()
		if !ok {
			continue
		}
		if !found || price.Amount.LessThan(lowestPrice.Amount) {
			lowest = offer
			lowestPrice = price
			found = true
		}
	}
	return lowest, found
}

// SelectedOffer returns the offer chosen by the product price policy.
func (p *Product) SelectedOffer() (Offer, bool) {
	if p.policy == PolicyLowestPrice {
		return p.LowestPriceOffer()
	}
	return p.BuyBoxOffer()
}

// Price returns the current price of the selected offer.
func (p *Product) Price() (Price, bool) {
	offer, found := p.SelectedOffer()
	if !found {
		return Price{}, false
	}
	return offer.Price()
}

// OriginalPrice returns the pre-discount price. The saving basis of the
// selected offer wins when it exceeds the current price, then the highest
// summary price exceeding it; otherwise the current price is returned.
func (p *Product) OriginalPrice() (Price, bool) {
	current, found := p.Price()
	if !found {
		return Price{}, false
	}

	offer, _ := p.SelectedOffer()
	basis, found := offer.SavingBasis()
	if found && basis.Amount.GreaterThan(current.Amount) {
		return basis, true
	}

	highest, found := p.highestSummaryPrice()
	if found && highest.Amount.GreaterThan(current.Amount) {
		return highest, true
	}

	return current, true
}

func (p *Product) highestSummaryPrice() (Price, bool) {
	var highest Price
	var found bool

	summaries, _ := digSlice(p.data, "Offers", "Summaries")
	for _, summary := range summaries {
		obj, _ := digMap(summary, "HighestPrice")
		price, ok := priceFromRaw(obj)
		if !ok {
			continue
		}
		if !found || price.Amount.GreaterThan(highest.Amount) {
			highest = price
			found = true
		}
	}

	return highest, found
}

// DiscountAmount returns original minus current price, absent unless
// strictly positive.
func (p *Product) DiscountAmount() (Price, bool) {
	current, found := p.Price()
	if !found {
		return Price{}, false
	}
	original, found := p.OriginalPrice()
	if !found {
		return Price{}, false
	}

	diff := original.Amount.Sub(current.Amount)
	if !diff.IsPositive() {
		return Price{}, false
	}

	return Price{
		Amount:   diff,
		Currency: current.Currency,
	}, true
}

// DiscountPercentage returns the discount relative to the original price,
// rounded half away from zero to one decimal.
func (p *Product) DiscountPercentage() (decimal.Decimal, bool) {
	discount, found := p.DiscountAmount()
	if !found {
		return decimal.Zero, false
	}
	original, _ := p.OriginalPrice()
	if original.Amount.IsZero() {
		return decimal.Zero, false
	}

	return discount.Amount.Div(original.Amount).Mul(hundred).Round(1), true
}

// HasPrimeOffer reports whether any offer is Prime exclusive or eligible.
func (p *Product) HasPrimeOffer() bool {
	for _, offer := range p.Offers() {
		if offer.IsPrime() {
			return true
		}
	}
	return false
}

// IsInStock reports whether any offer is available now.
func (p *Product) IsInStock() bool {
	for _, offer := range p.Offers() {
		if offer.InStock() {
			return true
		}
	}
	return false
}

func (p *Product) DealInfo() (map[string]interface{}, bool) {
	offer, found := p.SelectedOffer()
	if !found {
		return nil, false
	}
	return offer.DealDetails()
}

func (p *Product) dealField(name string) (string, bool) {
	deal, found := p.DealInfo()
	if !found {
		return "", false
	}
	return digString(deal, name)
}

func (p *Product) DealBadge() (string, bool) {
	return p.dealField("Badge")
}

func (p *Product) DealStartTime() (string, bool) {
	return p.dealField("StartTime")
}

func (p *Product) DealEndTime() (string, bool) {
	return p.dealField("EndTime")
}

func (p *Product) IsPrimeExclusiveDeal() bool {
	access, _ := p.dealField("AccessType")
	return access == "PRIME_EXCLUSIVE"
}

// HasActiveDeal is true when the selected offer carries deal details or
// a discount can be computed.
func (p *Product) HasActiveDeal() bool {
	_, found := p.DealInfo()
	if found {
		return true
	}
	_, found = p.DiscountAmount()
	return found
}

// SavingsBasisType returns the kind of reference price, such as
// LIST_PRICE or LOWEST_PRICE_STRIKETHROUGH.
func (p *Product) SavingsBasisType() (string, bool) {
	offer, found := p.SelectedOffer()
	if !found {
		return "", false
	}
	return offer.savingBasisField("SavingBasisType")
}

func (p *Product) SavingsBasisTypeLabel() (string, bool) {
	offer, found := p.SelectedOffer()
	if !found {
		return "", false
	}
	return offer.savingBasisField("SavingBasisTypeLabel")
}

func (p *Product) Availability() (string, bool) {
	offer, found := p.SelectedOffer()
	if !found {
		return "", false
	}
	return offer.AvailabilityMessage()
}

func (p *Product) Condition() (string, bool) {
	offer, found := p.SelectedOffer()
	if !found {
		return "", false
	}
	return offer.Condition()
}

func (p *Product) MerchantInfo() (map[string]interface{}, bool) {
	offer, found := p.SelectedOffer()
	if !found {
		return nil, false
	}
	return offer.MerchantInfo()
}

func (p *Product) DeliveryInfo() (map[string]interface{}, bool) {
	offer, found := p.SelectedOffer()
	if !found {
		return nil, false
	}
	return offer.DeliveryInfo()
}
