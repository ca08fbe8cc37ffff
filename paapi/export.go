package paapi

import (
	"time"

	"github.com/shopspring/decimal"
)

// Export is the flat record of the resolved fields of a Product. Amounts
// are kept as decimals so that any export format reads back exactly.
type Export struct {
	ASIN         string `json:"asin"`
	Title        string `json:"title"`
	Brand        string `json:"brand,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Currency     string `json:"currency"`

	Price              decimal.NullDecimal `json:"price"`
	OriginalPrice      decimal.NullDecimal `json:"original_price"`
	DiscountAmount     decimal.NullDecimal `json:"discount_amount"`
	DiscountPercentage decimal.NullDecimal `json:"discount_percentage"`

	HasPrime         bool   `json:"has_prime"`
	InStock          bool   `json:"is_in_stock"`
	Availability     string `json:"availability,omitempty"`
	Condition        string `json:"condition,omitempty"`
	HasActiveDeal    bool   `json:"has_active_deal"`
	DealBadge        string `json:"deal_badge,omitempty"`
	SavingsBasisType string `json:"savings_basis_type,omitempty"`

	ImageURL      string `json:"image_url,omitempty"`
	DetailPageURL string `json:"detail_page_url,omitempty"`
}

// ExportInfo describes a batch of exports.
type ExportInfo struct {
	BatchID     string     `json:"batch_id,omitempty"`
	Marketplace string     `json:"marketplace,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

func nullDecimal(d decimal.Decimal, valid bool) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: valid}
}

// Export resolves every exported field of the product.
func (p *Product) Export() Export {
	out := Export{
		ASIN:          p.ASIN(),
		Title:         p.Title(),
		Brand:         p.Brand(),
		Manufacturer:  p.Manufacturer(),
		Currency:      DefaultCurrency,
		HasPrime:      p.HasPrimeOffer(),
		InStock:       p.IsInStock(),
		HasActiveDeal: p.HasActiveDeal(),
		ImageURL:      p.ImageURL(ImageLarge),
		DetailPageURL: p.DetailPageURL(),
	}

	price, found := p.Price()
	if found {
		out.Currency = price.Currency
	}
	out.Price = nullDecimal(price.Amount, found)

	original, found := p.OriginalPrice()
	out.OriginalPrice = nullDecimal(original.Amount, found)

	discount, found := p.DiscountAmount()
	out.DiscountAmount = nullDecimal(discount.Amount, found)

	pct, found := p.DiscountPercentage()
	out.DiscountPercentage = nullDecimal(pct, found)

	out.Availability, _ = p.Availability()
	out.Condition, _ = p.Condition()
	out.DealBadge, _ = p.DealBadge()
	out.SavingsBasisType, _ = p.SavingsBasisType()

	return out
}

// ExportProducts resolves a list of products in order.
func ExportProducts(products []*Product) []Export {
	out := make([]Export, 0, len(products))
	for _, product := range products {
		out = append(out, product.Export())
	}
	return out
}
