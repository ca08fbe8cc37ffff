package paapi

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultTrackingPlaceholder replaces the partner tag in compatibility links
const DefaultTrackingPlaceholder = "booBLZTRKood"

// Item is the flat, legacy-compatible view of a Product.
type Item struct {
	Title     string          `json:"title"`
	ASIN      string          `json:"asin"`
	Price     decimal.Decimal `json:"price"`
	FullPrice decimal.Decimal `json:"fullprice"`

	// Discount percentage rounded to the closest integer
	Saving int `json:"saving"`

	// Detail page link with the partner tag swapped for a placeholder
	Link  string `json:"link"`
	Image string `json:"images"`

	HasPrimePrice bool         `json:"hasPrimeExclusive"`
	PrimePrices   *PrimePrices `json:"primePrices,omitempty"`

	Product *Product `json:"-"`
}

type PrimePrices struct {
	Price            decimal.Decimal `json:"price"`
	Saving           decimal.Decimal `json:"saving"`
	FullPrice        decimal.Decimal `json:"fullprice"`
	SavingPercentage decimal.Decimal `json:"saving_percentage"`
}

// NewItem flattens a Product. A missing current price becomes zero, and a
// missing original price falls back to the current one.
func NewItem(product *Product, partnerTag, placeholder string) Item {
	if placeholder == "" {
		placeholder = DefaultTrackingPlaceholder
	}

	item := Item{
		Title:   product.Title(),
		ASIN:    product.ASIN(),
		Image:   product.ImageURL(ImageLarge),
		Product: product,
	}

	price, found := product.Price()
	if found {
		item.Price = price.Amount
	}
	item.FullPrice = item.Price
	original, found := product.OriginalPrice()
	if found {
		item.FullPrice = original.Amount
	}

	pct, found := product.DiscountPercentage()
	if found {
		item.Saving = int(pct.Round(0).IntPart())
	}

	item.Link = product.DetailPageURL()
	if partnerTag != "" {
		item.Link = strings.ReplaceAll(item.Link, partnerTag, placeholder)
	}

	item.HasPrimePrice = product.HasPrimeOffer()
	if item.HasPrimePrice {
		item.PrimePrices = newPrimePrices(item.Price, item.FullPrice)
	}

	return item
}

func newPrimePrices(price, fullPrice decimal.Decimal) *PrimePrices {
	saving := fullPrice.Sub(price)
	pct := decimal.Zero
	if fullPrice.IsPositive() {
		pct = saving.Div(fullPrice).Mul(hundred)
	}
	return &PrimePrices{
		Price:            price,
		Saving:           saving.Round(2),
		FullPrice:        fullPrice,
		SavingPercentage: pct.Round(2),
	}
}

// MarshalJSON renders amounts as JSON numbers like the legacy format.
func (item Item) MarshalJSON() ([]byte, error) {
	type plain Item
	return json.Marshal(struct {
		plain
		Price     json.Number `json:"price"`
		FullPrice json.Number `json:"fullprice"`
	}{
		plain:     plain(item),
		Price:     json.Number(item.Price.String()),
		FullPrice: json.Number(item.FullPrice.String()),
	})
}

func (pp PrimePrices) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Price            json.Number `json:"price"`
		Saving           json.Number `json:"saving"`
		FullPrice        json.Number `json:"fullprice"`
		SavingPercentage json.Number `json:"saving_percentage"`
	}{
		Price:            json.Number(pp.Price.String()),
		Saving:           json.Number(pp.Saving.String()),
		FullPrice:        json.Number(pp.FullPrice.String()),
		SavingPercentage: json.Number(pp.SavingPercentage.String()),
	})
}
