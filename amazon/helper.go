package amazon

import (
	"context"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/mtgban/go-paapi/paapi"
)

const notAvailable = "N/A"

// GetCompatItems returns the legacy flat view of the requested items, with
// the partner tag in links replaced by the tracking placeholder.
func (amz *Client) GetCompatItems(ctx context.Context, asins []string) ([]paapi.Item, error) {
	products, err := amz.GetItems(ctx, asins, nil, 1)
	if err != nil {
		return nil, err
	}

	items := make([]paapi.Item, 0, len(products))
	for _, product := range products {
		items = append(items, paapi.NewItem(product, amz.settings.partnerTag, amz.settings.placeholder))
	}
	return items, nil
}

func (amz *Client) GetCompatItem(ctx context.Context, asin string) (paapi.Item, error) {
	product, err := amz.GetItem(ctx, asin, nil, 1)
	if err != nil {
		return paapi.Item{}, err
	}
	return paapi.NewItem(product, amz.settings.partnerTag, amz.settings.placeholder), nil
}

type ComparedProduct struct {
	ASIN                string              `json:"asin"`
	Title               string              `json:"title"`
	Brand               string              `json:"brand"`
	CurrentPrice        decimal.Decimal     `json:"current_price"`
	CurrentPriceDisplay string              `json:"current_price_display"`
	OriginalPrice       decimal.Decimal     `json:"original_price"`
	DiscountPercentage  decimal.NullDecimal `json:"discount_percentage"`
	Prime               bool                `json:"prime"`
	InStock             bool                `json:"in_stock"`
}

// PriceStats summarizes the current prices of the products that have one.
type PriceStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

type Comparison struct {
	Products []ComparedProduct `json:"products"`
	Stats    PriceStats        `json:"stats"`
}

// CompareProducts fetches the items and sorts them by ascending current
// price; products without a price count as zero.
func (amz *Client) CompareProducts(ctx context.Context, asins []string) (*Comparison, error) {
	products, err := amz.GetItems(ctx, asins, nil, 1)
	if err != nil {
		return nil, err
	}

	var out Comparison
	var prices stats.Float64Data
	for _, product := range products {
		entry := ComparedProduct{
			ASIN:                product.ASIN(),
			Title:               product.Title(),
			Brand:               product.Brand(),
			CurrentPriceDisplay: notAvailable,
			Prime:               product.HasPrimeOffer(),
			InStock:             product.IsInStock(),
		}

		price, found := product.Price()
		if found {
			entry.CurrentPrice = price.Amount
			entry.CurrentPriceDisplay = price.Display()
			prices = append(prices, price.Amount.InexactFloat64())
		}
		original, found := product.OriginalPrice()
		if found {
			entry.OriginalPrice = original.Amount
		}
		pct, found := product.DiscountPercentage()
		entry.DiscountPercentage = decimal.NullDecimal{Decimal: pct, Valid: found}

		out.Products = append(out.Products, entry)
	}

	sort.SliceStable(out.Products, func(i, j int) bool {
		return out.Products[i].CurrentPrice.LessThan(out.Products[j].CurrentPrice)
	})

	out.Stats = priceStats(prices)

	return &out, nil
}

func priceStats(prices stats.Float64Data) PriceStats {
	out := PriceStats{
		Count: prices.Len(),
	}
	if out.Count == 0 {
		return out
	}
	out.Min, _ = prices.Min()
	out.Max, _ = prices.Max()
	out.Mean, _ = prices.Mean()
	out.Median, _ = prices.Median()
	return out
}

type DiscountedProduct struct {
	ASIN               string          `json:"asin"`
	Title              string          `json:"title"`
	CurrentPrice       string          `json:"current_price"`
	OriginalPrice      string          `json:"original_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Savings            string          `json:"savings,omitempty"`
	Prime              bool            `json:"prime"`
	Image              string          `json:"image"`
}

// FindDiscountedProducts keeps the items discounted by at least
// minPercentage, sorted by descending discount.
func (amz *Client) FindDiscountedProducts(ctx context.Context, asins []string, minPercentage float64) ([]DiscountedProduct, error) {
	products, err := amz.GetItems(ctx, asins, nil, 1)
	if err != nil {
		return nil, err
	}

	threshold := decimal.NewFromFloat(minPercentage)

	var out []DiscountedProduct
	for _, product := range products {
		pct, found := product.DiscountPercentage()
		if !found || pct.LessThan(threshold) {
			continue
		}

		entry := DiscountedProduct{
			ASIN:               product.ASIN(),
			Title:              product.Title(),
			CurrentPrice:       notAvailable,
			OriginalPrice:      notAvailable,
			DiscountPercentage: pct,
			Prime:              product.HasPrimeOffer(),
			Image:              product.ImageURL(paapi.ImageLarge),
		}
		price, found := product.Price()
		if found {
			entry.CurrentPrice = price.Display()
		}
		original, found := product.OriginalPrice()
		if found {
			entry.OriginalPrice = original.Display()
		}
		savings, found := product.DiscountAmount()
		if found {
			entry.Savings = savings.Display()
		}

		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DiscountPercentage.GreaterThan(out[j].DiscountPercentage)
	})

	return out, nil
}

type PrimeProduct struct {
	ASIN    string `json:"asin"`
	Title   string `json:"title"`
	Brand   string `json:"brand"`
	Price   string `json:"price"`
	InStock bool   `json:"in_stock"`
	Image   string `json:"image"`
	URL     string `json:"url"`
}

// FindPrimeProducts keeps the items with a Prime offer, in response order.
func (amz *Client) FindPrimeProducts(ctx context.Context, asins []string) ([]PrimeProduct, error) {
	products, err := amz.GetItems(ctx, asins, nil, 1)
	if err != nil {
		return nil, err
	}

	var out []PrimeProduct
	for _, product := range products {
		if !product.HasPrimeOffer() {
			continue
		}
		entry := PrimeProduct{
			ASIN:    product.ASIN(),
			Title:   product.Title(),
			Brand:   product.Brand(),
			Price:   notAvailable,
			InStock: product.IsInStock(),
			Image:   product.ImageURL(paapi.ImageLarge),
			URL:     product.DetailPageURL(),
		}
		price, found := product.Price()
		if found {
			entry.Price = price.Display()
		}
		out = append(out, entry)
	}

	return out, nil
}

type Report struct {
	BasicInfo struct {
		ASIN         string `json:"asin"`
		Title        string `json:"title"`
		Brand        string `json:"brand"`
		Manufacturer string `json:"manufacturer"`
		Condition    string `json:"condition"`
		URL          string `json:"url"`
	} `json:"basic_info"`

	Pricing struct {
		CurrentPrice       *paapi.Price        `json:"current_price"`
		OriginalPrice      *paapi.Price        `json:"original_price"`
		DiscountAmount     *paapi.Price        `json:"discount_amount"`
		DiscountPercentage decimal.NullDecimal `json:"discount_percentage"`
	} `json:"pricing"`

	Availability struct {
		InStock             bool   `json:"in_stock"`
		AvailabilityMessage string `json:"availability_message"`
		PrimeEligible       bool   `json:"prime_eligible"`
	} `json:"availability"`

	Media struct {
		PrimaryImage string   `json:"primary_image"`
		AllImages    []string `json:"all_images"`
		ImageCount   int      `json:"image_count"`
	} `json:"media"`

	Details struct {
		Description     string                 `json:"description"`
		Features        []string               `json:"features"`
		Dimensions      map[string]interface{} `json:"dimensions"`
		Weight          map[string]interface{} `json:"weight"`
		Classifications map[string]interface{} `json:"classifications"`
	} `json:"details"`

	Merchant struct {
		MerchantInfo map[string]interface{} `json:"merchant_info"`
		DeliveryInfo map[string]interface{} `json:"delivery_info"`
	} `json:"merchant"`

	GeneratedAt time.Time `json:"generated_at"`
}

func pricePtr(price paapi.Price, found bool) *paapi.Price {
	if !found {
		return nil
	}
	return &price
}

// NewReport collects every resolved field of a product.
func NewReport(product *paapi.Product) *Report {
	var r Report

	r.BasicInfo.ASIN = product.ASIN()
	r.BasicInfo.Title = product.Title()
	r.BasicInfo.Brand = product.Brand()
	r.BasicInfo.Manufacturer = product.Manufacturer()
	r.BasicInfo.Condition, _ = product.Condition()
	r.BasicInfo.URL = product.DetailPageURL()

	r.Pricing.CurrentPrice = pricePtr(product.Price())
	r.Pricing.OriginalPrice = pricePtr(product.OriginalPrice())
	r.Pricing.DiscountAmount = pricePtr(product.DiscountAmount())
	pct, found := product.DiscountPercentage()
	r.Pricing.DiscountPercentage = decimal.NullDecimal{Decimal: pct, Valid: found}

	r.Availability.InStock = product.IsInStock()
	r.Availability.AvailabilityMessage, _ = product.Availability()
	r.Availability.PrimeEligible = product.HasPrimeOffer()

	r.Media.PrimaryImage = product.ImageURL(paapi.ImageLarge)
	r.Media.AllImages = product.AllImages(paapi.ImageLarge)
	r.Media.ImageCount = len(r.Media.AllImages)

	r.Details.Description = product.Description()
	r.Details.Features = product.Features()
	r.Details.Dimensions, _ = product.Dimensions()
	r.Details.Weight, _ = product.Weight()
	r.Details.Classifications = product.Classifications()

	r.Merchant.MerchantInfo, _ = product.MerchantInfo()
	r.Merchant.DeliveryInfo, _ = product.DeliveryInfo()

	r.GeneratedAt = time.Now().UTC()

	return &r
}

// ProductReport fetches one item and builds its report.
func (amz *Client) ProductReport(ctx context.Context, asin string) (*Report, error) {
	product, err := amz.GetItem(ctx, asin, nil, 1)
	if err != nil {
		return nil, err
	}
	return NewReport(product), nil
}
