package paapi

import (
	"strings"
)

type ImageSize string

const (
	ImageSmall  ImageSize = "Small"
	ImageMedium ImageSize = "Medium"
	ImageLarge  ImageSize = "Large"
)

// Product owns the decoded document of a single item as returned by the
// API. Every accessor is a read over that document and recomputes its
// result on each call, so the document must not be modified after the
// Product is built.
type Product struct {
	data   map[string]interface{}
	policy PricePolicy
}

// NewProduct returns a Product using the buy box price policy.
func NewProduct(data map[string]interface{}) *Product {
	return NewProductWithPolicy(data, PolicyBuyBox)
}

func NewProductWithPolicy(data map[string]interface{}, policy PricePolicy) *Product {
	if data == nil {
		data = map[string]interface{}{}
	}
	return &Product{
		data:   data,
		policy: policy,
	}
}

// ParseProduct decodes a single JSON item document.
func ParseProduct(raw []byte) (*Product, error) {
	doc, err := DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	return NewProduct(doc), nil
}

func (p *Product) Policy() PricePolicy {
	return p.policy
}

// WithPolicy returns a view of the same document under a different policy.
func (p *Product) WithPolicy(policy PricePolicy) *Product {
	return &Product{
		data:   p.data,
		policy: policy,
	}
}

func (p *Product) ASIN() string {
	asin, _ := digString(p.data, "ASIN")
	return asin
}

func (p *Product) Title() string {
	title, _ := digString(p.data, "ItemInfo", "Title", "DisplayValue")
	return title
}

func (p *Product) Features() []string {
	return stringList(p.data, "ItemInfo", "Features", "DisplayValues")
}

// Description joins the feature bullets, empty when there are none.
func (p *Product) Description() string {
	return strings.Join(p.Features(), ". ")
}

func (p *Product) Brand() string {
	brand, _ := digString(p.data, "ItemInfo", "ByLineInfo", "Brand", "DisplayValue")
	return brand
}

func (p *Product) Manufacturer() string {
	manufacturer, _ := digString(p.data, "ItemInfo", "ByLineInfo", "Manufacturer", "DisplayValue")
	return manufacturer
}

func (p *Product) ImageURL(size ImageSize) string {
	link, _ := digString(p.data, "Images", "Primary", string(size), "URL")
	return link
}

// AllImages returns the primary image followed by the variants that have
// the requested size.
func (p *Product) AllImages(size ImageSize) []string {
	var images []string

	primary := p.ImageURL(size)
	if primary != "" {
		images = append(images, primary)
	}

	variants, _ := digSlice(p.data, "Images", "Variants")
	for _, variant := range variants {
		link, found := digString(variant, string(size), "URL")
		if found {
			images = append(images, link)
		}
	}

	return images
}

func (p *Product) DetailPageURL() string {
	link, _ := digString(p.data, "DetailPageURL")
	return link
}

func (p *Product) TechnicalInfo() map[string]interface{} {
	info, _ := digMap(p.data, "ItemInfo", "TechnicalInfo")
	return info
}

func (p *Product) Dimensions() (map[string]interface{}, bool) {
	return digMap(p.data, "ItemInfo", "TechnicalInfo", "ItemDimensions")
}

func (p *Product) Weight() (map[string]interface{}, bool) {
	return digMap(p.data, "ItemInfo", "TechnicalInfo", "ItemWeight")
}

func (p *Product) Classifications() map[string]interface{} {
	classes, _ := digMap(p.data, "ItemInfo", "Classifications")
	return classes
}

// RawData returns the underlying document, which callers must not modify.
func (p *Product) RawData() map[string]interface{} {
	return p.data
}
