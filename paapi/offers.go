package paapi

import (
	"strings"
)

// OfferSchema identifies which listing section an offer was collected from.
type OfferSchema int

const (
	// Offers.Listings, price at Price
	SchemaOffers OfferSchema = iota

	// OffersV2.Listings, price at Price.Money
	SchemaOffersV2
)

func (s OfferSchema) String() string {
	switch s {
	case SchemaOffers:
		return "Offers"
	case SchemaOffersV2:
		return "OffersV2"
	}
	return "unknown"
}

// Offer is one raw listing tagged with the schema it was found in. All field
// lookups branch on the tag.
type Offer struct {
	Schema OfferSchema

	data map[string]interface{}
}

// NewOffer wraps a raw listing record.
func NewOffer(schema OfferSchema, data map[string]interface{}) Offer {
	return Offer{
		Schema: schema,
		data:   data,
	}
}

func (o Offer) Raw() map[string]interface{} {
	return o.data
}

func (o Offer) IsBuyBoxWinner() bool {
	return digBool(o.data, "IsBuyBoxWinner")
}

// Price returns the offer price; an offer without an amount has no price.
func (o Offer) Price() (Price, bool) {
	var obj map[string]interface{}
	switch o.Schema {
	case SchemaOffersV2:
		obj, _ = digMap(o.data, "Price", "Money")
	default:
		obj, _ = digMap(o.data, "Price")
	}
	return priceFromRaw(obj)
}

// SavingBasis returns the pre-discount reference price of the offer.
func (o Offer) SavingBasis() (Price, bool) {
	var obj map[string]interface{}
	switch o.Schema {
	case SchemaOffersV2:
		obj, _ = digMap(o.data, "Price", "SavingBasis", "Money")
	default:
		obj, _ = digMap(o.data, "SavingBasis")
	}
	return priceFromRaw(obj)
}

func (o Offer) savingBasisField(name string) (string, bool) {
	if o.Schema == SchemaOffersV2 {
		return digString(o.data, "Price", "SavingBasis", name)
	}
	return digString(o.data, "SavingBasis", name)
}

// IsPrime checks the deal access type first, then the legacy program
// eligibility flags.
func (o Offer) IsPrime() bool {
	if o.Schema == SchemaOffersV2 {
		access, _ := digString(o.data, "DealDetails", "AccessType")
		return access == "PRIME_EXCLUSIVE"
	}
	if digBool(o.data, "ProgramEligibility", "IsPrimeExclusive") {
		return true
	}
	return digBool(o.data, "ProgramEligibility", "IsPrimeEligible")
}

// InStock trusts the availability type when present, and reads the
// message only when the type is missing.
func (o Offer) InStock() bool {
	kind, found := digString(o.data, "Availability", "Type")
	if found {
		return kind == "Now"
	}
	msg, _ := digString(o.data, "Availability", "Message")
	return strings.Contains(strings.ToLower(msg), "in stock")
}

func (o Offer) AvailabilityMessage() (string, bool) {
	return digString(o.data, "Availability", "Message")
}

func (o Offer) Condition() (string, bool) {
	return digString(o.data, "Condition", "Value")
}

func (o Offer) DealDetails() (map[string]interface{}, bool) {
	return digMap(o.data, "DealDetails")
}

func (o Offer) MerchantInfo() (map[string]interface{}, bool) {
	return digMap(o.data, "MerchantInfo")
}

func (o Offer) DeliveryInfo() (map[string]interface{}, bool) {
	return digMap(o.data, "DeliveryInfo")
}

// Offers returns every listing of the product, Offers first and OffersV2
// second, keeping the order in which they appear.
func (p *Product) Offers() []Offer {
	var offers []Offer
	for _, section := range []struct {
		key    string
		schema OfferSchema
	}{
		{"Offers", SchemaOffers},
		{"OffersV2", SchemaOffersV2},
	} {
		listings, _ := digSlice(p.data, section.key, "Listings")
		for _, listing := range listings {
			obj, ok := listing.(map[string]interface{})
			if !ok {
				continue
			}
			offers = append(offers, NewOffer(section.schema, obj))
		}
	}
	return offers
}
