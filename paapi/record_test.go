package paapi

import (
	"reflect"
	"testing"
)

func TestProductAccessors(t *testing.T) {
	product := loadFixture(t)

	if product.ASIN() != "B08N5WRWNW" {
		t.Errorf("FAIL: unexpected asin %s", product.ASIN())
	}
	if product.Title() != "Echo Dot (4th Gen)" {
		t.Errorf("FAIL: unexpected title %s", product.Title())
	}
	if product.Brand() != "Amazon" || product.Manufacturer() != "Amazon Europe" {
		t.Errorf("FAIL: unexpected byline %s %s", product.Brand(), product.Manufacturer())
	}

	features := []string{"Smart speaker with Alexa", "Rich sound"}
	if !reflect.DeepEqual(product.Features(), features) {
		t.Errorf("FAIL: unexpected features %v", product.Features())
	}
	if product.Description() != "Smart speaker with Alexa. Rich sound" {
		t.Errorf("FAIL: unexpected description %q", product.Description())
	}

	if product.ImageURL(ImageMedium) != "https://m.media-amazon.com/images/I/51-medium.jpg" {
		t.Errorf("FAIL: unexpected medium image %s", product.ImageURL(ImageMedium))
	}
	if product.ImageURL(ImageSmall) != "" {
		t.Errorf("FAIL: unexpected small image %s", product.ImageURL(ImageSmall))
	}

	images := []string{
		"https://m.media-amazon.com/images/I/51-large.jpg",
		"https://m.media-amazon.com/images/I/61-large.jpg",
		"https://m.media-amazon.com/images/I/81-large.jpg",
	}
	if !reflect.DeepEqual(product.AllImages(ImageLarge), images) {
		t.Errorf("FAIL: unexpected images %v", product.AllImages(ImageLarge))
	}
	small := product.AllImages(ImageSmall)
	if len(small) != 1 || small[0] != "https://m.media-amazon.com/images/I/71-small.jpg" {
		t.Errorf("FAIL: unexpected small images %v", small)
	}

	if product.DetailPageURL() == "" {
		t.Errorf("FAIL: missing detail page")
	}

	_, found := product.Dimensions()
	if !found {
		t.Errorf("FAIL: missing dimensions")
	}
	weight, found := product.Weight()
	if !found || weight["Unit"] != "g" {
		t.Errorf("FAIL: unexpected weight %v", weight)
	}
	if len(product.TechnicalInfo()) != 2 {
		t.Errorf("FAIL: unexpected technical info %v", product.TechnicalInfo())
	}
	if len(product.Classifications()) != 2 {
		t.Errorf("FAIL: unexpected classifications %v", product.Classifications())
	}
}

func TestProductOfferAccessors(t *testing.T) {
	product := loadFixture(t)

	availability, _ := product.Availability()
	if availability != "Disponibilità immediata" {
		t.Errorf("FAIL: unexpected availability %q", availability)
	}
	condition, _ := product.Condition()
	if condition != "New" {
		t.Errorf("FAIL: unexpected condition %q", condition)
	}
	merchant, found := product.MerchantInfo()
	if !found || merchant["Name"] != "Amazon.it" {
		t.Errorf("FAIL: unexpected merchant %v", merchant)
	}
	_, found = product.DeliveryInfo()
	if !found {
		t.Errorf("FAIL: missing delivery info")
	}
	basisType, _ := product.SavingsBasisType()
	if basisType != "LIST_PRICE" {
		t.Errorf("FAIL: unexpected saving basis type %q", basisType)
	}
	if !product.HasPrimeOffer() || !product.IsInStock() {
		t.Errorf("FAIL: expected prime and in stock")
	}
}

func TestEmptyProduct(t *testing.T) {
	product := NewProduct(nil)

	if product.ASIN() != "" || product.Title() != "" || product.Description() != "" {
		t.Errorf("FAIL: expected empty strings")
	}
	if product.Features() != nil || product.AllImages(ImageLarge) != nil {
		t.Errorf("FAIL: expected empty lists")
	}
	if product.TechnicalInfo() != nil || product.Classifications() != nil {
		t.Errorf("FAIL: expected empty maps")
	}
	_, found := product.Price()
	if found {
		t.Errorf("FAIL: expected no price")
	}
	_, found = product.Availability()
	if found {
		t.Errorf("FAIL: expected no availability")
	}
	if product.HasActiveDeal() || product.HasPrimeOffer() || product.IsInStock() {
		t.Errorf("FAIL: expected no flags")
	}
}

func TestAccessorsAreRepeatable(t *testing.T) {
	product := loadFixture(t)

	first := product.Export()
	for i := 0; i < 3; i++ {
		again := product.Export()
		if !exportEqual(first, again) {
			t.Fatalf("FAIL: export changed on run %d", i)
		}
	}
}

func TestParseProductError(t *testing.T) {
	for _, doc := range []string{"", "[]", "null", "{"} {
		_, err := ParseProduct([]byte(doc))
		if err == nil {
			t.Errorf("FAIL %q: expected an error", doc)
		}
	}
}
