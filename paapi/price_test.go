package paapi

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPriceFormat(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		expect   string
	}{
		{"1234.56", "EUR", "€ 1.234,56"},
		{"1234.56", "USD", "$1,234.56"},
		{"1234.56", "GBP", "£1,234.56"},
		{"2999", "JPY", "¥2,999"},
		{"1234.56", "CHF", "CHF 1,234.56"},
		{"0", "EUR", "€ 0,00"},
		{"0.5", "USD", "$0.50"},
		{"999.999", "EUR", "€ 1.000,00"},
		{"1234567.891", "EUR", "€ 1.234.567,89"},
		{"123456", "JPY", "¥123,456"},
		{"2999.5", "JPY", "¥3,000"},
		{"-1234.5", "USD", "$-1,234.50"},
	}

	for _, test := range tests {
		price := NewPrice(decimal.RequireFromString(test.amount), test.currency)
		if price.Format() != test.expect {
			t.Errorf("FAIL %s %s: expect %q but got %q", test.amount, test.currency, test.expect, price.Format())
			continue
		}
		t.Log("PASS:", price.Format())
	}
}

func TestPriceIsAvailable(t *testing.T) {
	tests := []struct {
		amount string
		expect bool
	}{
		{"0", false},
		{"0.00", false},
		{"-1", false},
		{"0.01", true},
		{"29.99", true},
	}

	for _, test := range tests {
		for _, code := range []string{"EUR", "USD", "JPY", "SEK"} {
			price := NewPrice(decimal.RequireFromString(test.amount), code)
			if price.IsAvailable() != test.expect {
				t.Errorf("FAIL %s %s: expect %v", test.amount, code, test.expect)
			}
		}
	}
}

func TestPriceDisplay(t *testing.T) {
	price, found := priceFromRaw(map[string]interface{}{
		"Amount":        "19.9",
		"Currency":      "usd",
		"DisplayAmount": "$19.90",
	})
	if !found {
		t.Fatalf("FAIL: price not found")
	}
	if price.Currency != "USD" {
		t.Errorf("FAIL: unexpected currency %s", price.Currency)
	}
	if price.Display() != "$19.90" || price.String() != "$19.90" {
		t.Errorf("FAIL: unexpected display %s", price.Display())
	}

	price, found = priceFromRaw(map[string]interface{}{
		"Amount":       19.9,
		"DisplayValue": "19,90 €",
	})
	if !found {
		t.Fatalf("FAIL: price not found")
	}
	if price.Currency != DefaultCurrency {
		t.Errorf("FAIL: expected default currency, got %s", price.Currency)
	}
	if price.Display() != "19,90 €" {
		t.Errorf("FAIL: unexpected display %s", price.Display())
	}

	price, _ = priceFromRaw(map[string]interface{}{
		"Amount":   1500,
		"Currency": "GBP",
	})
	if price.Display() != "£1,500.00" {
		t.Errorf("FAIL: display did not fall back to format: %s", price.Display())
	}
}

func TestPriceFromRawMissingAmount(t *testing.T) {
	_, found := priceFromRaw(map[string]interface{}{
		"Currency":      "EUR",
		"DisplayAmount": "9,99 €",
	})
	if found {
		t.Errorf("FAIL: a record without amount is not a price")
	}
	_, found = priceFromRaw(nil)
	if found {
		t.Errorf("FAIL: nil record is not a price")
	}
}

func TestPricePerUnit(t *testing.T) {
	tests := []struct {
		name   string
		raw    interface{}
		expect string
	}{
		{"display string", "€ 2,40 / kg", "€ 2,40 / kg"},
		{"plain amount", "2.40", "2.40"},
		{"number", json.Number("2.40"), "2.40"},
		{"object", map[string]interface{}{"Amount": 2.4}, ""},
		{"missing", nil, ""},
	}

	for _, test := range tests {
		obj := map[string]interface{}{
			"Amount":   "12.00",
			"Currency": "EUR",
		}
		if test.raw != nil {
			obj["PricePerUnit"] = test.raw
		}
		price, found := priceFromRaw(obj)
		if !found {
			t.Fatalf("FAIL %s: missing price", test.name)
		}
		if price.PricePerUnit != test.expect {
			t.Errorf("FAIL %s: expected %q, got %q", test.name, test.expect, price.PricePerUnit)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	tests := map[string]string{
		"":      "EUR",
		"eur":   "EUR",
		" usd ": "USD",
		"JPY":   "JPY",
		"gbp":   "GBP",
	}
	for in, expect := range tests {
		out := NormalizeCurrency(in)
		if out != expect {
			t.Errorf("FAIL %q: expect %s but got %s", in, expect, out)
		}
	}
}
