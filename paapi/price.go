package paapi

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultCurrency is assumed when a price record carries no currency code
const DefaultCurrency = "EUR"

// Price is an amount in a given currency, as found in an offer or derived
// from two offers. Prices are values and are never modified once built.
type Price struct {
	// Exact amount, never rounded
	Amount decimal.Decimal `json:"amount"`

	// ISO 4217 code
	Currency string `json:"currency"`

	// Display string provided by the API, if any
	DisplayValue string `json:"display_value,omitempty"`

	// Price per unit of measure as provided, often a display string such
	// as "€ 2,40 / kg"
	PricePerUnit string `json:"price_per_unit,omitempty"`
}

type numberFormat struct {
	symbol    string
	places    int32
	thousands string
	decimal   string
}

var currencyFormats = map[string]numberFormat{
	"EUR": {symbol: "€ ", places: 2, thousands: ".", decimal: ","},
	"USD": {symbol: "$", places: 2, thousands: ",", decimal: "."},
	"GBP": {symbol: "£", places: 2, thousands: ",", decimal: "."},
	"JPY": {symbol: "¥", places: 0, thousands: ",", decimal: "."},
}

// NewPrice returns a Price with a normalized currency code.
func NewPrice(amount decimal.Decimal, currencyCode string) Price {
	return Price{
		Amount:   amount,
		Currency: NormalizeCurrency(currencyCode),
	}
}

// NormalizeCurrency upper cases and validates an ISO 4217 code, falling back
// to DefaultCurrency for empty input. Unknown codes are kept as given.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return code
	}
	return unit.String()
}

// priceFromRaw builds a Price from an API price record; the record must
// carry an Amount for a price to exist
func priceFromRaw(obj map[string]interface{}) (Price, bool) {
	if obj == nil {
		return Price{}, false
	}
	amount, found := digDecimal(obj, "Amount")
	if !found {
		return Price{}, false
	}

	code, _ := digString(obj, "Currency")
	price := NewPrice(amount, code)

	// PAAPI uses DisplayAmount, older payloads DisplayValue
	display, found := digString(obj, "DisplayAmount")
	if !found {
		display, _ = digString(obj, "DisplayValue")
	}
	price.DisplayValue = display

	price.PricePerUnit = digText(obj, "PricePerUnit")

	return price, true
}

// IsAvailable reports whether the price is strictly positive.
func (p Price) IsAvailable() bool {
	return p.Amount.IsPositive()
}

// Format renders the amount with the fixed per-currency rules.
func (p Price) Format() string {
	return FormatAmount(p.Amount, p.Currency)
}

// Display returns the display string from the API, or Format when missing.
func (p Price) Display() string {
	if p.DisplayValue != "" {
		return p.DisplayValue
	}
	return p.Format()
}

func (p Price) String() string {
	return p.Display()
}

// FormatAmount renders an amount following a fixed table:
// EUR "€ 1.234,56", USD "$1,234.56", GBP "£1,234.56", JPY "¥1,235" and
// "<CODE> 1,234.56" for anything else.
func FormatAmount(amount decimal.Decimal, currencyCode string) string {
	format, found := currencyFormats[currencyCode]
	if !found {
		format = numberFormat{
			symbol:    currencyCode + " ",
			places:    2,
			thousands: ",",
			decimal:   ".",
		}
	}
	return format.symbol + format.number(amount)
}

func (nf numberFormat) number(amount decimal.Decimal) string {
	fixed := amount.StringFixed(nf.places)

	var sign string
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart := fixed
	var fracPart string
	idx := strings.IndexByte(fixed, '.')
	if idx >= 0 {
		intPart = fixed[:idx]
		fracPart = fixed[idx+1:]
	}

	var out strings.Builder
	out.WriteString(sign)
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	out.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		out.WriteString(nf.thousands)
		out.WriteString(intPart[i : i+3])
	}
	if fracPart != "" {
		out.WriteString(nf.decimal)
		out.WriteString(fracPart)
	}

	return out.String()
}
