package amazon

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Marketplace binds an Amazon storefront to its PAAPI endpoint.
type Marketplace struct {
	Domain   string
	Host     string
	Region   string
	Language language.Tag
	Currency string
}

var marketplaceTable = map[string]Marketplace{
	"www.amazon.com":    {Host: "webservices.amazon.com", Region: "us-east-1", Language: language.MustParse("en-US"), Currency: "USD"},
	"www.amazon.ca":     {Host: "webservices.amazon.ca", Region: "us-east-1", Language: language.MustParse("en-CA"), Currency: "CAD"},
	"www.amazon.com.mx": {Host: "webservices.amazon.com.mx", Region: "us-east-1", Language: language.MustParse("es-MX"), Currency: "MXN"},
	"www.amazon.co.uk":  {Host: "webservices.amazon.co.uk", Region: "eu-west-1", Language: language.MustParse("en-GB"), Currency: "GBP"},
	"www.amazon.de":     {Host: "webservices.amazon.de", Region: "eu-west-1", Language: language.MustParse("de-DE"), Currency: "EUR"},
	"www.amazon.fr":     {Host: "webservices.amazon.fr", Region: "eu-west-1", Language: language.MustParse("fr-FR"), Currency: "EUR"},
	"www.amazon.it":     {Host: "webservices.amazon.it", Region: "eu-west-1", Language: language.MustParse("it-IT"), Currency: "EUR"},
	"www.amazon.es":     {Host: "webservices.amazon.es", Region: "eu-west-1", Language: language.MustParse("es-ES"), Currency: "EUR"},
	"www.amazon.co.jp":  {Host: "webservices.amazon.co.jp", Region: "us-west-2", Language: language.MustParse("ja-JP"), Currency: "JPY"},
	"www.amazon.in":     {Host: "webservices.amazon.in", Region: "eu-west-1", Language: language.MustParse("en-IN"), Currency: "INR"},
	"www.amazon.com.br": {Host: "webservices.amazon.com.br", Region: "us-east-1", Language: language.MustParse("pt-BR"), Currency: "BRL"},
	"www.amazon.com.au": {Host: "webservices.amazon.com.au", Region: "us-west-2", Language: language.MustParse("en-AU"), Currency: "AUD"},
	"www.amazon.sg":     {Host: "webservices.amazon.sg", Region: "us-west-2", Language: language.MustParse("en-SG"), Currency: "SGD"},
}

// LookupMarketplace returns the table entry for a storefront domain such as
// "www.amazon.it".
func LookupMarketplace(domain string) (Marketplace, bool) {
	mp, found := marketplaceTable[strings.ToLower(strings.TrimSpace(domain))]
	if !found {
		return Marketplace{}, false
	}
	mp.Domain = strings.ToLower(strings.TrimSpace(domain))
	return mp, true
}

func lookupMarketplaceByHost(host string) (Marketplace, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	for domain, mp := range marketplaceTable {
		if mp.Host == host {
			mp.Domain = domain
			return mp, true
		}
	}
	return Marketplace{}, false
}

// Marketplaces lists every supported marketplace sorted by domain.
func Marketplaces() []Marketplace {
	out := make([]Marketplace, 0, len(marketplaceTable))
	for domain, mp := range marketplaceTable {
		mp.Domain = domain
		out = append(out, mp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Domain < out[j].Domain
	})
	return out
}

// languageOfPreference renders a tag the way PAAPI expects it, as "it_IT".
func languageOfPreference(tag language.Tag) string {
	return strings.ReplaceAll(tag.String(), "-", "_")
}
