package paapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

type LogCallbackFunc func(format string, a ...interface{})

var asinRE = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// Patterns tried in order when looking for an ASIN inside a link
var asinURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dp/([A-Z0-9]{10})`),
	regexp.MustCompile(`/gp/product/([A-Z0-9]{10})`),
	regexp.MustCompile(`/exec/obidos/ASIN/([A-Z0-9]{10})`),
	regexp.MustCompile(`asin=([A-Z0-9]{10})`),
	regexp.MustCompile(`/([A-Z0-9]{10})(?:/|\?|$)`),
}

// IsValidASIN reports whether asin is made of exactly ten upper case
// letters or digits.
func IsValidASIN(asin string) bool {
	return asinRE.MatchString(asin)
}

// ExtractASIN looks for an ASIN in an Amazon product link.
func ExtractASIN(link string) (string, bool) {
	for _, re := range asinURLPatterns {
		match := re.FindStringSubmatch(link)
		if len(match) > 1 {
			return match[1], true
		}
	}
	return "", false
}

// DecodeDocument decodes a JSON object keeping numbers as json.Number, so
// that amounts can be read back without going through float64.
func DecodeDocument(data []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	err := dec.Decode(&doc)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document is not a JSON object")
	}
	return doc, nil
}

// dig walks nested objects following path
func dig(v interface{}, path ...string) (interface{}, bool) {
	for _, key := range path {
		obj, ok := v.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok = obj[key]
		if !ok || v == nil {
			return nil, false
		}
	}
	return v, true
}

func digMap(v interface{}, path ...string) (map[string]interface{}, bool) {
	found, ok := dig(v, path...)
	if !ok {
		return nil, false
	}
	obj, ok := found.(map[string]interface{})
	return obj, ok
}

func digSlice(v interface{}, path ...string) ([]interface{}, bool) {
	found, ok := dig(v, path...)
	if !ok {
		return nil, false
	}
	list, ok := found.([]interface{})
	return list, ok
}

func digString(v interface{}, path ...string) (string, bool) {
	found, ok := dig(v, path...)
	if !ok {
		return "", false
	}
	str, ok := found.(string)
	return str, ok
}

// digText returns a string or number leaf as text, empty otherwise
func digText(v interface{}, path ...string) string {
	found, ok := dig(v, path...)
	if !ok {
		return ""
	}
	switch leaf := found.(type) {
	case string:
		return leaf
	case json.Number:
		return leaf.String()
	}
	return ""
}

// digBool is true only for a literal JSON true
func digBool(v interface{}, path ...string) bool {
	found, ok := dig(v, path...)
	if !ok {
		return false
	}
	flag, ok := found.(bool)
	return ok && flag
}

func digDecimal(v interface{}, path ...string) (decimal.Decimal, bool) {
	found, ok := dig(v, path...)
	if !ok {
		return decimal.Zero, false
	}
	return toDecimal(found)
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	case decimal.Decimal:
		return n, true
	}
	return decimal.Zero, false
}

func stringList(v interface{}, path ...string) []string {
	list, ok := digSlice(v, path...)
	if !ok {
		return nil
	}
	var out []string
	for _, entry := range list {
		str, ok := entry.(string)
		if ok {
			out = append(out, str)
		}
	}
	return out
}
