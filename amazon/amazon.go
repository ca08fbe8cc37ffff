package amazon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/mtgban/go-paapi/paapi"
	"github.com/mtgban/go-paapi/sigv4"
)

const (
	// Maximum number of ASINs accepted by a single GetItems call
	MaxItemsPerRequest = 10

	// Service name of the credential scope
	ServiceName = "ProductAdvertisingAPI"
	itemIdType  = "ASIN"
	partnerType = "Associates"
)

// DefaultResources is requested when GetItems is called without resources
var DefaultResources = []string{
	"ItemInfo.Title",
	"ItemInfo.ByLineInfo",
	"ItemInfo.ProductInfo",
	"ItemInfo.TechnicalInfo",
	"ItemInfo.Features",
	"ItemInfo.ContentInfo",
	"ItemInfo.Classifications",
	"Images.Primary.Small",
	"Images.Primary.Medium",
	"Images.Primary.Large",
	"Images.Variants.Small",
	"Images.Variants.Medium",
	"Images.Variants.Large",
	"OffersV2.Listings.Price",
	"OffersV2.Listings.ProgramEligibility",
	"OffersV2.Listings.SavingBasis",
	"OffersV2.Listings.DeliveryInfo",
	"OffersV2.Listings.MerchantInfo",
	"OffersV2.Listings.Availability",
	"OffersV2.Listings.Condition",
	"OffersV2.Listings.LoyaltyPoints",
	"OffersV2.Listings.IsBuyBoxWinner",
	"OffersV2.Listings.ViolatesMAP",
}

// Client queries the Product Advertising API. A Client must not be
// reconfigured while in use.
type Client struct {
	LogCallback paapi.LogCallbackFunc

	settings settings
	baseURL  string
	client   *retryablehttp.Client
}

// NewClient validates the configuration and prepares a signing client.
func NewClient(cfg Config) (*Client, error) {
	s, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	signer, err := sigv4.New(
		sigv4.WithCredential(s.accessKey, s.secretKey),
		sigv4.WithRegionService(s.region, ServiceName))
	if err != nil {
		return nil, err
	}

	amz := Client{}
	amz.settings = s
	amz.baseURL = "https://" + s.host
	amz.client = retryablehttp.NewClient()
	amz.client.Logger = nil
	amz.client.RetryMax = 0
	amz.client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	amz.client.HTTPClient.Timeout = s.timeout

	transport := &authTransport{
		Parent: amz.client.HTTPClient.Transport,
		Signer: signer,
		Host:   s.host,
	}
	if s.rps > 0 {
		transport.Limiter = rate.NewLimiter(rate.Limit(s.rps), 1)
	}
	amz.client.HTTPClient.Transport = transport

	return &amz, nil
}

func (amz *Client) printf(format string, a ...interface{}) {
	if amz.LogCallback != nil {
		amz.LogCallback("[AMZ] "+format, a...)
	}
}

func (amz *Client) Marketplace() string {
	return amz.settings.marketplace
}

func (amz *Client) Host() string {
	return amz.settings.host
}

func (amz *Client) Region() string {
	return amz.settings.region
}

// Timeout returns the request timeout in seconds.
func (amz *Client) Timeout() int {
	return int(amz.settings.timeout.Seconds())
}

func (amz *Client) PartnerTag() string {
	return amz.settings.partnerTag
}

func (amz *Client) TrackingPlaceholder() string {
	return amz.settings.placeholder
}

func (amz *Client) PricePolicy() paapi.PricePolicy {
	return amz.settings.policy
}

type getItemsRequest struct {
	ItemIds               []string `json:"ItemIds"`
	ItemIdType            string   `json:"ItemIdType"`
	LanguagesOfPreference []string `json:"LanguagesOfPreference,omitempty"`
	Marketplace           string   `json:"Marketplace"`
	OfferCount            int      `json:"OfferCount"`
	PartnerTag            string   `json:"PartnerTag"`
	PartnerType           string   `json:"PartnerType"`
	Resources             []string `json:"Resources"`
}

// GetItems fetches between 1 and MaxItemsPerRequest items, in response
// order. An empty resources list requests DefaultResources.
func (amz *Client) GetItems(ctx context.Context, asins []string, resources []string, offerCount int) ([]*paapi.Product, error) {
	if len(asins) == 0 {
		return nil, parameterError("ASINs array cannot be empty")
	}
	if len(asins) > MaxItemsPerRequest {
		return nil, parameterError("Maximum %d ASINs allowed per request", MaxItemsPerRequest)
	}
	if len(resources) == 0 {
		resources = DefaultResources
	}
	if offerCount < 1 {
		offerCount = 1
	}

	payload := getItemsRequest{
		ItemIds:     asins,
		ItemIdType:  itemIdType,
		Marketplace: amz.settings.marketplace,
		OfferCount:  offerCount,
		PartnerTag:  amz.settings.partnerTag,
		PartnerType: partnerType,
		Resources:   resources,
	}
	if amz.settings.hasLanguage {
		payload.LanguagesOfPreference = []string{languageOfPreference(amz.settings.language)}
	}

	body, err := json.Marshal(&payload)
	if err != nil {
		return nil, err
	}

	requestId := uuid.New().String()
	amz.printf("%s GetItems %d ASINs on %s", requestId, len(asins), amz.settings.marketplace)

	doc, err := amz.post(ctx, GetItemsPath, body)
	if err != nil {
		amz.printf("%s failed: %v", requestId, err)
		return nil, err
	}

	items, found := itemsFromResponse(doc)
	embedded := responseErrors(doc)
	if !found || len(items) == 0 {
		if len(embedded) > 0 {
			return nil, providerError(http.StatusOK, embedded[0].Code, embedded[0].Message)
		}
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    "Invalid response format: missing ItemsResult.Items",
		}
	}
	for _, e := range embedded {
		amz.printf("%s partial error %s: %s", requestId, e.Code, e.Message)
	}

	products := make([]*paapi.Product, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			amz.printf("%s skipping malformed item at position %d", requestId, i)
			continue
		}
		products = append(products, paapi.NewProductWithPolicy(obj, amz.settings.policy))
	}
	amz.printf("%s received %d items", requestId, len(products))

	return products, nil
}

// GetItem fetches a single item.
func (amz *Client) GetItem(ctx context.Context, asin string, resources []string, offerCount int) (*paapi.Product, error) {
	products, err := amz.GetItems(ctx, []string{asin}, resources, offerCount)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("no item returned for %s", asin),
		}
	}
	return products[0], nil
}
