package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	_ "github.com/joho/godotenv/autoload"
	"github.com/mtgban/go-paapi/amazon"
	"github.com/mtgban/go-paapi/creators"
	"github.com/mtgban/go-paapi/paapi"
	"github.com/mtgban/go-paapi/sigv4"
)

var logger *zap.SugaredLogger

func newLogger() (*zap.SugaredLogger, error) {
	var base *zap.Logger
	var err error
	if os.Getenv("PAAPI_ENV") == "development" {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return base.Sugar(), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseASINs accepts bare ASINs or product links.
func parseASINs(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, errors.New("no ASIN specified")
	}

	var out []string
	for _, arg := range args {
		for _, field := range strings.Split(arg, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			if paapi.IsValidASIN(field) {
				out = append(out, field)
				continue
			}
			asin, found := paapi.ExtractASIN(field)
			if !found {
				return nil, fmt.Errorf("invalid ASIN or link %q", field)
			}
			out = append(out, asin)
		}
	}
	return out, nil
}

func newAmazonClient(c *cli.Context) (*amazon.Client, error) {
	var cfg amazon.Config
	var err error

	if c.String("config") != "" {
		cfg, err = amazon.LoadConfig(c.String("config"))
	} else {
		cfg, err = amazon.ConfigFromEnv()
	}
	if err != nil {
		return nil, err
	}

	if c.IsSet("marketplace") {
		cfg.Marketplace = c.String("marketplace")
		cfg.Host = ""
	}
	if c.IsSet("policy") {
		cfg.PricePolicy = c.String("policy")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Int("timeout")
	}
	if c.IsSet("rps") {
		cfg.RequestsPerSecond = c.Float64("rps")
	}

	client, err := amazon.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	client.LogCallback = logger.Infof

	return client, nil
}

// fetchProducts splits the ASINs in batches the API accepts.
func fetchProducts(ctx context.Context, client *amazon.Client, asins []string, offerCount int) ([]*paapi.Product, error) {
	var products []*paapi.Product
	for start := 0; start < len(asins); start += amazon.MaxItemsPerRequest {
		end := start + amazon.MaxItemsPerRequest
		if end > len(asins) {
			end = len(asins)
		}
		batch, err := client.GetItems(ctx, asins[start:end], nil, offerCount)
		if err != nil {
			return nil, err
		}
		products = append(products, batch...)
	}
	return products, nil
}

func itemsAction(c *cli.Context) error {
	asins, err := parseASINs(c.Args().Slice())
	if err != nil {
		return err
	}
	client, err := newAmazonClient(c)
	if err != nil {
		return err
	}

	products, err := fetchProducts(c.Context, client, asins, c.Int("offers"))
	if err != nil {
		return err
	}
	return printJSON(paapi.ExportProducts(products))
}

func compatAction(c *cli.Context) error {
	asins, err := parseASINs(c.Args().Slice())
	if err != nil {
		return err
	}
	client, err := newAmazonClient(c)
	if err != nil {
		return err
	}

	var items []paapi.Item
	for start := 0; start < len(asins); start += amazon.MaxItemsPerRequest {
		end := start + amazon.MaxItemsPerRequest
		if end > len(asins) {
			end = len(asins)
		}
		batch, err := client.GetCompatItems(c.Context, asins[start:end])
		if err != nil {
			return err
		}
		items = append(items, batch...)
	}
	return printJSON(items)
}

func compareAction(c *cli.Context) error {
	asins, err := parseASINs(c.Args().Slice())
	if err != nil {
		return err
	}
	client, err := newAmazonClient(c)
	if err != nil {
		return err
	}

	comparison, err := client.CompareProducts(c.Context, asins)
	if err != nil {
		return err
	}
	return printJSON(comparison)
}

func discountedAction(c *cli.Context) error {
	asins, err := parseASINs(c.Args().Slice())
	if err != nil {
		return err
	}
	client, err := newAmazonClient(c)
	if err != nil {
		return err
	}

	products, err := client.FindDiscountedProducts(c.Context, asins, c.Float64("min"))
	if err != nil {
		return err
	}
	logger.Infof("%d products discounted by at least %.1f%%", len(products), c.Float64("min"))
	return printJSON(products)
}

func primeAction(c *cli.Context) error {
	asins, err := parseASINs(c.Args().Slice())
	if err != nil {
		return err
	}
	client, err := newAmazonClient(c)
	if err != nil {
		return err
	}

	products, err := client.FindPrimeProducts(c.Context, asins)
	if err != nil {
		return err
	}
	return printJSON(products)
}

func reportAction(c *cli.Context) error {
	asins, err := parseASINs(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(asins) != 1 {
		return errors.New("report needs exactly one ASIN")
	}
	client, err := newAmazonClient(c)
	if err != nil {
		return err
	}

	report, err := client.ProductReport(c.Context, asins[0])
	if err != nil {
		return err
	}
	return printJSON(report)
}

// writeExports dumps the exports to the destination, in the format named
// by its extension or by format when set.
func writeExports(ctx context.Context, info paapi.ExportInfo, exports []paapi.Export, output, format string) error {
	if format == "" {
		format = exportFormat(output)
	}
	switch format {
	case "json", "csv", "ndjson":
	default:
		return fmt.Errorf("invalid format %q for %s", format, output)
	}

	err := checkLocation(ctx, output, true)
	if err != nil {
		return err
	}
	writer, err := putData(ctx, output)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		err = paapi.WriteExportsToJSON(info, exports, writer)
	case "csv":
		err = paapi.WriteExportsToCSV(exports, writer)
	case "ndjson":
		err = paapi.WriteExportsToNDJSON(exports, writer)
	default:
		err = fmt.Errorf("invalid format %q", format)
	}
	if err != nil {
		writer.Close()
		return err
	}

	return writer.Close()
}

func readExports(ctx context.Context, input string) (paapi.ExportInfo, []paapi.Export, error) {
	var info paapi.ExportInfo

	err := checkLocation(ctx, input, false)
	if err != nil {
		return info, nil, err
	}
	reader, err := loadData(ctx, input)
	if err != nil {
		return info, nil, err
	}
	defer reader.Close()

	var exports []paapi.Export
	switch exportFormat(input) {
	case "json":
		info, exports, err = paapi.ReadExportsFromJSON(reader)
	case "csv":
		exports, err = paapi.ReadExportsFromCSV(reader)
	case "ndjson":
		exports, err = paapi.ReadExportsFromNDJSON(reader)
	default:
		err = fmt.Errorf("unknown format for %s", input)
	}
	return info, exports, err
}

func exportAction(c *cli.Context) error {
	asins, err := parseASINs(c.Args().Slice())
	if err != nil {
		return err
	}
	client, err := newAmazonClient(c)
	if err != nil {
		return err
	}

	start := time.Now()
	products, err := fetchProducts(c.Context, client, asins, c.Int("offers"))
	if err != nil {
		return err
	}
	logger.Infof("fetching %d products took %s", len(products), time.Since(start))

	now := time.Now().UTC()
	info := paapi.ExportInfo{
		BatchID:     uuid.New().String(),
		Marketplace: client.Marketplace(),
		Timestamp:   &now,
	}

	output := c.String("output")
	err = writeExports(c.Context, info, paapi.ExportProducts(products), output, c.String("format"))
	if err != nil {
		return err
	}
	logger.Infof("batch %s written to %s", info.BatchID, output)

	return nil
}

func convertAction(c *cli.Context) error {
	info, exports, err := readExports(c.Context, c.String("input"))
	if err != nil {
		return err
	}
	if info.BatchID == "" {
		info.BatchID = uuid.New().String()
	}
	logger.Infof("read %d exports from %s", len(exports), c.String("input"))

	return writeExports(c.Context, info, exports, c.String("output"), c.String("format"))
}

func signAction(c *cli.Context) error {
	var payload []byte
	var err error
	switch c.String("payload") {
	case "":
	case "-":
		payload, err = io.ReadAll(os.Stdin)
	default:
		payload, err = os.ReadFile(c.String("payload"))
	}
	if err != nil {
		return err
	}

	timestamp := c.String("timestamp")
	if timestamp == "" {
		timestamp = sigv4.FormatTime(time.Now())
	}
	_, err = time.Parse(sigv4.TimeFormat, timestamp)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", timestamp, err)
	}

	provider := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		c.String("access-key"), c.String("secret-key"), ""))
	signer, err := sigv4.New(
		sigv4.WithCredentialsProvider(c.Context, provider),
		sigv4.WithRegionService(c.String("region"), c.String("service")))
	if err != nil {
		return err
	}

	method := strings.ToUpper(c.String("method"))
	path := c.String("path")
	headers := amazon.SigningHeaders(c.String("host"), c.String("target"), payload, timestamp)
	canonical := sigv4.CanonicalRequest(method, path, payload, headers)

	return printJSON(map[string]interface{}{
		"canonical_request": canonical,
		"string_to_sign":    sigv4.StringToSign(timestamp, signer.CredentialScope(timestamp), canonical),
		"headers":           headers,
		"authorization":     signer.Sign(method, path, payload, timestamp, headers),
	})
}

func marketplacesAction(c *cli.Context) error {
	type entry struct {
		Domain   string `json:"domain"`
		Host     string `json:"host"`
		Region   string `json:"region"`
		Language string `json:"language"`
		Currency string `json:"currency"`
	}

	var out []entry
	for _, mp := range amazon.Marketplaces() {
		out = append(out, entry{
			Domain:   mp.Domain,
			Host:     mp.Host,
			Region:   mp.Region,
			Language: mp.Language.String(),
			Currency: mp.Currency,
		})
	}
	return printJSON(out)
}

func newCreatorsClient(c *cli.Context) (*creators.Client, error) {
	cfg, err := creators.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	client, err := creators.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	client.LogCallback = logger.Infof
	return client, nil
}

func listFeedsAction(c *cli.Context) error {
	client, err := newCreatorsClient(c)
	if err != nil {
		return err
	}

	response, err := client.ListFeeds(c.Context, c.String("marketplace"))
	if err != nil {
		return err
	}
	for _, feed := range response.Feeds {
		logger.Infof("%s - %d KB - %s - %s", feed.FeedName, feed.SizeKB(), feed.LastUpdated, feed.MD5)
	}
	return printJSON(response)
}

func getFeedAction(c *cli.Context) error {
	client, err := newCreatorsClient(c)
	if err != nil {
		return err
	}

	response, err := client.GetFeed(c.Context, c.String("marketplace"), c.String("name"))
	if err != nil {
		return err
	}
	return printJSON(response.Raw)
}

func run() int {
	var err error
	logger, err = newLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Sync()

	clientFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "JSON configuration file, PAAPI_* variables are used when missing",
			EnvVars: []string{"PAAPI_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "marketplace",
			Usage: "Marketplace domain, such as www.amazon.it",
		},
		&cli.StringFlag{
			Name:  "policy",
			Usage: "Price policy (buybox/lowest)",
		},
		&cli.IntFlag{
			Name:  "timeout",
			Usage: "Request timeout in seconds",
		},
		&cli.Float64Flag{
			Name:  "rps",
			Usage: "Maximum requests per second, 0 for no limit",
		},
	}
	offersFlag := &cli.IntFlag{
		Name:  "offers",
		Value: 1,
		Usage: "Number of offers requested per item",
	}
	marketplaceFlag := &cli.StringFlag{
		Name:     "marketplace",
		Usage:    "Marketplace domain, such as www.amazon.com",
		Required: true,
	}

	app := &cli.App{
		Name:  "paapitool",
		Usage: "Query the Amazon Product Advertising API and the Creators API",
		Commands: []*cli.Command{
			{
				Name:      "items",
				Usage:     "Fetch items and print their resolved fields",
				ArgsUsage: "ASIN|link...",
				Flags:     append(clientFlags, offersFlag),
				Action:    itemsAction,
			},
			{
				Name:      "compat",
				Usage:     "Fetch items in the flat legacy format",
				ArgsUsage: "ASIN|link...",
				Flags:     clientFlags,
				Action:    compatAction,
			},
			{
				Name:      "compare",
				Usage:     "Compare prices of up to ten items",
				ArgsUsage: "ASIN|link...",
				Flags:     clientFlags,
				Action:    compareAction,
			},
			{
				Name:      "discounted",
				Usage:     "List discounted items",
				ArgsUsage: "ASIN|link...",
				Flags: append(clientFlags, &cli.Float64Flag{
					Name:  "min",
					Value: 10,
					Usage: "Minimum discount percentage",
				}),
				Action: discountedAction,
			},
			{
				Name:      "prime",
				Usage:     "List items with a Prime offer",
				ArgsUsage: "ASIN|link...",
				Flags:     clientFlags,
				Action:    primeAction,
			},
			{
				Name:      "report",
				Usage:     "Print a full report for one item",
				ArgsUsage: "ASIN|link",
				Flags:     clientFlags,
				Action:    reportAction,
			},
			{
				Name:      "export",
				Usage:     "Export items to a file or bucket (json/csv/ndjson, optionally .xz/.bz2/.gz)",
				ArgsUsage: "ASIN|link...",
				Flags: append(clientFlags, offersFlag,
					&cli.StringFlag{
						Name:     "output",
						Usage:    "Destination path, gs:// or b2:// URL, - for stdout",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format when not implied by the destination",
					},
				),
				Action: exportAction,
			},
			{
				Name:  "convert",
				Usage: "Convert an export between formats",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Usage:    "Source path, URL or bucket object",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Usage:    "Destination path, gs:// or b2:// URL, - for stdout",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format when not implied by the destination",
					},
				},
				Action: convertAction,
			},
			{
				Name:  "sign",
				Usage: "Print the SigV4 signature of a request",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "access-key", EnvVars: []string{"PAAPI_ACCESS_KEY"}, Required: true},
					&cli.StringFlag{Name: "secret-key", EnvVars: []string{"PAAPI_SECRET_KEY"}, Required: true},
					&cli.StringFlag{Name: "region", Value: "us-east-1"},
					&cli.StringFlag{Name: "service", Value: amazon.ServiceName},
					&cli.StringFlag{Name: "host", Value: "webservices.amazon.com"},
					&cli.StringFlag{Name: "method", Value: "POST"},
					&cli.StringFlag{Name: "path", Value: amazon.GetItemsPath},
					&cli.StringFlag{Name: "target", Value: amazon.GetItemsTarget},
					&cli.StringFlag{Name: "payload", Usage: "File with the request body, - for stdin"},
					&cli.StringFlag{Name: "timestamp", Usage: "Request time as " + sigv4.TimeFormat},
				},
				Action: signAction,
			},
			{
				Name:   "marketplaces",
				Usage:  "List the supported marketplaces",
				Action: marketplacesAction,
			},
			{
				Name:  "feeds",
				Usage: "Creators API feeds, configured with CREATORS_* variables",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List the available feeds",
						Flags:  []cli.Flag{marketplaceFlag},
						Action: listFeedsAction,
					},
					{
						Name:  "get",
						Usage: "Get the location of a feed",
						Flags: []cli.Flag{
							marketplaceFlag,
							&cli.StringFlag{Name: "name", Usage: "Feed name", Required: true},
						},
						Action: getFeedAction,
					},
				},
			},
		},
	}

	err = app.RunContext(context.Background(), os.Args)
	if err != nil {
		logger.Error(err)

		var authErr *amazon.AuthenticationError
		if errors.As(err, &authErr) {
			logger.Error("check the access key, secret key and partner tag")
		}
		return 1
	}

	return 0
}

func main() {
	os.Exit(run())
}
