package paapi

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

// The canonical header that will be present in all export files
var ExportHeader = []string{
	"ASIN", "Title", "Brand", "Manufacturer", "Currency",
	"Price", "Original Price", "Discount Amount", "Discount Percentage",
	"Prime", "In Stock", "Availability", "Condition", "Active Deal", "Deal Badge", "Savings Basis Type",
	"Image URL", "Detail Page URL",
}

func formatNullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func parseNullDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func WriteExportsToCSV(exports []Export, w io.Writer) error {
	csvWriter := csv.NewWriter(w)
	err := csvWriter.Write(ExportHeader)
	if err != nil {
		return err
	}

	for _, entry := range exports {
		err = csvWriter.Write([]string{
			entry.ASIN,
			entry.Title,
			entry.Brand,
			entry.Manufacturer,
			entry.Currency,
			formatNullDecimal(entry.Price),
			formatNullDecimal(entry.OriginalPrice),
			formatNullDecimal(entry.DiscountAmount),
			formatNullDecimal(entry.DiscountPercentage),
			strconv.FormatBool(entry.HasPrime),
			strconv.FormatBool(entry.InStock),
			entry.Availability,
			entry.Condition,
			strconv.FormatBool(entry.HasActiveDeal),
			entry.DealBadge,
			entry.SavingsBasisType,
			entry.ImageURL,
			entry.DetailPageURL,
		})
		if err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func ReadExportsFromCSV(r io.Reader) ([]Export, error) {
	csvReader := csv.NewReader(r)
	first, err := csvReader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("Empty input file")
	}
	if err != nil {
		return nil, fmt.Errorf("Error reading header: %v", err)
	}

	okHeader := len(first) >= len(ExportHeader)
	if okHeader {
		for i, tag := range ExportHeader {
			if tag != first[i] {
				okHeader = false
				break
			}
		}
	}
	if !okHeader {
		return nil, fmt.Errorf("Malformed export file")
	}

	var exports []Export
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Error reading record: %v", err)
		}

		entry, err := exportFromRecord(record)
		if err != nil {
			return nil, fmt.Errorf("Error reading record %s: %v", record[0], err)
		}
		exports = append(exports, entry)
	}

	return exports, nil
}

func exportFromRecord(record []string) (Export, error) {
	entry := Export{
		ASIN:             record[0],
		Title:            record[1],
		Brand:            record[2],
		Manufacturer:     record[3],
		Currency:         record[4],
		Availability:     record[11],
		Condition:        record[12],
		DealBadge:        record[14],
		SavingsBasisType: record[15],
		ImageURL:         record[16],
		DetailPageURL:    record[17],
	}

	var err error
	amounts := []*decimal.NullDecimal{
		&entry.Price, &entry.OriginalPrice, &entry.DiscountAmount, &entry.DiscountPercentage,
	}
	for i, amount := range amounts {
		*amount, err = parseNullDecimal(record[5+i])
		if err != nil {
			return entry, err
		}
	}

	flags := map[int]*bool{
		9:  &entry.HasPrime,
		10: &entry.InStock,
		13: &entry.HasActiveDeal,
	}
	for idx, flag := range flags {
		*flag, err = strconv.ParseBool(record[idx])
		if err != nil {
			return entry, err
		}
	}

	return entry, nil
}
