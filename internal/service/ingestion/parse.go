package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/davidleathers/energy-plan-advisor/internal/domain/clock"
	"github.com/davidleathers/energy-plan-advisor/internal/domain/customer"
)

const (
	DefaultDateColumn  = "date"
	DefaultUsageColumn = "kwh"

	maxReportedErrors = 10
)

var (
	dateAliases  = []string{"date", "month", "period", "usage_date"}
	usageAliases = []string{"kwh", "usage", "consumption", "kwh_usage"}

	// jsonDateKeys and jsonUsageKeys are tried in order; the first present key wins.
	jsonDateKeys  = []string{"usage_date", "date", "month", "period"}
	jsonUsageKeys = []string{"kwh_usage", "kwh", "usage", "consumption"}

	dateLayouts = []string{"2006-01-02", "01/02/2006", "02/01/2006", "2006/01/02", "2006-01"}
)

// Result summarizes one parse. Errors keeps the first few row failures; RecordsFailed
// counts all of them.
type Result struct {
	Success          bool     `json:"success"`
	RecordsProcessed int      `json:"records_processed"`
	RecordsFailed    int      `json:"records_failed"`
	Errors           []string `json:"errors"`
	Warnings         []string `json:"warnings"`
}

func failed(msgs ...string) Result {
	return Result{Errors: msgs, Warnings: []string{}}
}

// ParseCSV reads monthly usage from CSV. Column names are matched case-insensitively,
// the preferred name first and then the common aliases. Bad rows are reported without
// aborting the parse.
func ParseCSV(r io.Reader, dateColumn, usageColumn string) ([]customer.UsageRecord, Result) {
	if dateColumn == "" {
		dateColumn = DefaultDateColumn
	}
	if usageColumn == "" {
		usageColumn = DefaultUsageColumn
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, failed("CSV file appears to be empty or invalid")
	}
	if err != nil {
		return nil, failed(fmt.Sprintf("CSV parsing error: %v", err))
	}

	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	dateIdx := findColumn(fields, dateColumn, dateAliases)
	usageIdx := findColumn(fields, usageColumn, usageAliases)

	var colErrs []string
	if dateIdx < 0 {
		colErrs = append(colErrs, fmt.Sprintf("Could not find date column. Expected: %s", dateColumn))
	}
	if usageIdx < 0 {
		colErrs = append(colErrs, fmt.Sprintf("Could not find usage column. Expected: %s", usageColumn))
	}
	if len(colErrs) > 0 {
		return nil, failed(colErrs...)
	}

	var (
		records []customer.UsageRecord
		rowErrs []string
	)

	// Header is row 1.
	for row := 2; ; row++ {
		cols, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, failed(fmt.Sprintf("CSV parsing error: %v", err))
		}

		dateVal, usageVal := cell(cols, dateIdx), cell(cols, usageIdx)
		if dateVal == "" || usageVal == "" {
			rowErrs = append(rowErrs, fmt.Sprintf("Row %d: Missing required values", row))
			continue
		}

		rec, err := parseRow(dateVal, usageVal)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Sprintf("Row %d: %v", row, err))
			continue
		}
		records = append(records, rec)
	}

	return finish(records, rowErrs)
}

// ParseJSON reads usage rows decoded from a JSON array of objects.
func ParseJSON(rows []map[string]any) ([]customer.UsageRecord, Result) {
	var (
		records []customer.UsageRecord
		rowErrs []string
	)

	for i, item := range rows {
		dateVal, okDate := firstKey(item, jsonDateKeys)
		usageVal, okUsage := firstKey(item, jsonUsageKeys)
		if !okDate || !okUsage {
			rowErrs = append(rowErrs, fmt.Sprintf("Item %d: Missing required fields", i))
			continue
		}

		period, err := parseDateValue(dateVal)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Sprintf("Item %d: %v", i, err))
			continue
		}
		kwh, err := parseKWhValue(usageVal)
		if err != nil {
			rowErrs = append(rowErrs, fmt.Sprintf("Item %d: %v", i, err))
			continue
		}
		records = append(records, customer.UsageRecord{Period: clock.MonthStart(period), KWh: kwh})
	}

	return finish(records, rowErrs)
}

// finish dedupes, orders and annotates a parsed batch.
func finish(records []customer.UsageRecord, rowErrs []string) ([]customer.UsageRecord, Result) {
	records, dupWarnings := dedupe(records)
	records = customer.SortUsage(records)

	warnings := qualityWarnings(records)
	warnings = append(warnings, dupWarnings...)

	reported := rowErrs
	if len(reported) > maxReportedErrors {
		reported = reported[:maxReportedErrors]
	}
	if reported == nil {
		reported = []string{}
	}

	return records, Result{
		Success:          len(records) > 0,
		RecordsProcessed: len(records),
		RecordsFailed:    len(rowErrs),
		Errors:           reported,
		Warnings:         warnings,
	}
}

// dedupe keeps the last record for each calendar month.
func dedupe(records []customer.UsageRecord) ([]customer.UsageRecord, []string) {
	index := make(map[time.Time]int, len(records))
	out := make([]customer.UsageRecord, 0, len(records))
	var warnings []string

	for _, r := range records {
		if i, dup := index[r.Period]; dup {
			out[i] = r
			warnings = append(warnings, fmt.Sprintf(
				"Duplicate usage for %s; the later value of %s kWh was kept.",
				r.Period.Format("2006-01"), r.KWh.String()))
			continue
		}
		index[r.Period] = len(out)
		out = append(out, r)
	}
	return out, warnings
}

func findColumn(fields []string, preferred string, aliases []string) int {
	candidates := append([]string{strings.ToLower(strings.TrimSpace(preferred))}, aliases...)
	for _, c := range candidates {
		for i, f := range fields {
			if f == c {
				return i
			}
		}
	}
	return -1
}

func cell(cols []string, idx int) string {
	if idx >= len(cols) {
		return ""
	}
	return strings.TrimSpace(cols[idx])
}

// firstKey matches keys case-insensitively, like the CSV header. An exact match wins over
// a folded one.
func firstKey(item map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := item[k]; ok && v != nil {
			return v, true
		}
		for name, v := range item {
			if v != nil && strings.EqualFold(strings.TrimSpace(name), k) {
				return v, true
			}
		}
	}
	return nil, false
}

func parseRow(dateVal, usageVal string) (customer.UsageRecord, error) {
	period, err := parseDate(dateVal)
	if err != nil {
		return customer.UsageRecord{}, err
	}
	kwh, err := parseKWh(usageVal)
	if err != nil {
		return customer.UsageRecord{}, err
	}
	return customer.UsageRecord{Period: clock.MonthStart(period), KWh: kwh}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

func parseDateValue(v any) (time.Time, error) {
	switch d := v.(type) {
	case string:
		return parseDate(d)
	case time.Time:
		return d, nil
	default:
		return time.Time{}, fmt.Errorf("invalid date type: %T", v)
	}
}

func parseKWh(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse kWh usage: %s", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("kWh usage must be non-negative: %s", s)
	}
	return d, nil
}

func parseKWhValue(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case string:
		return parseKWh(n)
	case json.Number:
		return parseKWh(n.String())
	case float64:
		return parseKWh(decimal.NewFromFloat(n).String())
	case int:
		return parseKWh(fmt.Sprint(n))
	case int64:
		return parseKWh(fmt.Sprint(n))
	case decimal.Decimal:
		return parseKWh(n.String())
	default:
		return decimal.Zero, fmt.Errorf("invalid kWh type: %T", v)
	}
}
