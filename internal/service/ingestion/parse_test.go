package ingestion

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestParseCSV_Basic(t *testing.T) {
	input := "date,kwh\n2024-01-01,950\n2024-02-15,\"1,875\"\n2024-03-01, 820.5 \n"

	records, result := ParseCSV(strings.NewReader(input), "", "")

	require.True(t, result.Success)
	assert.Equal(t, 3, result.RecordsProcessed)
	assert.Equal(t, 0, result.RecordsFailed)
	assert.Empty(t, result.Errors)

	require.Len(t, records, 3)
	assert.Equal(t, month(2024, 2), records[1].Period)
	assert.True(t, records[1].KWh.Equal(decimal.NewFromInt(1875)))
	assert.True(t, records[2].KWh.Equal(decimal.RequireFromString("820.5")))
	assert.Equal(t, []string{"Only 3 months of data provided. 12 months recommended for accurate projections."},
		result.Warnings)
}

func TestParseCSV_ColumnMatching(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		dateCol  string
		usageCol string
		wantOK   bool
		wantErrs []string
	}{
		{name: "defaults", header: "date,kwh", wantOK: true},
		{name: "aliases case-insensitive", header: "Usage_Date, Consumption", wantOK: true},
		{name: "preferred names", header: "reading_month,reading", dateCol: "Reading_Month", usageCol: "READING", wantOK: true},
		{name: "preferred name beats alias", header: "month,kwh,date", dateCol: "month", wantOK: true},
		{
			name:   "missing both",
			header: "when,amount",
			wantErrs: []string{
				"Could not find date column. Expected: date",
				"Could not find usage column. Expected: kwh",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := strings.Count(tt.header, ",") + 1
			row := "2024-01-01" + strings.Repeat(",100", cols-1)
			records, result := ParseCSV(strings.NewReader(tt.header+"\n"+row+"\n"), tt.dateCol, tt.usageCol)

			assert.Equal(t, tt.wantOK, result.Success)
			if tt.wantOK {
				require.Len(t, records, 1)
				assert.Equal(t, month(2024, 1), records[0].Period)
				return
			}
			assert.Equal(t, tt.wantErrs, result.Errors)
			assert.Empty(t, records)
		})
	}
}

func TestParseCSV_DateFormats(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-03-05", month(2024, 3)},
		{"03/05/2024", month(2024, 3)},
		{"25/03/2024", month(2024, 3)},
		{"2024/03/05", month(2024, 3)},
		{"2024-03", month(2024, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			records, result := ParseCSV(strings.NewReader("date,kwh\n"+tt.input+",500\n"), "", "")
			require.True(t, result.Success, result.Errors)
			assert.Equal(t, tt.want, records[0].Period)
		})
	}
}

func TestParseCSV_RowErrors(t *testing.T) {
	input := strings.Join([]string{
		"date,kwh",
		"2024-01-01,900",
		"2024-02-01,-5",
		"not-a-date,100",
		"2024-04-01,",
		"2024-05-01,abc",
		"2024-06-01,700",
	}, "\n")

	records, result := ParseCSV(strings.NewReader(input), "", "")

	assert.True(t, result.Success)
	assert.Len(t, records, 2)
	assert.Equal(t, 4, result.RecordsFailed)
	assert.Equal(t, []string{
		"Row 3: kWh usage must be non-negative: -5",
		"Row 4: unable to parse date: not-a-date",
		"Row 5: Missing required values",
		"Row 6: unable to parse kWh usage: abc",
	}, result.Errors)
}

func TestParseCSV_ErrorListIsCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("date,kwh\n")
	for i := 0; i < 15; i++ {
		b.WriteString("bad,1\n")
	}

	records, result := ParseCSV(strings.NewReader(b.String()), "", "")

	assert.False(t, result.Success)
	assert.Empty(t, records)
	assert.Equal(t, 15, result.RecordsFailed)
	assert.Len(t, result.Errors, maxReportedErrors)
}

func TestParseCSV_Empty(t *testing.T) {
	_, result := ParseCSV(strings.NewReader(""), "", "")
	assert.False(t, result.Success)
	assert.Equal(t, []string{"CSV file appears to be empty or invalid"}, result.Errors)
}

func TestParseCSV_DuplicatePeriodKeepsLaterRow(t *testing.T) {
	input := "date,kwh\n2024-01-05,100\n2024-02-01,300\n2024-01-20,200\n"

	records, result := ParseCSV(strings.NewReader(input), "", "")

	require.Len(t, records, 2)
	assert.Equal(t, month(2024, 1), records[0].Period)
	assert.True(t, records[0].KWh.Equal(decimal.NewFromInt(200)))
	assert.Contains(t, result.Warnings, "Duplicate usage for 2024-01; the later value of 200 kWh was kept.")
}

func TestParseJSON(t *testing.T) {
	var rows []map[string]any
	decoder := json.NewDecoder(strings.NewReader(`[
		{"date": "2024-01-01", "kwh": 950},
		{"usage_date": "2024-02-01", "kwh_usage": "1,020.5"},
		{"month": "2024-03", "consumption": 880.25},
		{"period": "2024-04-01"},
		{"date": 20240501, "kwh": 10},
		{"date": "2024-06-01", "usage": -1}
	]`))
	decoder.UseNumber()
	require.NoError(t, decoder.Decode(&rows))

	records, result := ParseJSON(rows)

	require.True(t, result.Success)
	require.Len(t, records, 3)
	assert.True(t, records[0].KWh.Equal(decimal.NewFromInt(950)))
	assert.True(t, records[1].KWh.Equal(decimal.RequireFromString("1020.5")))
	assert.True(t, records[2].KWh.Equal(decimal.RequireFromString("880.25")))
	assert.Equal(t, month(2024, 3), records[2].Period)

	assert.Equal(t, 3, result.RecordsFailed)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, "Item 3: Missing required fields", result.Errors[0])
	assert.Contains(t, result.Errors[1], "Item 4: invalid date type")
	assert.Equal(t, "Item 5: kWh usage must be non-negative: -1", result.Errors[2])
}

func TestParseJSON_NativeNumbers(t *testing.T) {
	records, result := ParseJSON([]map[string]any{
		{"date": "2024-01-01", "kwh": float64(512.5)},
		{"date": "2024-02-01", "kwh": 640},
	})

	require.True(t, result.Success)
	assert.True(t, records[0].KWh.Equal(decimal.RequireFromString("512.5")))
	assert.True(t, records[1].KWh.Equal(decimal.NewFromInt(640)))
}

func TestParseJSON_KeysAreCaseInsensitive(t *testing.T) {
	records, result := ParseJSON([]map[string]any{
		{"Date": "2024-01-01", "KWh": 300},
		{"USAGE_DATE": "2024-02-01", "Kwh_Usage": "310"},
		{" Month ": "2024-03", "Consumption": 320},
	})

	require.True(t, result.Success, result.Errors)
	require.Len(t, records, 3)
	assert.Zero(t, result.RecordsFailed)
	assert.Equal(t, month(2024, 2), records[1].Period)
	assert.True(t, records[2].KWh.Equal(decimal.NewFromInt(320)))
}
