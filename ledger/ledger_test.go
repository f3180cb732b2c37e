package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payflow/models"
)

// Friday 2026-10-16; the week starts Monday 2026-10-12.
var now = time.Date(2026, time.October, 16, 15, 30, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }
func idPtr(i int64) *int64    { return &i }

func TestPriceItems(t *testing.T) {
	items := []models.ReceiptItem{
		{Quantity: 2, UnitPrice: 10, TaxRate: 10},
		{Quantity: 1, UnitPrice: 5, TaxRate: 0},
	}
	totals := PriceItems(items)

	var r models.Receipt
	totals.Apply(&r)
	assert.Equal(t, 25.0, r.Subtotal)
	assert.Equal(t, 2.0, r.TaxTotal)
	assert.Equal(t, 27.0, r.GrandTotal)
	assert.Equal(t, 22.0, items[0].LineTotal)
	assert.Equal(t, 5.0, items[1].LineTotal)
}

func TestPriceItemsClampsQuantityAndAvoidsFloatDrift(t *testing.T) {
	items := []models.ReceiptItem{
		{Quantity: -3, UnitPrice: 10, TaxRate: 8},
		{Quantity: 3, UnitPrice: 0.1, TaxRate: 0},
	}
	totals := PriceItems(items)

	assert.Equal(t, int64(0), items[0].Quantity)
	assert.Equal(t, 0.0, items[0].LineTotal)
	assert.Equal(t, "0.3", totals.Subtotal.String())
	assert.Equal(t, "0.3", totals.GrandTotal.String())
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2026-10-16", true},
		{"2026/10/16", true},
		{"2026-1-5", true},
		{" 2026-10-16 ", true},
		{"16/10/2026", false},
		{"2026-13-01", false},
		{"", false},
		{"yesterday", false},
	}
	for _, tc := range cases {
		_, ok := ParseDate(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}

	d, ok := ParseDate("2026/10/16")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), d)
}

func TestReportPeriods(t *testing.T) {
	shifts := []models.Shift{
		{Date: "2026-10-10", TotalWage: "100"}, // this month, last week
		{Date: "2026-10-13", TotalWage: "50"},  // this week
		{Date: "2026-10-20", TotalWage: "999"}, // future, no period
	}
	expenses := []models.Expense{
		{Date: "2026-09-01", Category: "Food", Amount: 30}, // prior month
	}

	r := BuildReport(shifts, expenses, Filter{}, now)

	assert.Equal(t, PeriodTotals{Income: 50, Expense: 0, Net: 50}, r.Periods[PeriodWeek])
	assert.Equal(t, PeriodTotals{Income: 150, Expense: 0, Net: 150}, r.Periods[PeriodMonth])
	assert.Equal(t, PeriodTotals{Income: 150, Expense: 30, Net: 120}, r.Periods[PeriodYear])

	// The unfiltered totals include the future shift.
	assert.Equal(t, 1149.0, r.IncomeTotal)
	assert.Equal(t, 30.0, r.ExpenseTotal)
	assert.Equal(t, 1119.0, r.Net)
}

func TestReportPriorYearExcludedFromYear(t *testing.T) {
	expenses := []models.Expense{{Date: "2025-12-31", Category: "Rent", Amount: 500}}
	r := BuildReport(nil, expenses, Filter{}, now)

	assert.Equal(t, 0.0, r.Periods[PeriodYear].Expense)
	assert.Equal(t, 500.0, r.ExpenseTotal)
}

func TestReportRangeFilterAndBreakdowns(t *testing.T) {
	shifts := []models.Shift{
		{Date: "2026-10-01", TotalWage: "80", JobID: idPtr(1), JobName: strPtr("Cafe")},
		{Date: "2026-10-02", TotalWage: "20", JobID: idPtr(1), JobName: strPtr("Cafe")},
		{Date: "2026-10-03", TotalWage: "abc"},
		{Date: "2026-09-01", TotalWage: "500", JobID: idPtr(2), JobName: strPtr("Shop")},
		{Date: "someday", TotalWage: "7"},
	}
	expenses := []models.Expense{
		{Date: "2026/10/05", Category: "Food", Amount: 12.5},
		{Date: "2026-10-06", Category: "Food", Amount: 7.5},
		{Date: "2026-10-07", Category: "Travel", Amount: 40},
		{Date: "not a date", Category: "Misc", Amount: 1},
	}
	start, _ := ParseDate("2026-10-01")
	end, _ := ParseDate("2026-10-31")

	r := BuildReport(shifts, expenses, Filter{Start: start, End: end}, now)

	assert.Equal(t, 100.0, r.IncomeTotal)
	assert.Equal(t, map[string]float64{"Cafe": 100, UnassignedJob: 0}, r.ByJob)
	assert.Equal(t, map[string]float64{"Food": 20, "Travel": 40}, r.ByCategory)
	assert.Equal(t, 60.0, r.ExpenseTotal)
	assert.Equal(t, 40.0, r.Net)

	// Periods ignore the window but still skip unparsable dates.
	assert.Equal(t, 600.0, r.Periods[PeriodYear].Income)
}

func TestReportUndatedRecordsWithoutRange(t *testing.T) {
	shifts := []models.Shift{{Date: "someday", TotalWage: "7"}}
	r := BuildReport(shifts, nil, Filter{}, now)

	assert.Equal(t, 7.0, r.IncomeTotal)
	assert.Equal(t, 7.0, r.ByJob[UnassignedJob])
	assert.Equal(t, 0.0, r.Periods[PeriodYear].Income)
}

func TestReportJobFilter(t *testing.T) {
	shifts := []models.Shift{
		{Date: "2026-10-14", TotalWage: "10", JobID: idPtr(1), JobName: strPtr("Cafe")},
		{Date: "2026-10-14", TotalWage: "20", JobID: idPtr(2), JobName: strPtr("Shop")},
		{Date: "2026-10-14", TotalWage: "40"},
	}
	r := BuildReport(shifts, nil, Filter{JobIDs: []int64{2}}, now)

	assert.Equal(t, 20.0, r.IncomeTotal)
	assert.Equal(t, map[string]float64{"Shop": 20}, r.ByJob)
	assert.Equal(t, 20.0, r.Periods[PeriodWeek].Income)
}

func TestReportEmpty(t *testing.T) {
	r := BuildReport(nil, nil, Filter{}, now)

	assert.Empty(t, r.ByJob)
	assert.Empty(t, r.ByCategory)
	assert.Len(t, r.Periods, 3)
}
