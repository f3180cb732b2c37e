package ledger

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"payflow/models"
)

const UnassignedJob = "Unassigned"

// Period names used as keys in Report.Periods.
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

var dateLayouts = []string{"2006-1-2", "2006/1/2"}

// ParseDate accepts YYYY-MM-DD and YYYY/MM/DD and returns midnight UTC.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Filter narrows the filtered totals of a report. Zero Start/End mean unbounded.
// JobIDs, when set, also restricts the shifts counted in the periods.
type Filter struct {
	Start  time.Time
	End    time.Time
	JobIDs []int64
}

func (f Filter) hasRange() bool {
	return !f.Start.IsZero() || !f.End.IsZero()
}

// inRange reports whether a record dated d (ok=false when unparsable) falls in
// the filter window. Undated records only count when no window is set.
func (f Filter) inRange(d time.Time, ok bool) bool {
	if !ok {
		return !f.hasRange()
	}
	if !f.Start.IsZero() && d.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && d.After(f.End) {
		return false
	}
	return true
}

func (f Filter) matchesJob(jobID *int64) bool {
	if len(f.JobIDs) == 0 {
		return true
	}
	if jobID == nil {
		return false
	}
	for _, id := range f.JobIDs {
		if id == *jobID {
			return true
		}
	}
	return false
}

type PeriodTotals struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

type Report struct {
	IncomeTotal  float64                 `json:"income_total"`
	ExpenseTotal float64                 `json:"expense_total"`
	Net          float64                 `json:"net"`
	ByJob        map[string]float64      `json:"by_job"`
	ByCategory   map[string]float64      `json:"by_category"`
	Periods      map[string]PeriodTotals `json:"periods"`
}

type period struct {
	name    string
	start   time.Time
	income  decimal.Decimal
	expense decimal.Decimal
}

// periodsFor returns the current week (from Monday), month and year as of today.
func periodsFor(today time.Time) []*period {
	offset := (int(today.Weekday()) + 6) % 7
	return []*period{
		{name: PeriodWeek, start: today.AddDate(0, 0, -offset)},
		{name: PeriodMonth, start: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)},
		{name: PeriodYear, start: time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
}

// BuildReport aggregates shift income and expenses in one pass over each list.
//
// Period totals ignore the Start/End window; a record counts toward a period
// when its date parses, is not after today and is on or after the period start.
func BuildReport(shifts []models.Shift, expenses []models.Expense, f Filter, now time.Time) Report {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	periods := periodsFor(today)

	bucket := func(d time.Time, ok bool, amount decimal.Decimal, income bool) {
		if !ok || d.After(today) {
			return
		}
		for _, p := range periods {
			if d.Before(p.start) {
				continue
			}
			if income {
				p.income = p.income.Add(amount)
			} else {
				p.expense = p.expense.Add(amount)
			}
		}
	}

	incomeTotal := decimal.Zero
	byJob := map[string]decimal.Decimal{}
	for _, s := range shifts {
		if !f.matchesJob(s.JobID) {
			continue
		}
		d, ok := ParseDate(s.Date)
		wage := parseAmount(s.TotalWage)
		bucket(d, ok, wage, true)
		if !f.inRange(d, ok) {
			continue
		}
		incomeTotal = incomeTotal.Add(wage)
		name := UnassignedJob
		if s.JobName != nil {
			name = *s.JobName
		}
		byJob[name] = byJob[name].Add(wage)
	}

	expenseTotal := decimal.Zero
	byCategory := map[string]decimal.Decimal{}
	for _, e := range expenses {
		d, ok := ParseDate(e.Date)
		amount := safeDecimal(e.Amount)
		bucket(d, ok, amount, false)
		if !f.inRange(d, ok) {
			continue
		}
		expenseTotal = expenseTotal.Add(amount)
		byCategory[e.Category] = byCategory[e.Category].Add(amount)
	}

	report := Report{
		IncomeTotal:  incomeTotal.InexactFloat64(),
		ExpenseTotal: expenseTotal.InexactFloat64(),
		Net:          incomeTotal.Sub(expenseTotal).InexactFloat64(),
		ByJob:        toFloats(byJob),
		ByCategory:   toFloats(byCategory),
		Periods:      make(map[string]PeriodTotals, len(periods)),
	}
	for _, p := range periods {
		report.Periods[p.name] = PeriodTotals{
			Income:  p.income.InexactFloat64(),
			Expense: p.expense.InexactFloat64(),
			Net:     p.income.Sub(p.expense).InexactFloat64(),
		}
	}
	return report
}

// parseAmount reads a client-supplied wage string; anything unparsable is 0.
func parseAmount(s string) decimal.Decimal {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return decimal.Zero
	}
	return safeDecimal(f)
}

func safeDecimal(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func toFloats(m map[string]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v.InexactFloat64()
	}
	return out
}
