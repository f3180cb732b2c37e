package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// EmailOrEmpty returns the email address, or "" when none is set.
func (u User) EmailOrEmpty() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

type Job struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"-"`
	Name       string  `json:"name"`
	HourlyWage float64 `json:"hourly_wage"`
	Currency   string  `json:"currency"`
	Color      string  `json:"color"`
}

const (
	DefaultCurrency = "¥"
	DefaultJobColor = "#4f46e5"
)

// Shift values are kept exactly as the client sent them.
type Shift struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"-"`
	JobID      *int64  `json:"job_id"`
	JobName    *string `json:"job_name"`
	JobColor   *string `json:"job_color"`
	Date       string  `json:"date"`
	ShiftType  string  `json:"shift_type"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	BreakStart string  `json:"break_start"`
	BreakEnd   string  `json:"break_end"`
	TotalHours string  `json:"total_hours"`
	HourlyWage string  `json:"hourly_wage"`
	Currency   string  `json:"currency"`
	TotalWage  string  `json:"total_wage"`
}

type Expense struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"-"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

const DefaultExpenseCategory = "General"

type Budget struct {
	ID       int64   `json:"id"`
	UserID   int64   `json:"-"`
	Month    string  `json:"month"` // YYYY-MM
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type Receipt struct {
	ID         int64         `json:"id"`
	UserID     int64         `json:"-"`
	Title      string        `json:"title"`
	Date       string        `json:"date"`
	Subtotal   float64       `json:"subtotal"`
	TaxTotal   float64       `json:"tax_total"`
	GrandTotal float64       `json:"grand_total"`
	Note       string        `json:"note"`
	CreatedAt  time.Time     `json:"created_at"`
	Items      []ReceiptItem `json:"items"`
}

type ReceiptItem struct {
	ID          int64   `json:"id"`
	ReceiptID   int64   `json:"-"`
	Date        string  `json:"date"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRate     float64 `json:"tax_rate"`
	LineTotal   float64 `json:"line_total"`
}
