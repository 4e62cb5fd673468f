package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cover string

const (
	CoverHard Cover = "HARD"
	CoverSoft Cover = "SOFT"
)

type Book struct {
	ID        int             `json:"id" db:"id"`
	Title     string          `json:"title" db:"title"`
	Author    string          `json:"author" db:"author"`
	Cover     Cover           `json:"cover" db:"cover"`
	Inventory int             `json:"inventory" db:"inventory"`
	DailyFee  decimal.Decimal `json:"dailyFee" db:"daily_fee"`
}

func (b Book) Available() bool {
	return b.Inventory > 0
}

type Borrowing struct {
	ID                 int        `json:"id" db:"id"`
	BookID             int        `json:"bookId" db:"book_id"`
	UserName           string     `json:"userName" db:"user_name"`
	BorrowDate         time.Time  `json:"borrowDate" db:"borrow_date"`
	ExpectedReturnDate time.Time  `json:"expectedReturnDate" db:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actualReturnDate" db:"actual_return_date"`
}

func (b Borrowing) Active() bool {
	return b.ActualReturnDate == nil
}

func (b Borrowing) Overdue(today time.Time) bool {
	return b.Active() && ToDate(today).After(ToDate(b.ExpectedReturnDate))
}

// OverdueDays is the whole-day overshoot past the expected return date,
// floored at zero.
func (b Borrowing) OverdueDays(today time.Time) int {
	if !b.Overdue(today) {
		return 0
	}
	days := int(ToDate(today).Sub(ToDate(b.ExpectedReturnDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// PlannedDays is the paid rental period agreed at creation.
func (b Borrowing) PlannedDays() int {
	days := int(ToDate(b.ExpectedReturnDate).Sub(ToDate(b.BorrowDate)).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// OverdueBorrowing joins the borrowing with the book fee the fine formula needs.
type OverdueBorrowing struct {
	Borrowing
	BookTitle string          `json:"bookTitle" db:"title"`
	DailyFee  decimal.Decimal `json:"dailyFee" db:"daily_fee"`
}

type PaymentType string

const (
	TypePayment PaymentType = "PAYMENT"
	TypeFine    PaymentType = "FINE"
)

type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusPaid    PaymentStatus = "PAID"
	StatusExpired PaymentStatus = "EXPIRED"
)

type Payment struct {
	ID          int             `json:"id" db:"id"`
	BorrowingID int             `json:"borrowingId" db:"borrowing_id"`
	Type        PaymentType     `json:"type" db:"type"`
	Status      PaymentStatus   `json:"status" db:"status"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	SessionID   string          `json:"sessionId" db:"session_id"`
	SessionURL  string          `json:"sessionUrl" db:"session_url"`
	RefundRef   *string         `json:"refundRef,omitempty" db:"refund_ref"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

type CreateBorrowingRequest struct {
	BookID             int    `json:"bookId" validate:"required,gt=0"`
	ExpectedReturnDate Date   `json:"expectedReturnDate" validate:"required"`
	UserName           string `json:"-" validate:"required"`
}

type ReturnBorrowingRequest struct {
	Date Date `json:"date" validate:"required"`
}

type WaiveFineRequest struct {
	Reason string `json:"reason"`
}

type CreatePaymentRequest struct {
	BorrowingID int         `json:"borrowingId" validate:"required,gt=0"`
	Type        PaymentType `json:"type" validate:"required,oneof=PAYMENT FINE"`
}

type VerifyPaymentRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type RefundPaymentRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// BorrowingFilter narrows List queries. Non-admin callers are always pinned
// to their own UserName by the service layer.
type BorrowingFilter struct {
	UserName string
	All      bool
	Active   *bool
	Overdue  *bool
	Page     int
	Size     int
}

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalElements int `json:"totalElements"`
}

type ListBorrowings struct {
	Paging `json:",inline"`
	Items  []Borrowing `json:"items"`
}

// IssueError is one failed borrowing inside a fine scan report.
type IssueError struct {
	BorrowingID int    `json:"borrowingId"`
	Error       string `json:"error"`
}

// IssueReport summarizes a fine scan. Partial failures never abort the scan.
type IssueReport struct {
	TotalOverdue int          `json:"totalOverdue"`
	Created      int          `json:"created"`
	Skipped      int          `json:"skipped"`
	Failed       int          `json:"failed"`
	Errors       []IssueError `json:"errors,omitempty"`
}

// Date binds JSON "2006-01-02" values.
type Date struct {
	time.Time `json:",inline"`
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		return nil
	}
	t, err := time.Parse(`"`+time.DateOnly+`"`, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

// ToDate truncates a timestamp to its UTC calendar date.
func ToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
