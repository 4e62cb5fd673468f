package handler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/libranova/library-service/internal/model"
	"github.com/libranova/library-service/internal/service/book"
	"github.com/libranova/library-service/internal/service/borrowing"
	"github.com/libranova/library-service/internal/service/fine"
	"github.com/libranova/library-service/internal/service/payment"
	"github.com/libranova/library-service/pkg/auth"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type BorrowingService interface {
	Create(ctx context.Context, req model.CreateBorrowingRequest) (model.Borrowing, error)
	Return(ctx context.Context, id int, returnDate time.Time, actor auth.Actor) (model.Borrowing, error)
	Get(ctx context.Context, id int, actor auth.Actor) (model.Borrowing, error)
	List(ctx context.Context, filter model.BorrowingFilter) (model.ListBorrowings, error)
}

type FineService interface {
	IssueFines(ctx context.Context) (model.IssueReport, error)
	Waive(ctx context.Context, borrowingID int, reason string) (model.Payment, error)
	ListFines(ctx context.Context, userName string, all bool) ([]model.Payment, error)
}

type PaymentService interface {
	CreateSession(ctx context.Context, req model.CreatePaymentRequest, actor auth.Actor) (model.Payment, error)
	ConfirmByCallback(ctx context.Context, sessionID string) (model.Payment, error)
	VerifyAndConfirm(ctx context.Context, sessionID string) (model.Payment, error)
	Refund(ctx context.Context, paymentID int, amount *decimal.Decimal) (model.Payment, error)
}

type BookService interface {
	GetBook(ctx context.Context, id int) (model.Book, error)
	ListBooks(ctx context.Context, page, size int) ([]model.Book, error)
}

var (
	_ BorrowingService = (*borrowing.Service)(nil)
	_ FineService      = (*fine.Service)(nil)
	_ PaymentService   = (*payment.Service)(nil)
	_ BookService      = (*book.Service)(nil)
)
