package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/libranova/library-service/internal/model"
)

type Repository interface {
	GetBook(ctx context.Context, id int) (model.Book, error)
	ListBooks(ctx context.Context, page, size int) ([]model.Book, error)

	CreateBorrowing(ctx context.Context, req model.CreateBorrowingRequest, borrowDate time.Time) (model.Borrowing, error)
	GetBorrowing(ctx context.Context, id int) (model.Borrowing, error)
	GetBorrowingWithFee(ctx context.Context, id int) (model.OverdueBorrowing, error)
	ReturnBorrowing(ctx context.Context, id int, returnDate time.Time, userName string, isAdmin bool) (model.Borrowing, error)
	ListBorrowings(ctx context.Context, filter model.BorrowingFilter) (model.ListBorrowings, error)
	ListOverdue(ctx context.Context, today time.Time) ([]model.OverdueBorrowing, error)

	CreatePayment(ctx context.Context, p model.Payment) (model.Payment, error)
	AttachSession(ctx context.Context, paymentID int, sessionID, sessionURL string, amount decimal.Decimal) (model.Payment, error)
	GetPayment(ctx context.Context, id int) (model.Payment, error)
	ConfirmPayment(ctx context.Context, sessionID string) (model.Payment, bool, error)
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
	FindActiveFine(ctx context.Context, borrowingID int) (model.Payment, error)
	WaiveFine(ctx context.Context, borrowingID int) (model.Payment, error)
	SetRefund(ctx context.Context, paymentID int, refundRef string) (model.Payment, error)
	ListFines(ctx context.Context, userName string, all bool) ([]model.Payment, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName      = `books`
	borrowingsTableName = `borrowings`
	paymentsTableName   = `payments`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
