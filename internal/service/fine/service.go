package fine

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/libranova/library-service/internal/errs"
	"github.com/libranova/library-service/internal/metrics"
	"github.com/libranova/library-service/internal/model"
	"github.com/libranova/library-service/internal/notify"
)

// DefaultMultiplier matches the historical FINE_MULTIPLIER setting.
const DefaultMultiplier = 2.0

type Repository interface {
	ListOverdue(ctx context.Context, today time.Time) ([]model.OverdueBorrowing, error)
	FindActiveFine(ctx context.Context, borrowingID int) (model.Payment, error)
	CreatePayment(ctx context.Context, p model.Payment) (model.Payment, error)
	WaiveFine(ctx context.Context, borrowingID int) (model.Payment, error)
	ListFines(ctx context.Context, userName string, all bool) ([]model.Payment, error)
}

type Service struct {
	log        *zap.Logger
	repo       Repository
	sink       notify.Sink
	multiplier decimal.Decimal
	now        func() time.Time
}

func NewService(repo Repository, sink notify.Sink, multiplier float64, log *zap.Logger) *Service {
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	return &Service{
		log:        log,
		repo:       repo,
		sink:       sink,
		multiplier: decimal.NewFromFloat(multiplier),
		now:        time.Now,
	}
}

// CalculateAmount is the one canonical fine formula:
// daily fee x whole overdue days x multiplier. Zero when not overdue.
func (s *Service) CalculateAmount(b model.Borrowing, dailyFee decimal.Decimal, today time.Time) decimal.Decimal {
	days := b.OverdueDays(today)
	if days == 0 {
		return decimal.Zero
	}
	return dailyFee.Mul(decimal.NewFromInt(int64(days))).Mul(s.multiplier)
}

// Scan lists the active borrowings past their expected return date. Pure read.
func (s *Service) Scan(ctx context.Context) ([]model.OverdueBorrowing, error) {
	return s.repo.ListOverdue(ctx, model.ToDate(s.now()))
}

// IssueFines creates at most one live fine per overdue borrowing. Re-running
// the scan is safe: existing fines are counted as skipped, and the unique
// index catches the insert race between overlapping runs. One borrowing's
// failure never aborts the rest.
func (s *Service) IssueFines(ctx context.Context) (model.IssueReport, error) {
	today := model.ToDate(s.now())
	overdue, err := s.repo.ListOverdue(ctx, today)
	if err != nil {
		return model.IssueReport{}, err
	}

	report := model.IssueReport{TotalOverdue: len(overdue)}
	for _, ob := range overdue {
		if _, err := s.repo.FindActiveFine(ctx, ob.ID); err == nil {
			report.Skipped++
			continue
		} else if !errors.Is(err, errs.ErrNotFound) {
			report.Failed++
			report.Errors = append(report.Errors, model.IssueError{BorrowingID: ob.ID, Error: err.Error()})
			continue
		}

		amount := s.CalculateAmount(ob.Borrowing, ob.DailyFee, today)
		if amount.IsZero() {
			report.Skipped++
			continue
		}

		created, err := s.repo.CreatePayment(ctx, model.Payment{
			BorrowingID: ob.ID,
			Type:        model.TypeFine,
			Status:      model.StatusPending,
			Amount:      amount,
		})
		if errors.Is(err, errs.ErrDuplicate) {
			report.Skipped++
			continue
		}
		if err != nil {
			s.log.Warn("issue fine", zap.Int("borrowingID", ob.ID), zap.Error(err))
			report.Failed++
			report.Errors = append(report.Errors, model.IssueError{BorrowingID: ob.ID, Error: err.Error()})
			continue
		}

		report.Created++
		metrics.FinesIssued.Inc()
		s.sink.Emit(ctx, notify.FineIssued, issuedEvent{
			Payment:     created,
			UserName:    ob.UserName,
			BookTitle:   ob.BookTitle,
			OverdueDays: ob.OverdueDays(today),
		})
	}

	s.log.Info("fine scan finished",
		zap.Int("totalOverdue", report.TotalOverdue),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

// Waive expires the borrowing's pending fine. ErrNotFound when there is none.
func (s *Service) Waive(ctx context.Context, borrowingID int, reason string) (model.Payment, error) {
	p, err := s.repo.WaiveFine(ctx, borrowingID)
	if err != nil {
		return model.Payment{}, err
	}

	metrics.FinesWaived.Inc()
	s.sink.Emit(ctx, notify.FineWaived, waivedEvent{Payment: p, Reason: reason})
	return p, nil
}

func (s *Service) ListFines(ctx context.Context, userName string, all bool) ([]model.Payment, error) {
	return s.repo.ListFines(ctx, userName, all)
}

type issuedEvent struct {
	model.Payment
	UserName    string `json:"userName"`
	BookTitle   string `json:"bookTitle"`
	OverdueDays int    `json:"overdueDays"`
}

type waivedEvent struct {
	model.Payment
	Reason string `json:"reason"`
}
