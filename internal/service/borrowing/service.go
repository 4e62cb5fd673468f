package borrowing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libranova/library-service/internal/errs"
	"github.com/libranova/library-service/internal/metrics"
	"github.com/libranova/library-service/internal/model"
	"github.com/libranova/library-service/internal/notify"
	"github.com/libranova/library-service/pkg/auth"
)

type Repository interface {
	CreateBorrowing(ctx context.Context, req model.CreateBorrowingRequest, borrowDate time.Time) (model.Borrowing, error)
	GetBorrowing(ctx context.Context, id int) (model.Borrowing, error)
	ReturnBorrowing(ctx context.Context, id int, returnDate time.Time, userName string, isAdmin bool) (model.Borrowing, error)
	ListBorrowings(ctx context.Context, filter model.BorrowingFilter) (model.ListBorrowings, error)
}

type Service struct {
	log  *zap.Logger
	repo Repository
	sink notify.Sink
	now  func() time.Time
}

func NewService(repo Repository, sink notify.Sink, log *zap.Logger) *Service {
	return &Service{
		log:  log,
		repo: repo,
		sink: sink,
		now:  time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req model.CreateBorrowingRequest) (model.Borrowing, error) {
	today := model.ToDate(s.now())
	if !model.ToDate(req.ExpectedReturnDate.Time).After(today) {
		return model.Borrowing{}, errors.Wrap(errs.ErrInvalidDate, "expected return date must be in the future")
	}

	b, err := s.repo.CreateBorrowing(ctx, req, today)
	if err != nil {
		return model.Borrowing{}, err
	}

	metrics.BorrowingsCreated.Inc()
	s.sink.Emit(ctx, notify.BorrowingCreated, b)
	return b, nil
}

func (s *Service) Return(ctx context.Context, id int, returnDate time.Time, actor auth.Actor) (model.Borrowing, error) {
	today := model.ToDate(s.now())
	if model.ToDate(returnDate).Before(today) {
		return model.Borrowing{}, errors.Wrap(errs.ErrInvalidDate, "return date cannot be in the past")
	}

	b, err := s.repo.ReturnBorrowing(ctx, id, returnDate, actor.Name, actor.IsAdmin())
	if err != nil {
		return model.Borrowing{}, err
	}

	metrics.BorrowingsReturned.Inc()
	s.sink.Emit(ctx, notify.BorrowingReturned, returnedEvent{
		Borrowing:   b,
		WasOverdue:  model.ToDate(returnDate).After(model.ToDate(b.ExpectedReturnDate)),
		OverdueDays: overdueDaysAt(b, returnDate),
	})
	return b, nil
}

func (s *Service) Get(ctx context.Context, id int, actor auth.Actor) (model.Borrowing, error) {
	b, err := s.repo.GetBorrowing(ctx, id)
	if err != nil {
		return model.Borrowing{}, err
	}
	if !actor.IsAdmin() && b.UserName != actor.Name {
		return model.Borrowing{}, errs.ErrForbidden
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, filter model.BorrowingFilter) (model.ListBorrowings, error) {
	return s.repo.ListBorrowings(ctx, filter)
}

type returnedEvent struct {
	model.Borrowing
	WasOverdue  bool `json:"wasOverdue"`
	OverdueDays int  `json:"overdueDays"`
}

func overdueDaysAt(b model.Borrowing, returnDate time.Time) int {
	days := int(model.ToDate(returnDate).Sub(model.ToDate(b.ExpectedReturnDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
