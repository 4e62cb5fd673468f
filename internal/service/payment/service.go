package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/libranova/library-service/internal/errs"
	"github.com/libranova/library-service/internal/gateway"
	"github.com/libranova/library-service/internal/metrics"
	"github.com/libranova/library-service/internal/model"
	"github.com/libranova/library-service/internal/notify"
	"github.com/libranova/library-service/pkg/auth"
)

type Repository interface {
	GetBorrowingWithFee(ctx context.Context, id int) (model.OverdueBorrowing, error)
	CreatePayment(ctx context.Context, p model.Payment) (model.Payment, error)
	AttachSession(ctx context.Context, paymentID int, sessionID, sessionURL string, amount decimal.Decimal) (model.Payment, error)
	GetPayment(ctx context.Context, id int) (model.Payment, error)
	ConfirmPayment(ctx context.Context, sessionID string) (model.Payment, bool, error)
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
	FindActiveFine(ctx context.Context, borrowingID int) (model.Payment, error)
	SetRefund(ctx context.Context, paymentID int, refundRef string) (model.Payment, error)
}

type Service struct {
	log  *zap.Logger
	repo Repository
	gw   gateway.Client
	sink notify.Sink
	now  func() time.Time
}

func NewService(repo Repository, gw gateway.Client, sink notify.Sink, log *zap.Logger) *Service {
	return &Service{
		log:  log,
		repo: repo,
		gw:   gw,
		sink: sink,
		now:  time.Now,
	}
}

// CreateSession obtains a checkout from the gateway and records it. The
// gateway call comes first: when it fails nothing is persisted, so no pending
// record can exist without a valid session. The stored amount is the one the
// gateway confirmed.
func (s *Service) CreateSession(ctx context.Context, req model.CreatePaymentRequest, actor auth.Actor) (model.Payment, error) {
	ob, err := s.repo.GetBorrowingWithFee(ctx, req.BorrowingID)
	if err != nil {
		return model.Payment{}, err
	}
	if !actor.IsAdmin() && ob.UserName != actor.Name {
		return model.Payment{}, errs.ErrForbidden
	}

	switch req.Type {
	case model.TypeFine:
		return s.createFineSession(ctx, ob)
	default:
		return s.createRentalSession(ctx, ob)
	}
}

func (s *Service) createRentalSession(ctx context.Context, ob model.OverdueBorrowing) (model.Payment, error) {
	amount := ob.DailyFee.Mul(decimal.NewFromInt(int64(ob.PlannedDays())))

	session, err := s.gw.CreateSession(ctx, amount, gateway.Metadata{
		BorrowingID: ob.ID,
		PaymentType: string(model.TypePayment),
		UserName:    ob.UserName,
		Description: fmt.Sprintf("PAYMENT - %s", ob.BookTitle),
	})
	if err != nil {
		metrics.GatewayErrors.Inc()
		return model.Payment{}, err
	}

	return s.repo.CreatePayment(ctx, model.Payment{
		BorrowingID: ob.ID,
		Type:        model.TypePayment,
		Status:      model.StatusPending,
		Amount:      session.Amount,
		SessionID:   session.Ref,
		SessionURL:  session.URL,
	})
}

// createFineSession attaches a checkout to the already-issued fine record
// instead of inserting a second one, keeping the one-live-fine invariant.
func (s *Service) createFineSession(ctx context.Context, ob model.OverdueBorrowing) (model.Payment, error) {
	fine, err := s.repo.FindActiveFine(ctx, ob.ID)
	if err != nil {
		return model.Payment{}, err
	}
	if fine.Status != model.StatusPending {
		return model.Payment{}, errs.ErrInvalidState
	}

	session, err := s.gw.CreateSession(ctx, fine.Amount, gateway.Metadata{
		BorrowingID: ob.ID,
		PaymentType: string(model.TypeFine),
		UserName:    ob.UserName,
		Description: fmt.Sprintf("FINE - %s", ob.BookTitle),
	})
	if err != nil {
		metrics.GatewayErrors.Inc()
		return model.Payment{}, err
	}

	return s.repo.AttachSession(ctx, fine.ID, session.Ref, session.URL, session.Amount)
}

// ConfirmByCallback settles the session the gateway reported as paid.
// Idempotent: confirming an already paid session succeeds without mutating.
func (s *Service) ConfirmByCallback(ctx context.Context, sessionID string) (model.Payment, error) {
	p, changed, err := s.repo.ConfirmPayment(ctx, sessionID)
	if err != nil {
		return model.Payment{}, err
	}
	if changed {
		metrics.PaymentsConfirmed.Inc()
		s.sink.Emit(ctx, notify.PaymentConfirmed, p)
	}
	return p, nil
}

// VerifyAndConfirm polls the gateway as the fallback to the callback path.
// An unpaid session is a retryable condition, not a hard failure.
func (s *Service) VerifyAndConfirm(ctx context.Context, sessionID string) (model.Payment, error) {
	status, err := s.gw.GetStatus(ctx, sessionID)
	if err != nil {
		metrics.GatewayErrors.Inc()
		return model.Payment{}, err
	}
	if status != gateway.StatusPaid {
		return model.Payment{}, errs.ErrVerificationFailed
	}
	return s.ConfirmByCallback(ctx, sessionID)
}

// ExpirePending sweeps PENDING records older than the cutoff to EXPIRED.
func (s *Service) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	count, err := s.repo.ExpirePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		metrics.PaymentsExpired.Add(float64(count))
		s.sink.Emit(ctx, notify.PaymentsExpired, expiredEvent{Count: count, Cutoff: cutoff})
	}
	return count, nil
}

// Refund delegates to the gateway; only PAID records qualify. The record
// stays PAID, the refund is kept as a distinct mark on it.
func (s *Service) Refund(ctx context.Context, paymentID int, amount *decimal.Decimal) (model.Payment, error) {
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return model.Payment{}, err
	}
	if p.Status != model.StatusPaid {
		return model.Payment{}, errors.Wrap(errs.ErrInvalidState, "refund requires a paid payment")
	}

	toRefund := p.Amount
	if amount != nil {
		if amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(p.Amount) {
			return model.Payment{}, errors.Wrap(errs.ErrInvalidState, "refund amount out of range")
		}
		toRefund = *amount
	}

	refundRef, err := s.gw.Refund(ctx, p.SessionID, toRefund)
	if err != nil {
		metrics.GatewayErrors.Inc()
		return model.Payment{}, err
	}

	updated, err := s.repo.SetRefund(ctx, p.ID, refundRef)
	if err != nil {
		return model.Payment{}, err
	}

	s.sink.Emit(ctx, notify.PaymentRefunded, refundedEvent{Payment: updated, Refunded: toRefund})
	return updated, nil
}

type expiredEvent struct {
	Count  int64     `json:"count"`
	Cutoff time.Time `json:"cutoff"`
}

type refundedEvent struct {
	model.Payment
	Refunded decimal.Decimal `json:"refunded"`
}
