package payment

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/libranova/library-service/internal/errs"
	"github.com/libranova/library-service/internal/gateway"
	"github.com/libranova/library-service/internal/model"
	"github.com/libranova/library-service/internal/notify"
	"github.com/libranova/library-service/pkg/auth"
)

var today = time.Date(2023, 11, 10, 0, 0, 0, 0, time.UTC)

type stubGateway struct {
	createErr  error
	status     gateway.Status
	statusErr  error
	refundErr  error
	createdFor []decimal.Decimal
}

func (g *stubGateway) CreateSession(_ context.Context, amount decimal.Decimal, _ gateway.Metadata) (gateway.Session, error) {
	if g.createErr != nil {
		return gateway.Session{}, g.createErr
	}
	g.createdFor = append(g.createdFor, amount)
	return gateway.Session{Ref: "plink_test", URL: "https://rzp.io/l/test", Amount: amount}, nil
}

func (g *stubGateway) GetStatus(context.Context, string) (gateway.Status, error) {
	return g.status, g.statusErr
}

func (g *stubGateway) Refund(context.Context, string, decimal.Decimal) (string, error) {
	if g.refundErr != nil {
		return "", g.refundErr
	}
	return "rfnd_test", nil
}

type stubRepo struct {
	borrowing model.Borrowing
	dailyFee  decimal.Decimal
	fine      *model.Payment
	payments  map[int]model.Payment
	bySession map[string]int
	nextID    int
	expired   int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		borrowing: model.Borrowing{
			ID:                 1,
			BookID:             1,
			UserName:           "alice",
			BorrowDate:         today.AddDate(0, 0, -14),
			ExpectedReturnDate: today.AddDate(0, 0, -4),
		},
		dailyFee:  decimal.RequireFromString("2.00"),
		payments:  make(map[int]model.Payment),
		bySession: make(map[string]int),
		nextID:    1,
	}
}

func (r *stubRepo) GetBorrowingWithFee(_ context.Context, id int) (model.OverdueBorrowing, error) {
	if id != r.borrowing.ID {
		return model.OverdueBorrowing{}, errs.ErrNotFound
	}
	return model.OverdueBorrowing{Borrowing: r.borrowing, BookTitle: "Test Book", DailyFee: r.dailyFee}, nil
}

func (r *stubRepo) CreatePayment(_ context.Context, p model.Payment) (model.Payment, error) {
	p.ID = r.nextID
	r.nextID++
	r.payments[p.ID] = p
	if p.SessionID != "" {
		r.bySession[p.SessionID] = p.ID
	}
	return p, nil
}

func (r *stubRepo) AttachSession(_ context.Context, paymentID int, sessionID, sessionURL string, amount decimal.Decimal) (model.Payment, error) {
	p, ok := r.payments[paymentID]
	if !ok || p.Status != model.StatusPending {
		return model.Payment{}, errs.ErrNotFound
	}
	p.SessionID = sessionID
	p.SessionURL = sessionURL
	p.Amount = amount
	r.payments[paymentID] = p
	r.bySession[sessionID] = paymentID
	return p, nil
}

func (r *stubRepo) GetPayment(_ context.Context, id int) (model.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return model.Payment{}, errs.ErrNotFound
	}
	return p, nil
}

func (r *stubRepo) ConfirmPayment(_ context.Context, sessionID string) (model.Payment, bool, error) {
	id, ok := r.bySession[sessionID]
	if !ok {
		return model.Payment{}, false, errs.ErrNotFound
	}
	p := r.payments[id]
	switch p.Status {
	case model.StatusPending:
		p.Status = model.StatusPaid
		r.payments[id] = p
		return p, true, nil
	case model.StatusPaid:
		return p, false, nil
	default:
		return model.Payment{}, false, errs.ErrInvalidState
	}
}

func (r *stubRepo) ExpirePending(context.Context, time.Time) (int64, error) {
	return r.expired, nil
}

func (r *stubRepo) FindActiveFine(_ context.Context, borrowingID int) (model.Payment, error) {
	if r.fine == nil || r.fine.BorrowingID != borrowingID {
		return model.Payment{}, errs.ErrNotFound
	}
	return *r.fine, nil
}

func (r *stubRepo) SetRefund(_ context.Context, paymentID int, refundRef string) (model.Payment, error) {
	p, ok := r.payments[paymentID]
	if !ok {
		return model.Payment{}, errs.ErrNotFound
	}
	p.RefundRef = &refundRef
	r.payments[paymentID] = p
	return p, nil
}

func newTestService(repo Repository, gw gateway.Client) *Service {
	s := NewService(repo, gw, notify.NewNopSink(), zap.NewNop())
	s.now = func() time.Time { return today }
	return s
}

func alice() auth.Actor { return auth.Actor{Name: "alice", Role: auth.RoleUser} }

func TestService_CreateSession_Rental(t *testing.T) {
	t.Parallel()
	repo := newStubRepo()
	gw := &stubGateway{}
	s := newTestService(repo, gw)

	p, err := s.CreateSession(context.Background(), model.CreatePaymentRequest{
		BorrowingID: 1,
		Type:        model.TypePayment,
	}, alice())
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, p.Status)
	require.Equal(t, "plink_test", p.SessionID)
	// 10 planned days x 2.00 daily fee
	require.True(t, p.Amount.Equal(decimal.RequireFromString("20")), "amount %s", p.Amount)
}

func TestService_CreateSession_Forbidden(t *testing.T) {
	t.Parallel()
	s := newTestService(newStubRepo(), &stubGateway{})

	_, err := s.CreateSession(context.Background(), model.CreatePaymentRequest{
		BorrowingID: 1,
		Type:        model.TypePayment,
	}, auth.Actor{Name: "bob", Role: auth.RoleUser})
	require.ErrorIs(t, err, errs.ErrForbidden)
}

func TestService_CreateSession_GatewayDown(t *testing.T) {
	t.Parallel()
	repo := newStubRepo()
	gw := &stubGateway{createErr: errors.Wrap(errs.ErrGateway, "timeout")}
	s := newTestService(repo, gw)

	_, err := s.CreateSession(context.Background(), model.CreatePaymentRequest{
		BorrowingID: 1,
		Type:        model.TypePayment,
	}, alice())
	require.ErrorIs(t, err, errs.ErrGateway)
	// nothing may be persisted without a session
	require.Empty(t, repo.payments)
}

func TestService_CreateSession_Fine(t *testing.T) {
	t.Parallel()
	repo := newStubRepo()
	gw := &stubGateway{}
	s := newTestService(repo, gw)

	// no issued fine yet
	_, err := s.CreateSession(context.Background(), model.CreatePaymentRequest{
		BorrowingID: 1,
		Type:        model.TypeFine,
	}, alice())
	require.ErrorIs(t, err, errs.ErrNotFound)

	fine, err := repo.CreatePayment(context.Background(), model.Payment{
		BorrowingID: 1,
		Type:        model.TypeFine,
		Status:      model.StatusPending,
		Amount:      decimal.RequireFromString("16"),
	})
	require.NoError(t, err)
	repo.fine = &fine

	p, err := s.CreateSession(context.Background(), model.CreatePaymentRequest{
		BorrowingID: 1,
		Type:        model.TypeFine,
	}, alice())
	require.NoError(t, err)
	require.Equal(t, fine.ID, p.ID, "checkout must attach to the issued fine")
	require.Equal(t, "plink_test", p.SessionID)
	require.True(t, p.Amount.Equal(fine.Amount))
}

func TestService_ConfirmByCallback_Idempotent(t *testing.T) {
	t.Parallel()
	repo := newStubRepo()
	s := newTestService(repo, &stubGateway{})

	_, err := repo.CreatePayment(context.Background(), model.Payment{
		BorrowingID: 1,
		Type:        model.TypePayment,
		Status:      model.StatusPending,
		Amount:      decimal.RequireFromString("20"),
		SessionID:   "plink_test",
	})
	require.NoError(t, err)

	first, err := s.ConfirmByCallback(context.Background(), "plink_test")
	require.NoError(t, err)
	require.Equal(t, model.StatusPaid, first.Status)

	second, err := s.ConfirmByCallback(context.Background(), "plink_test")
	require.NoError(t, err)
	require.Equal(t, first, second)

	_, err = s.ConfirmByCallback(context.Background(), "plink_unknown")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestService_VerifyAndConfirm(t *testing.T) {
	t.Parallel()
	repo := newStubRepo()
	gw := &stubGateway{status: gateway.StatusUnpaid}
	s := newTestService(repo, gw)

	_, err := repo.CreatePayment(context.Background(), model.Payment{
		BorrowingID: 1,
		Type:        model.TypePayment,
		Status:      model.StatusPending,
		Amount:      decimal.RequireFromString("20"),
		SessionID:   "plink_test",
	})
	require.NoError(t, err)

	_, err = s.VerifyAndConfirm(context.Background(), "plink_test")
	require.ErrorIs(t, err, errs.ErrVerificationFailed)

	gw.status = gateway.StatusPaid
	p, err := s.VerifyAndConfirm(context.Background(), "plink_test")
	require.NoError(t, err)
	require.Equal(t, model.StatusPaid, p.Status)
}

func TestService_Refund(t *testing.T) {
	t.Parallel()
	repo := newStubRepo()
	s := newTestService(repo, &stubGateway{})

	pending, err := repo.CreatePayment(context.Background(), model.Payment{
		BorrowingID: 1,
		Type:        model.TypePayment,
		Status:      model.StatusPending,
		Amount:      decimal.RequireFromString("20"),
		SessionID:   "plink_test",
	})
	require.NoError(t, err)

	_, err = s.Refund(context.Background(), pending.ID, nil)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	_, err = s.ConfirmByCallback(context.Background(), "plink_test")
	require.NoError(t, err)

	over := decimal.RequireFromString("21")
	_, err = s.Refund(context.Background(), pending.ID, &over)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	zero := decimal.Zero
	_, err = s.Refund(context.Background(), pending.ID, &zero)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	p, err := s.Refund(context.Background(), pending.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, p.RefundRef)
	require.Equal(t, "rfnd_test", *p.RefundRef)
	require.Equal(t, model.StatusPaid, p.Status)
}

func TestService_ExpirePending(t *testing.T) {
	t.Parallel()
	repo := newStubRepo()
	repo.expired = 3
	s := newTestService(repo, &stubGateway{})

	n, err := s.ExpirePending(context.Background(), today.Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}
