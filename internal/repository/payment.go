package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/libranova/library-service/internal/errs"
	"github.com/libranova/library-service/internal/model"
)

// CreatePayment inserts a payment record. A second live fine for the same
// borrowing trips the partial unique index and surfaces as ErrDuplicate, so
// two overlapping scans cannot both insert.
func (r *repository) CreatePayment(ctx context.Context, p model.Payment) (model.Payment, error) {
	query, args, err := qb.Insert(paymentsTableName).
		Columns("borrowing_id", "type", "status", "amount", "session_id", "session_url").
		Values(p.BorrowingID, p.Type, p.Status, p.Amount, p.SessionID, p.SessionURL).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Payment{}, err
	}

	var created model.Payment
	if err := r.db.GetContext(ctx, &created, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.Payment{}, errs.ErrDuplicate
		}
		r.log.Error("CreatePayment", zap.String("q", query), zap.Any("args", args))
		return model.Payment{}, err
	}
	return created, nil
}

func (r *repository) AttachSession(ctx context.Context, paymentID int, sessionID, sessionURL string, amount decimal.Decimal) (model.Payment, error) {
	var p model.Payment
	err := r.db.GetContext(ctx, &p,
		`update payments set session_id = $2, session_url = $3, amount = $4
		 where id = $1 and status = 'PENDING'
		 returning *`,
		paymentID, sessionID, sessionURL, amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Payment{}, errs.ErrInvalidState
		}
		return model.Payment{}, err
	}
	return p, nil
}

func (r *repository) GetPayment(ctx context.Context, id int) (model.Payment, error) {
	query, args, err := qb.Select("*").
		From(paymentsTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Payment{}, err
	}

	var p model.Payment
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Payment{}, errs.ErrNotFound
		}
		return model.Payment{}, err
	}
	return p, nil
}

// ConfirmPayment advances PENDING to PAID. The conditional update makes a
// callback racing a verification poll land on exactly one mutation; the loser
// re-reads and reports the record unchanged.
func (r *repository) ConfirmPayment(ctx context.Context, sessionID string) (model.Payment, bool, error) {
	var p model.Payment
	err := r.db.GetContext(ctx, &p,
		`update payments set status = 'PAID' where session_id = $1 and status = 'PENDING' returning *`,
		sessionID)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Payment{}, false, err
	}

	err = r.db.GetContext(ctx, &p,
		`select * from payments where session_id = $1`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Payment{}, false, errs.ErrNotFound
		}
		return model.Payment{}, false, err
	}
	if p.Status == model.StatusPaid {
		return p, false, nil
	}
	return model.Payment{}, false, errs.ErrInvalidState
}

// ExpirePending sweeps stale checkouts. Fine obligations the scan issued
// without a checkout attached carry an empty session_id and must outlive the
// sweep, or the ledger would silently drop them until the next scan.
func (r *repository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := expirePendingQuery(cutoff)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func expirePendingQuery(cutoff time.Time) (string, []interface{}, error) {
	return qb.Update(paymentsTableName).
		Set("status", model.StatusExpired).
		Where(sq.Eq{"status": model.StatusPending}).
		Where(sq.Lt{"created_at": cutoff}).
		Where(sq.NotEq{"session_id": ""}).
		ToSql()
}

func (r *repository) FindActiveFine(ctx context.Context, borrowingID int) (model.Payment, error) {
	query, args, err := qb.Select("*").
		From(paymentsTableName).
		Where(sq.Eq{"borrowing_id": borrowingID, "type": model.TypeFine}).
		Where(sq.Eq{"status": []model.PaymentStatus{model.StatusPending, model.StatusPaid}}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Payment{}, err
	}

	var p model.Payment
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Payment{}, errs.ErrNotFound
		}
		return model.Payment{}, err
	}
	return p, nil
}

func (r *repository) WaiveFine(ctx context.Context, borrowingID int) (model.Payment, error) {
	var p model.Payment
	err := r.db.GetContext(ctx, &p,
		`update payments set status = 'EXPIRED'
		 where borrowing_id = $1 and type = 'FINE' and status = 'PENDING'
		 returning *`,
		borrowingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Payment{}, errs.ErrNotFound
		}
		return model.Payment{}, err
	}
	return p, nil
}

func (r *repository) SetRefund(ctx context.Context, paymentID int, refundRef string) (model.Payment, error) {
	var p model.Payment
	err := r.db.GetContext(ctx, &p,
		`update payments set refund_ref = $2 where id = $1 and status = 'PAID' returning *`,
		paymentID, refundRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Payment{}, errs.ErrInvalidState
		}
		return model.Payment{}, err
	}
	return p, nil
}

func (r *repository) ListFines(ctx context.Context, userName string, all bool) ([]model.Payment, error) {
	q := qb.Select("p.id", "p.borrowing_id", "p.type", "p.status", "p.amount",
		"p.session_id", "p.session_url", "p.refund_ref", "p.created_at").
		From(paymentsTableName + " p").
		Where(sq.Eq{"p.type": model.TypeFine}).
		OrderBy("p.id desc")

	if !all {
		q = q.Join(borrowingsTableName + " b on b.id = p.borrowing_id").
			Where(sq.Eq{"b.user_name": userName})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var fines []model.Payment
	if err := r.db.SelectContext(ctx, &fines, query, args...); err != nil {
		return nil, err
	}
	return fines, nil
}
