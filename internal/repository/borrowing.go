package repository

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/libranova/library-service/internal/errs"
	"github.com/libranova/library-service/internal/model"
)

// CreateBorrowing reserves a copy and records the borrowing in one
// transaction. The conditional inventory decrement is the race guard: of two
// concurrent borrowers fighting over the last copy exactly one commits.
func (r *repository) CreateBorrowing(ctx context.Context, req model.CreateBorrowingRequest, borrowDate time.Time) (model.Borrowing, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Borrowing{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`update books set inventory = inventory - 1 where id = $1 and inventory > 0`, req.BookID)
	if err != nil {
		return model.Borrowing{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return model.Borrowing{}, err
	}
	if affected == 0 {
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			`select exists(select 1 from books where id = $1)`, req.BookID); err != nil {
			return model.Borrowing{}, err
		}
		if !exists {
			return model.Borrowing{}, errs.ErrNotFound
		}
		return model.Borrowing{}, errs.ErrUnavailable
	}

	query, args, err := qb.Insert(borrowingsTableName).
		Columns("book_id", "user_name", "borrow_date", "expected_return_date").
		Values(req.BookID, req.UserName, borrowDate.Format(time.DateOnly), req.ExpectedReturnDate.Format(time.DateOnly)).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Borrowing{}, err
	}

	var b model.Borrowing
	if err := tx.GetContext(ctx, &b, query, args...); err != nil {
		r.log.Error("CreateBorrowing", zap.String("q", query), zap.Any("args", args))
		return model.Borrowing{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Borrowing{}, err
	}
	return b, nil
}

// ReturnBorrowing closes the borrowing and releases the copy in one
// transaction. The row lock serializes a double return down to one winner.
func (r *repository) ReturnBorrowing(ctx context.Context, id int, returnDate time.Time, userName string, isAdmin bool) (model.Borrowing, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.Borrowing{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var b model.Borrowing
	err = tx.GetContext(ctx, &b,
		`select id, book_id, user_name, borrow_date, expected_return_date, actual_return_date
		 from borrowings where id = $1 for update`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Borrowing{}, errs.ErrNotFound
		}
		return model.Borrowing{}, err
	}

	if !isAdmin && b.UserName != userName {
		return model.Borrowing{}, errs.ErrForbidden
	}
	if b.ActualReturnDate != nil {
		return model.Borrowing{}, errs.ErrAlreadyReturned
	}

	if err := tx.GetContext(ctx, &b,
		`update borrowings set actual_return_date = $2 where id = $1 returning *`,
		id, returnDate.Format(time.DateOnly)); err != nil {
		return model.Borrowing{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`update books set inventory = inventory + 1 where id = $1`, b.BookID); err != nil {
		return model.Borrowing{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Borrowing{}, err
	}
	return b, nil
}

func (r *repository) GetBorrowing(ctx context.Context, id int) (model.Borrowing, error) {
	query, args, err := qb.Select("id", "book_id", "user_name", "borrow_date", "expected_return_date", "actual_return_date").
		From(borrowingsTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Borrowing{}, err
	}

	var b model.Borrowing
	if err := r.db.GetContext(ctx, &b, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Borrowing{}, errs.ErrNotFound
		}
		return model.Borrowing{}, err
	}
	return b, nil
}

func (r *repository) GetBorrowingWithFee(ctx context.Context, id int) (model.OverdueBorrowing, error) {
	query, args, err := qb.Select("b.id", "b.book_id", "b.user_name", "b.borrow_date",
		"b.expected_return_date", "b.actual_return_date", "bk.title", "bk.daily_fee").
		From(borrowingsTableName + " b").
		Join(booksTableName + " bk on bk.id = b.book_id").
		Where(sq.Eq{"b.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.OverdueBorrowing{}, err
	}

	var ob model.OverdueBorrowing
	if err := r.db.GetContext(ctx, &ob, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OverdueBorrowing{}, errs.ErrNotFound
		}
		return model.OverdueBorrowing{}, err
	}
	return ob, nil
}

func (r *repository) ListBorrowings(ctx context.Context, filter model.BorrowingFilter) (model.ListBorrowings, error) {
	query, args, err := listBorrowingsQuery(filter)
	if err != nil {
		return model.ListBorrowings{}, err
	}
	r.log.Debug("ListBorrowings", zap.String("query", query), zap.Any("args", args))

	var items []model.Borrowing
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return model.ListBorrowings{}, err
	}

	countQuery, countArgs, err := countBorrowingsQuery(filter)
	if err != nil {
		return model.ListBorrowings{}, err
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return model.ListBorrowings{}, err
	}

	return model.ListBorrowings{
		Paging: model.Paging{
			Page:          filter.Page,
			PageSize:      filter.Size,
			TotalElements: total,
		},
		Items: items,
	}, nil
}

func listBorrowingsQuery(filter model.BorrowingFilter) (string, []interface{}, error) {
	q := withBorrowingFilter(
		qb.Select("id", "book_id", "user_name", "borrow_date", "expected_return_date", "actual_return_date").
			From(borrowingsTableName), filter).
		OrderBy("borrow_date desc", "id desc")

	if filter.Page != 0 && filter.Size != 0 {
		q = q.Limit(uint64(filter.Size)).Offset(uint64((filter.Page - 1) * filter.Size))
	}
	return q.ToSql()
}

// countBorrowingsQuery shares the list filter so TotalElements counts every
// matching row, not just the requested page.
func countBorrowingsQuery(filter model.BorrowingFilter) (string, []interface{}, error) {
	return withBorrowingFilter(qb.Select("count(*)").From(borrowingsTableName), filter).ToSql()
}

func withBorrowingFilter(q sq.SelectBuilder, filter model.BorrowingFilter) sq.SelectBuilder {
	if !filter.All {
		q = q.Where(sq.Eq{"user_name": filter.UserName})
	}
	if filter.Active != nil {
		if *filter.Active {
			q = q.Where("actual_return_date is null")
		} else {
			q = q.Where("actual_return_date is not null")
		}
	}
	if filter.Overdue != nil && *filter.Overdue {
		q = q.Where("actual_return_date is null").
			Where("expected_return_date < current_date")
	}
	return q
}

func (r *repository) ListOverdue(ctx context.Context, today time.Time) ([]model.OverdueBorrowing, error) {
	query, args, err := qb.Select("b.id", "b.book_id", "b.user_name", "b.borrow_date",
		"b.expected_return_date", "b.actual_return_date", "bk.title", "bk.daily_fee").
		From(borrowingsTableName + " b").
		Join(booksTableName + " bk on bk.id = b.book_id").
		Where("b.actual_return_date is null").
		Where(sq.Lt{"b.expected_return_date": today.Format(time.DateOnly)}).
		OrderBy("b.expected_return_date").
		ToSql()
	if err != nil {
		return nil, err
	}

	var items []model.OverdueBorrowing
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}
