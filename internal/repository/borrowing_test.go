package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libranova/library-service/internal/model"
)

func TestListBorrowingsQuery(t *testing.T) {
	t.Parallel()
	active := true
	filter := model.BorrowingFilter{
		UserName: "alice",
		Active:   &active,
		Page:     2,
		Size:     10,
	}

	query, args, err := listBorrowingsQuery(filter)
	require.NoError(t, err)
	require.Equal(t,
		"SELECT id, book_id, user_name, borrow_date, expected_return_date, actual_return_date "+
			"FROM borrowings WHERE user_name = $1 AND actual_return_date is null "+
			"ORDER BY borrow_date desc, id desc LIMIT 10 OFFSET 10",
		query)
	require.Equal(t, []interface{}{"alice"}, args)
}

// The count shares the list filter but never the page window, so
// TotalElements reflects all matching rows.
func TestCountBorrowingsQuery(t *testing.T) {
	t.Parallel()
	active := true
	filter := model.BorrowingFilter{
		UserName: "alice",
		Active:   &active,
		Page:     2,
		Size:     10,
	}

	query, args, err := countBorrowingsQuery(filter)
	require.NoError(t, err)
	require.Equal(t,
		"SELECT count(*) FROM borrowings WHERE user_name = $1 AND actual_return_date is null",
		query)
	require.Equal(t, []interface{}{"alice"}, args)

	overdue := true
	adminFilter := model.BorrowingFilter{All: true, Overdue: &overdue}
	query, args, err = countBorrowingsQuery(adminFilter)
	require.NoError(t, err)
	require.Equal(t,
		"SELECT count(*) FROM borrowings WHERE actual_return_date is null AND expected_return_date < current_date",
		query)
	require.Empty(t, args)
}
