package borrowing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/libranova/library-service/internal/errs"
	"github.com/libranova/library-service/internal/model"
	"github.com/libranova/library-service/internal/notify"
	"github.com/libranova/library-service/pkg/auth"
)

func actor(name string, admin bool) auth.Actor {
	role := auth.RoleUser
	if admin {
		role = auth.RoleAdmin
	}
	return auth.Actor{Name: name, Role: role}
}

var today = time.Date(2023, 11, 10, 0, 0, 0, 0, time.UTC)

// stubRepo keeps a single book's inventory behind a mutex so concurrent
// Creates contend for it the way the conditional update does.
type stubRepo struct {
	mu         sync.Mutex
	inventory  int
	nextID     int
	borrowings map[int]model.Borrowing
}

func newStubRepo(inventory int) *stubRepo {
	return &stubRepo{
		inventory:  inventory,
		nextID:     1,
		borrowings: make(map[int]model.Borrowing),
	}
}

func (r *stubRepo) CreateBorrowing(_ context.Context, req model.CreateBorrowingRequest, borrowDate time.Time) (model.Borrowing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inventory <= 0 {
		return model.Borrowing{}, errs.ErrUnavailable
	}
	r.inventory--
	b := model.Borrowing{
		ID:                 r.nextID,
		BookID:             req.BookID,
		UserName:           req.UserName,
		BorrowDate:         borrowDate,
		ExpectedReturnDate: req.ExpectedReturnDate.Time,
	}
	r.nextID++
	r.borrowings[b.ID] = b
	return b, nil
}

func (r *stubRepo) GetBorrowing(_ context.Context, id int) (model.Borrowing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.borrowings[id]
	if !ok {
		return model.Borrowing{}, errs.ErrNotFound
	}
	return b, nil
}

func (r *stubRepo) ReturnBorrowing(_ context.Context, id int, returnDate time.Time, userName string, isAdmin bool) (model.Borrowing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.borrowings[id]
	if !ok {
		return model.Borrowing{}, errs.ErrNotFound
	}
	if !isAdmin && b.UserName != userName {
		return model.Borrowing{}, errs.ErrForbidden
	}
	if b.ActualReturnDate != nil {
		return model.Borrowing{}, errs.ErrAlreadyReturned
	}
	b.ActualReturnDate = &returnDate
	r.borrowings[id] = b
	r.inventory++
	return b, nil
}

func (r *stubRepo) ListBorrowings(_ context.Context, _ model.BorrowingFilter) (model.ListBorrowings, error) {
	return model.ListBorrowings{}, nil
}

func newTestService(repo Repository) *Service {
	s := NewService(repo, notify.NewNopSink(), zap.NewNop())
	s.now = func() time.Time { return today }
	return s
}

func createReq(bookID int, expected time.Time) model.CreateBorrowingRequest {
	return model.CreateBorrowingRequest{
		BookID:             bookID,
		ExpectedReturnDate: model.Date{Time: expected},
		UserName:           "alice",
	}
}

func TestService_Create(t *testing.T) {
	t.Parallel()
	repo := newStubRepo(1)
	s := newTestService(repo)

	b, err := s.Create(context.Background(), createReq(1, today.AddDate(0, 0, 14)))
	require.NoError(t, err)
	require.Equal(t, today, b.BorrowDate)
	require.True(t, b.Active())

	// no stock left
	_, err = s.Create(context.Background(), createReq(1, today.AddDate(0, 0, 14)))
	require.ErrorIs(t, err, errs.ErrUnavailable)
}

func TestService_Create_InvalidDate(t *testing.T) {
	t.Parallel()
	s := newTestService(newStubRepo(1))

	for _, expected := range []time.Time{today, today.AddDate(0, 0, -1)} {
		_, err := s.Create(context.Background(), createReq(1, expected))
		require.ErrorIs(t, err, errs.ErrInvalidDate)
	}
}

func TestService_Create_Concurrent(t *testing.T) {
	t.Parallel()
	const (
		inventory = 3
		attempts  = 10
	)
	repo := newStubRepo(inventory)
	s := newTestService(repo)

	errCh := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(context.Background(), createReq(1, today.AddDate(0, 0, 7)))
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	var ok, unavailable int
	for err := range errCh {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, errs.ErrUnavailable)
			unavailable++
		}
	}
	require.Equal(t, inventory, ok)
	require.Equal(t, attempts-inventory, unavailable)
}

func TestService_Return(t *testing.T) {
	t.Parallel()
	repo := newStubRepo(1)
	s := newTestService(repo)

	b, err := s.Create(context.Background(), createReq(1, today.AddDate(0, 0, 7)))
	require.NoError(t, err)

	_, err = s.Return(context.Background(), b.ID, today.AddDate(0, 0, -1), actor("alice", false))
	require.ErrorIs(t, err, errs.ErrInvalidDate)

	_, err = s.Return(context.Background(), b.ID, today, actor("bob", false))
	require.ErrorIs(t, err, errs.ErrForbidden)

	returned, err := s.Return(context.Background(), b.ID, today, actor("alice", false))
	require.NoError(t, err)
	require.False(t, returned.Active())
	require.Equal(t, 1, repo.inventory)

	_, err = s.Return(context.Background(), b.ID, today, actor("alice", false))
	require.ErrorIs(t, err, errs.ErrAlreadyReturned)
}

func TestService_Get(t *testing.T) {
	t.Parallel()
	repo := newStubRepo(1)
	s := newTestService(repo)

	b, err := s.Create(context.Background(), createReq(1, today.AddDate(0, 0, 7)))
	require.NoError(t, err)

	_, err = s.Get(context.Background(), b.ID, actor("bob", false))
	require.ErrorIs(t, err, errs.ErrForbidden)

	got, err := s.Get(context.Background(), b.ID, actor("bob", true))
	require.NoError(t, err)
	require.Equal(t, b, got)

	_, err = s.Get(context.Background(), 42, actor("alice", false))
	require.ErrorIs(t, err, errs.ErrNotFound)
}
