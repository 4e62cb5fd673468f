package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/libranova/library-service/internal/model"
)

type Config struct {
	FineScanInterval time.Duration `yaml:"fineScanInterval" envconfig:"FINE_SCAN_INTERVAL" default:"24h"`
	ExpireInterval   time.Duration `yaml:"expireInterval" envconfig:"PAYMENT_EXPIRE_INTERVAL" default:"1h"`
	PaymentRetention time.Duration `yaml:"paymentRetention" envconfig:"PAYMENT_RETENTION" default:"24h"`
	LockTTL          time.Duration `yaml:"lockTTL" envconfig:"SCHEDULER_LOCK_TTL" default:"10m"`
}

type FineRunner interface {
	IssueFines(ctx context.Context) (model.IssueReport, error)
}

type PaymentRunner interface {
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// Locker is a best-effort lease so overlapping instances don't run the same
// batch twice. Uniqueness of the batch's effects is still enforced in the
// database.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string)
}

const (
	fineScanLockKey = "library:lock:fine_scan"
	expireLockKey   = "library:lock:payment_expire"
)

// Worker is the periodic driver: fine scans and pending-payment expiry run on
// their own tickers, independent of live request traffic.
type Worker struct {
	cfg      Config
	fines    FineRunner
	payments PaymentRunner
	locker   Locker
	log      *zap.Logger
	now      func() time.Time
}

func New(cfg Config, fines FineRunner, payments PaymentRunner, locker Locker, log *zap.Logger) *Worker {
	return &Worker{
		cfg:      cfg,
		fines:    fines,
		payments: payments,
		locker:   locker,
		log:      log.Named("scheduler"),
		now:      time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.loop(ctx, w.cfg.FineScanInterval, fineScanLockKey, w.runFineScan)
	})
	g.Go(func() error {
		return w.loop(ctx, w.cfg.ExpireInterval, expireLockKey, w.runExpiry)
	})
	return g.Wait()
}

// loop fires immediately, then on every tick until the context ends.
// A failed run is logged and waits for the next tick; per-item failures are
// already isolated inside the batch operations.
func (w *Worker) loop(ctx context.Context, interval time.Duration, lockKey string, job func(ctx context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.runLocked(ctx, lockKey, job)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.runLocked(ctx, lockKey, job)
		}
	}
}

func (w *Worker) runLocked(ctx context.Context, lockKey string, job func(ctx context.Context) error) {
	ok, err := w.locker.TryLock(ctx, lockKey, w.cfg.LockTTL)
	if err != nil {
		w.log.Warn("lock", zap.String("key", lockKey), zap.Error(err))
		return
	}
	if !ok {
		w.log.Debug("batch already running elsewhere", zap.String("key", lockKey))
		return
	}
	defer w.locker.Unlock(ctx, lockKey)

	if err := job(ctx); err != nil {
		w.log.Error("batch run", zap.String("key", lockKey), zap.Error(err))
	}
}

func (w *Worker) runFineScan(ctx context.Context) error {
	report, err := w.fines.IssueFines(ctx)
	if err != nil {
		return err
	}
	w.log.Info("fine scan",
		zap.Int("totalOverdue", report.TotalOverdue),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return nil
}

func (w *Worker) runExpiry(ctx context.Context) error {
	cutoff := w.now().Add(-w.cfg.PaymentRetention)
	count, err := w.payments.ExpirePending(ctx, cutoff)
	if err != nil {
		return err
	}
	if count > 0 {
		w.log.Info("expired pending payments", zap.Int64("count", count))
	}
	return nil
}
