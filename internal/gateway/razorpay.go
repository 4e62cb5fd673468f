package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/libranova/library-service/internal/errs"
	"github.com/libranova/library-service/pkg/breaker"
)

// razorpayClient sells checkouts as razorpay payment links: one link per
// payment record, the link id is the session reference.
type razorpayClient struct {
	client      *razorpay.Client
	cb          breaker.CircuitBreaker
	currency    string
	callbackURL string
	timeout     time.Duration
	log         *zap.Logger
}

func NewRazorpayClient(cfg Config, log *zap.Logger) *razorpayClient {
	const (
		cbWindow    = 20
		cbTimeout   = 30 * time.Second
		cbThreshold = 0.5
		cbRecovery  = 3
	)
	return &razorpayClient{
		client:      razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		cb:          breaker.New(cbWindow, cbTimeout, cbThreshold, cbRecovery),
		currency:    cfg.Currency,
		callbackURL: cfg.CallbackURL,
		timeout:     cfg.Timeout,
		log:         log.Named("gateway"),
	}
}

func (c *razorpayClient) CreateSession(ctx context.Context, amount decimal.Decimal, meta Metadata) (Session, error) {
	data := map[string]interface{}{
		"amount":          toSubunits(amount),
		"currency":        c.currency,
		"description":     meta.Description,
		"reference_id":    uuid.New().String(),
		"callback_url":    c.callbackURL,
		"callback_method": "get",
		"notes": map[string]interface{}{
			"borrowing_id": meta.BorrowingID,
			"type":         meta.PaymentType,
			"user":         meta.UserName,
		},
	}

	body, err := c.do(ctx, func() (map[string]interface{}, error) {
		return c.client.PaymentLink.Create(data, nil)
	})
	if err != nil {
		return Session{}, err
	}

	ref, err := getString(body, "id")
	if err != nil {
		return Session{}, err
	}
	url, err := getString(body, "short_url")
	if err != nil {
		return Session{}, err
	}
	confirmed, err := getAmount(body, "amount")
	if err != nil {
		return Session{}, err
	}

	return Session{Ref: ref, URL: url, Amount: confirmed}, nil
}

func (c *razorpayClient) GetStatus(ctx context.Context, ref string) (Status, error) {
	body, err := c.do(ctx, func() (map[string]interface{}, error) {
		return c.client.PaymentLink.Fetch(ref, nil, nil)
	})
	if err != nil {
		return "", err
	}

	status, err := getString(body, "status")
	if err != nil {
		return "", err
	}
	if status == "paid" {
		return StatusPaid, nil
	}
	return StatusUnpaid, nil
}

func (c *razorpayClient) Refund(ctx context.Context, ref string, amount decimal.Decimal) (string, error) {
	link, err := c.do(ctx, func() (map[string]interface{}, error) {
		return c.client.PaymentLink.Fetch(ref, nil, nil)
	})
	if err != nil {
		return "", err
	}

	paymentID, err := capturedPaymentID(link)
	if err != nil {
		return "", errors.Wrap(errs.ErrGateway, err.Error())
	}

	body, err := c.do(ctx, func() (map[string]interface{}, error) {
		return c.client.Payment.Refund(paymentID, int(toSubunits(amount)), nil, nil)
	})
	if err != nil {
		return "", err
	}

	return getString(body, "id")
}

// do runs a gateway call behind the circuit breaker with a bounded timeout.
// The SDK has no context support, so the call is raced against the deadline.
func (c *razorpayClient) do(ctx context.Context, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		body map[string]interface{}
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		var body map[string]interface{}
		err := c.cb.Call(func() error {
			var callErr error
			body, callErr = fn()
			return callErr
		})
		ch <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(errs.ErrGateway, ctx.Err().Error())
	case res := <-ch:
		if res.err != nil {
			c.log.Warn("gateway call", zap.Error(res.err))
			return nil, errors.Wrap(errs.ErrGateway, res.err.Error())
		}
		return res.body, nil
	}
}

func capturedPaymentID(link map[string]interface{}) (string, error) {
	payments, ok := link["payments"].([]interface{})
	if !ok || len(payments) == 0 {
		return "", errors.New("no captured payment for session")
	}
	last, ok := payments[len(payments)-1].(map[string]interface{})
	if !ok {
		return "", errors.New("malformed payments entry")
	}
	return getString(last, "payment_id")
}

func toSubunits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func getString(body map[string]interface{}, key string) (string, error) {
	v, ok := body[key].(string)
	if !ok || v == "" {
		return "", errors.Wrapf(errs.ErrGateway, "missing %q in gateway response", key)
	}
	return v, nil
}

func getAmount(body map[string]interface{}, key string) (decimal.Decimal, error) {
	switch v := body[key].(type) {
	case float64:
		return decimal.NewFromFloat(v).Div(decimal.NewFromInt(100)), nil
	case int64:
		return decimal.NewFromInt(v).Div(decimal.NewFromInt(100)), nil
	case int:
		return decimal.NewFromInt(int64(v)).Div(decimal.NewFromInt(100)), nil
	default:
		return decimal.Decimal{}, errors.Wrapf(errs.ErrGateway, "missing %q in gateway response", key)
	}
}
