package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPaid   Status = "PAID"
	StatusUnpaid Status = "UNPAID"
)

// Session is what the external provider hands back for a checkout.
// Amount is the provider-confirmed value, which the ledger trusts over the
// caller-computed one.
type Session struct {
	Ref    string
	URL    string
	Amount decimal.Decimal
}

type Metadata struct {
	BorrowingID int
	PaymentType string
	UserName    string
	Description string
}

// Client is the payment-gateway collaborator contract. Every call may fail
// transiently; callers treat a failure as the operation's failure.
type Client interface {
	CreateSession(ctx context.Context, amount decimal.Decimal, meta Metadata) (Session, error)
	GetStatus(ctx context.Context, ref string) (Status, error)
	Refund(ctx context.Context, ref string, amount decimal.Decimal) (string, error)
}

type Config struct {
	KeyID       string        `yaml:"keyId" envconfig:"GATEWAY_KEY_ID"`
	KeySecret   string        `yaml:"keySecret" envconfig:"GATEWAY_KEY_SECRET"`
	Currency    string        `yaml:"currency" envconfig:"GATEWAY_CURRENCY" default:"INR"`
	CallbackURL string        `yaml:"callbackUrl" envconfig:"GATEWAY_CALLBACK_URL" default:"http://localhost:8080/api/v1/payments/success"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"GATEWAY_TIMEOUT" default:"15s"`
}
