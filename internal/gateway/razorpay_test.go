package gateway

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/libranova/library-service/internal/errs"
)

func TestToSubunits(t *testing.T) {
	t.Parallel()
	tests := []struct {
		amount string
		want   int64
	}{
		{amount: "20", want: 2000},
		{amount: "2.50", want: 250},
		{amount: "0.01", want: 1},
		{amount: "19.999", want: 2000},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, toSubunits(decimal.RequireFromString(tt.amount)), "amount %s", tt.amount)
	}
}

func TestGetAmount(t *testing.T) {
	t.Parallel()
	// the SDK decodes JSON numbers as float64
	got, err := getAmount(map[string]interface{}{"amount": float64(2000)}, "amount")
	require.NoError(t, err)
	require.True(t, got.Equal(decimal.NewFromInt(20)), "got %s", got)

	_, err = getAmount(map[string]interface{}{}, "amount")
	require.ErrorIs(t, err, errs.ErrGateway)

	_, err = getAmount(map[string]interface{}{"amount": "2000"}, "amount")
	require.ErrorIs(t, err, errs.ErrGateway)
}

func TestGetString(t *testing.T) {
	t.Parallel()
	got, err := getString(map[string]interface{}{"id": "plink_1"}, "id")
	require.NoError(t, err)
	require.Equal(t, "plink_1", got)

	_, err = getString(map[string]interface{}{"id": ""}, "id")
	require.ErrorIs(t, err, errs.ErrGateway)

	_, err = getString(map[string]interface{}{}, "id")
	require.ErrorIs(t, err, errs.ErrGateway)
}

func TestCapturedPaymentID(t *testing.T) {
	t.Parallel()
	link := map[string]interface{}{
		"payments": []interface{}{
			map[string]interface{}{"payment_id": "pay_1", "status": "failed"},
			map[string]interface{}{"payment_id": "pay_2", "status": "captured"},
		},
	}
	got, err := capturedPaymentID(link)
	require.NoError(t, err)
	require.Equal(t, "pay_2", got)

	_, err = capturedPaymentID(map[string]interface{}{})
	require.Error(t, err)

	_, err = capturedPaymentID(map[string]interface{}{"payments": []interface{}{}})
	require.Error(t, err)
}
