package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libranova/library-service/internal/model"
)

// The sweep must only touch checkout-attached records: a FINE issued by the
// scan has no session yet and stays PENDING until paid, waived, or attached.
func TestExpirePendingQuery(t *testing.T) {
	t.Parallel()
	cutoff := time.Date(2023, 11, 9, 12, 0, 0, 0, time.UTC)

	query, args, err := expirePendingQuery(cutoff)
	require.NoError(t, err)
	require.Equal(t,
		"UPDATE payments SET status = $1 WHERE status = $2 AND created_at < $3 AND session_id <> $4",
		query)
	require.Equal(t, []interface{}{model.StatusExpired, model.StatusPending, cutoff, ""}, args)
}
