package notify_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/libranova/library-service/internal/notify"
)

// The consume loop reuses one handler across sessions: every rebalance or
// broker reconnect starts a new session and calls Setup again.
func TestConsumer_SurvivesSessionRestart(t *testing.T) {
	t.Parallel()
	consumer := notify.NewConsumer(func(notify.Event) {}, zap.NewNop())

	for i := 0; i < 3; i++ {
		require.NotPanics(t, func() {
			require.NoError(t, consumer.Setup(nil))
			require.NoError(t, consumer.Cleanup(nil))
		})
	}
}
