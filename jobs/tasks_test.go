package jobs_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/observability"
	"github.com/quantfolio/quantfolio/jobs"
	_ "github.com/quantfolio/quantfolio/testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBacktestRunTaskRoundTrip(t *testing.T) {
	task, err := jobs.NewBacktestRunTask(jobs.BacktestRunPayload{
		RunID:      "run_1",
		StrategyID: "str_1",
		OwnerID:    "usr_1",
	})
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskBacktestRun, task.Type())

	handler := jobs.NewBacktestRunHandler(discardLogger(), observability.NewMetrics())
	require.NoError(t, handler(context.Background(), task))
}

func TestBacktestRunHandlerSkipsBadPayload(t *testing.T) {
	handler := jobs.NewBacktestRunHandler(discardLogger(), observability.NewMetrics())

	err := handler(context.Background(), asynq.NewTask(jobs.TaskBacktestRun, []byte("{not json")))
	assert.True(t, errors.Is(err, asynq.SkipRetry), "malformed payloads must not be retried")
}

func TestPromotionApplyTaskRoundTrip(t *testing.T) {
	task, err := jobs.NewPromotionApplyTask(jobs.PromotionApplyPayload{
		PromotionID: "prm_1",
		RunID:       "run_1",
		BotID:       "bot_1",
		Target:      "paper",
	})
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskPromotionApply, task.Type())

	handler := jobs.NewPromotionApplyHandler(discardLogger(), observability.NewMetrics())
	require.NoError(t, handler(context.Background(), task))
}

func TestPromotionApplyHandlerSkipsBadPayload(t *testing.T) {
	handler := jobs.NewPromotionApplyHandler(discardLogger(), observability.NewMetrics())

	err := handler(context.Background(), asynq.NewTask(jobs.TaskPromotionApply, []byte("")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
