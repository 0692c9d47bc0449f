// Package jobs defines the asynq task types behind the research surface and
// the worker that consumes them.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/quantfolio/quantfolio/internal/observability"
)

const (
	// QueueDefault is the queue name for background jobs.
	QueueDefault = "default"
	// TaskBacktestRun executes a queued strategy backtest.
	TaskBacktestRun = "backtest:run"
	// TaskPromotionApply promotes a finished run onto a bot.
	TaskPromotionApply = "promotion:apply"
)

// BacktestRunPayload describes a queued backtest.
type BacktestRunPayload struct {
	RunID      string          `json:"runId"`
	StrategyID string          `json:"strategyId"`
	OwnerID    string          `json:"ownerId"`
	Spec       json.RawMessage `json:"spec"`
	Params     json.RawMessage `json:"params"`
}

// PromotionApplyPayload describes a promotion of a run onto a bot.
type PromotionApplyPayload struct {
	PromotionID    string `json:"promotionId"`
	RunID          string `json:"runId"`
	BotID          string `json:"botId"`
	Target         string `json:"target"`
	ArtifactPrefix string `json:"artifactPrefix"`
}

// NewBacktestRunTask constructs an Asynq task.
func NewBacktestRunTask(payload BacktestRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBacktestRun, data), nil
}

// NewPromotionApplyTask constructs an Asynq task.
func NewPromotionApplyTask(payload PromotionApplyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPromotionApply, data), nil
}

// NewBacktestRunHandler returns the worker handler for TaskBacktestRun.
// Actual backtest execution lives in the research runner deployment; this
// worker acknowledges and records the hand-off.
func NewBacktestRunHandler(logger *slog.Logger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload BacktestRunPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			metrics.ObserveJob(TaskBacktestRun, "invalid")
			return asynq.SkipRetry
		}
		if logger != nil {
			logger.Info("backtest run dispatched",
				slog.String("run_id", payload.RunID),
				slog.String("strategy_id", payload.StrategyID))
		}
		metrics.ObserveJob(TaskBacktestRun, "ok")
		return nil
	}
}

// NewPromotionApplyHandler returns the worker handler for TaskPromotionApply.
func NewPromotionApplyHandler(logger *slog.Logger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PromotionApplyPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			metrics.ObserveJob(TaskPromotionApply, "invalid")
			return asynq.SkipRetry
		}
		if logger != nil {
			logger.Info("promotion dispatched",
				slog.String("promotion_id", payload.PromotionID),
				slog.String("bot_id", payload.BotID),
				slog.String("target", payload.Target))
		}
		metrics.ObserveJob(TaskPromotionApply, "ok")
		return nil
	}
}
