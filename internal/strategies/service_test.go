package strategies_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/strategies"
	"github.com/quantfolio/quantfolio/jobs"
	_ "github.com/quantfolio/quantfolio/testing"
)

type fakeRepo struct {
	strategies []strategies.Strategy
	runs       map[string]*strategies.Run
	created    []*strategies.Strategy
	createdRun *strategies.Run
	promotions []*strategies.Promotion
	err        error
}

func (f *fakeRepo) ListStrategies(ctx context.Context, ownerID string) ([]strategies.Strategy, error) {
	return f.strategies, f.err
}

func (f *fakeRepo) CreateStrategy(ctx context.Context, s *strategies.Strategy, initial *strategies.VersionRef) error {
	f.created = append(f.created, s)
	return f.err
}

func (f *fakeRepo) GetRun(ctx context.Context, id string) (*strategies.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	run, ok := f.runs[id]
	if !ok {
		return nil, strategies.ErrNotFound
	}
	return run, nil
}

func (f *fakeRepo) CreateRun(ctx context.Context, run *strategies.Run) error {
	f.createdRun = run
	return f.err
}

func (f *fakeRepo) CreatePromotion(ctx context.Context, p *strategies.Promotion) error {
	f.promotions = append(f.promotions, p)
	return f.err
}

type fakeEnqueuer struct {
	backtests  []jobs.BacktestRunPayload
	promotions []jobs.PromotionApplyPayload
	err        error
}

func (f *fakeEnqueuer) EnqueueBacktestRun(ctx context.Context, payload jobs.BacktestRunPayload) error {
	if f.err != nil {
		return f.err
	}
	f.backtests = append(f.backtests, payload)
	return nil
}

func (f *fakeEnqueuer) EnqueuePromotionApply(ctx context.Context, payload jobs.PromotionApplyPayload) error {
	if f.err != nil {
		return f.err
	}
	f.promotions = append(f.promotions, payload)
	return nil
}

type fakeBotFinder struct {
	owners map[string]string
}

func (f *fakeBotFinder) FindBotOwner(ctx context.Context, botID string) (string, error) {
	owner, ok := f.owners[botID]
	if !ok {
		return "", strategies.ErrNotFound
	}
	return owner, nil
}

func TestCreateStrategy(t *testing.T) {
	repo := &fakeRepo{}
	svc := strategies.NewService(repo, &fakeEnqueuer{}, &fakeBotFinder{})

	strategy, err := svc.CreateStrategy(context.Background(), strategies.CreateStrategyInput{
		Name:    "  RSI Band Reversion  ",
		OwnerID: "usr_1",
	})
	require.NoError(t, err)
	assert.True(t, len(strategy.ID) > 4 && strategy.ID[:4] == "str_")
	assert.Equal(t, "RSI Band Reversion", strategy.Name)
	assert.Equal(t, "rsi-band-reversion", strategy.Slug)
	require.NotNil(t, strategy.LatestVersion)
	assert.Equal(t, "v1", strategy.LatestVersion.VersionTag)
	require.Len(t, repo.created, 1)
}

func TestCreateStrategyRequiresName(t *testing.T) {
	svc := strategies.NewService(&fakeRepo{}, &fakeEnqueuer{}, &fakeBotFinder{})

	_, err := svc.CreateStrategy(context.Background(), strategies.CreateStrategyInput{Name: "   "})
	require.Error(t, err)
}

func TestQueueBacktest(t *testing.T) {
	repo := &fakeRepo{}
	enqueuer := &fakeEnqueuer{}
	svc := strategies.NewService(repo, enqueuer, &fakeBotFinder{})

	run, err := svc.QueueBacktest(context.Background(), strategies.QueueBacktestInput{
		StrategyID: "str_1",
		OwnerID:    "usr_1",
		Spec:       json.RawMessage(`{"window":14}`),
	})
	require.NoError(t, err)
	assert.Equal(t, strategies.RunQueued, run.Status)
	assert.Equal(t, "BACKTEST", run.Kind)
	assert.Equal(t, "runs/"+run.ID+"/", run.ArtifactPrefix)
	require.NotNil(t, repo.createdRun)

	require.Len(t, enqueuer.backtests, 1)
	assert.Equal(t, run.ID, enqueuer.backtests[0].RunID)
	assert.Equal(t, "str_1", enqueuer.backtests[0].StrategyID)
}

func TestQueueBacktestEnqueueFailure(t *testing.T) {
	enqueuer := &fakeEnqueuer{err: errors.New("redis down")}
	svc := strategies.NewService(&fakeRepo{}, enqueuer, &fakeBotFinder{})

	_, err := svc.QueueBacktest(context.Background(), strategies.QueueBacktestInput{
		StrategyID: "str_1",
		OwnerID:    "usr_1",
	})
	require.Error(t, err)
}

func TestPromote(t *testing.T) {
	repo := &fakeRepo{runs: map[string]*strategies.Run{
		"run_1": {ID: "run_1", OwnerID: "usr_1", ArtifactPrefix: "runs/run_1/"},
	}}
	enqueuer := &fakeEnqueuer{}
	bots := &fakeBotFinder{owners: map[string]string{"bot_1": "usr_1"}}
	svc := strategies.NewService(repo, enqueuer, bots)

	promotion, err := svc.Promote(context.Background(), strategies.PromoteInput{
		RunID:   "run_1",
		BotID:   "bot_1",
		Target:  strategies.TargetPaper,
		OwnerID: "usr_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", promotion.Status)
	require.Len(t, repo.promotions, 1)
	require.Len(t, enqueuer.promotions, 1)
	assert.Equal(t, "runs/run_1/", enqueuer.promotions[0].ArtifactPrefix)
}

func TestPromoteHidesForeignRecords(t *testing.T) {
	repo := &fakeRepo{runs: map[string]*strategies.Run{
		"run_1": {ID: "run_1", OwnerID: "usr_2"},
	}}
	bots := &fakeBotFinder{owners: map[string]string{"bot_1": "usr_1"}}
	svc := strategies.NewService(repo, &fakeEnqueuer{}, bots)

	_, err := svc.Promote(context.Background(), strategies.PromoteInput{
		RunID: "run_1", BotID: "bot_1", Target: strategies.TargetPaper, OwnerID: "usr_1",
	})
	assert.ErrorIs(t, err, strategies.ErrNotFound)

	// Same for a bot owned by someone else.
	repo.runs["run_1"].OwnerID = "usr_1"
	bots.owners["bot_1"] = "usr_2"
	_, err = svc.Promote(context.Background(), strategies.PromoteInput{
		RunID: "run_1", BotID: "bot_1", Target: strategies.TargetPaper, OwnerID: "usr_1",
	})
	assert.ErrorIs(t, err, strategies.ErrNotFound)
}

func TestPromoteUnknownRun(t *testing.T) {
	svc := strategies.NewService(&fakeRepo{runs: map[string]*strategies.Run{}}, &fakeEnqueuer{}, &fakeBotFinder{})

	_, err := svc.Promote(context.Background(), strategies.PromoteInput{
		RunID: "run_missing", BotID: "bot_1", Target: strategies.TargetPaper, OwnerID: "usr_1",
	})
	assert.ErrorIs(t, err, strategies.ErrNotFound)
}
