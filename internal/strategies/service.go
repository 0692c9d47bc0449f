package strategies

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/quantfolio/quantfolio/jobs"
)

// Enqueuer submits background tasks for the models area.
type Enqueuer interface {
	EnqueueBacktestRun(ctx context.Context, payload jobs.BacktestRunPayload) error
	EnqueuePromotionApply(ctx context.Context, payload jobs.PromotionApplyPayload) error
}

// BotFinder resolves bot ownership for promotions. Implemented by the bots
// repository; kept as a port so the two modules stay decoupled.
type BotFinder interface {
	FindBotOwner(ctx context.Context, botID string) (string, error)
}

// Service handles models-area business logic.
type Service struct {
	repo     RepositoryPort
	enqueuer Enqueuer
	bots     BotFinder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, enqueuer Enqueuer, bots BotFinder) *Service {
	return &Service{repo: repo, enqueuer: enqueuer, bots: bots}
}

// ListStrategies returns the owner's strategies.
func (s *Service) ListStrategies(ctx context.Context, ownerID string) ([]Strategy, error) {
	return s.repo.ListStrategies(ctx, ownerID)
}

// CreateStrategyInput carries the fields accepted from the API.
type CreateStrategyInput struct {
	Name        string
	Description string
	VersionTag  string
	StorageKey  string
	OwnerID     string
}

// CreateStrategy creates a strategy with its initial version.
func (s *Service) CreateStrategy(ctx context.Context, input CreateStrategyInput) (*Strategy, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.New("strategies: name required")
	}
	strategy := &Strategy{
		ID:          "str_" + uuid.NewString(),
		Slug:        slugify(name),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		OwnerID:     input.OwnerID,
	}
	versionTag := input.VersionTag
	if versionTag == "" {
		versionTag = "v1"
	}
	initial := &VersionRef{
		ID:         "ver_" + uuid.NewString(),
		VersionTag: versionTag,
		StorageKey: input.StorageKey,
	}
	if err := s.repo.CreateStrategy(ctx, strategy, initial); err != nil {
		return nil, err
	}
	strategy.LatestVersion = initial
	return strategy, nil
}

// QueueBacktestInput carries a backtest request.
type QueueBacktestInput struct {
	StrategyID string
	OwnerID    string
	Spec       json.RawMessage
	Params     json.RawMessage
}

// QueueBacktest records a QUEUED run and hands it to the job queue.
func (s *Service) QueueBacktest(ctx context.Context, input QueueBacktestInput) (*Run, error) {
	run := &Run{
		ID:         "run_" + uuid.NewString(),
		StrategyID: input.StrategyID,
		OwnerID:    input.OwnerID,
		Kind:       "BACKTEST",
		Status:     RunQueued,
		Spec:       input.Spec,
		Params:     input.Params,
	}
	run.ArtifactPrefix = "runs/" + run.ID + "/"
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	if err := s.enqueuer.EnqueueBacktestRun(ctx, jobs.BacktestRunPayload{
		RunID:      run.ID,
		StrategyID: run.StrategyID,
		OwnerID:    run.OwnerID,
		Spec:       run.Spec,
		Params:     run.Params,
	}); err != nil {
		return nil, err
	}
	return run, nil
}

// PromoteInput carries a promotion request.
type PromoteInput struct {
	RunID   string
	BotID   string
	Target  string
	OwnerID string
}

// Promote validates run and bot ownership, records the promotion, and hands
// it to the job queue. Records owned by someone else surface as not found.
func (s *Service) Promote(ctx context.Context, input PromoteInput) (*Promotion, error) {
	run, err := s.repo.GetRun(ctx, input.RunID)
	if err != nil {
		return nil, err
	}
	if run.OwnerID != "" && run.OwnerID != input.OwnerID {
		return nil, ErrNotFound
	}

	botOwner, err := s.bots.FindBotOwner(ctx, input.BotID)
	if err != nil {
		return nil, err
	}
	if botOwner != "" && botOwner != input.OwnerID {
		return nil, ErrNotFound
	}

	promotion := &Promotion{
		ID:     "prm_" + uuid.NewString(),
		RunID:  input.RunID,
		BotID:  input.BotID,
		Target: input.Target,
		Status: "PENDING",
	}
	if err := s.repo.CreatePromotion(ctx, promotion); err != nil {
		return nil, err
	}
	if err := s.enqueuer.EnqueuePromotionApply(ctx, jobs.PromotionApplyPayload{
		PromotionID:    promotion.ID,
		RunID:          promotion.RunID,
		BotID:          promotion.BotID,
		Target:         promotion.Target,
		ArtifactPrefix: run.ArtifactPrefix,
	}); err != nil {
		return nil, err
	}
	return promotion, nil
}
