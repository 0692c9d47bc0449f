package bots

import (
	"context"
	"fmt"
)

// Service handles bot business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListBots returns the owner's bots.
func (s *Service) ListBots(ctx context.Context, ownerID string) ([]Bot, error) {
	return s.repo.ListBots(ctx, ownerID)
}

// Command validates ownership and records a lifecycle command. Bots owned
// by someone else surface as not found.
func (s *Service) Command(ctx context.Context, botID, command, issuedBy string) error {
	switch command {
	case CommandStart, CommandStop, CommandReload:
	default:
		return fmt.Errorf("bots: unsupported command %q", command)
	}
	bot, err := s.repo.GetBot(ctx, botID)
	if err != nil {
		return err
	}
	if bot.OwnerID != "" && bot.OwnerID != issuedBy {
		return ErrNotFound
	}
	return s.repo.RecordCommand(ctx, botID, command, issuedBy)
}
