// Package strategies is the models area: research strategies, queued
// backtest runs, and promotions onto bots. Every route here sits behind the
// researcher gate.
package strategies

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound indicates the requested record does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("strategies: not found")

// Run statuses.
const (
	RunQueued    = "QUEUED"
	RunRunning   = "RUNNING"
	RunSucceeded = "SUCCEEDED"
	RunFailed    = "FAILED"
)

// Promotion targets.
const (
	TargetPaper = "paper"
	TargetLive  = "live"
)

// Strategy is a research trading strategy owned by a user.
type Strategy struct {
	ID            string
	Slug          string
	Name          string
	Description   string
	OwnerID       string
	LatestVersion *VersionRef
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// VersionRef summarizes a strategy version.
type VersionRef struct {
	ID         string
	VersionTag string
	StorageKey string
}

// Run is a queued or completed backtest.
type Run struct {
	ID             string
	StrategyID     string
	OwnerID        string
	Kind           string
	Status         string
	Spec           json.RawMessage
	Params         json.RawMessage
	ArtifactPrefix string
	CreatedAt      time.Time
}

// Promotion records a run being promoted onto a bot.
type Promotion struct {
	ID        string
	RunID     string
	BotID     string
	Target    string
	Status    string
	CreatedAt time.Time
}
