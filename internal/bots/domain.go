// Package bots covers the trading-bot surface: listing state and issuing
// lifecycle commands. Every route here sits behind the botOperator gate.
package bots

import (
	"errors"
	"time"
)

// ErrNotFound indicates the bot does not exist or is not visible.
var ErrNotFound = errors.New("bots: not found")

// Commands accepted by the command endpoint.
const (
	CommandStart  = "start"
	CommandStop   = "stop"
	CommandReload = "reload"
)

// Bot is a paper or live trading bot.
type Bot struct {
	ID         string
	Name       string
	Mode       string
	Status     string
	Equity     float64
	DayPnl     float64
	Pairlist   []string
	StrategyID string
	OwnerID    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
