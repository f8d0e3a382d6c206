// Package model defines the data models shared by the bot, the ledger and the webpanel.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet is a user's ArsenalCoin account. Balance may go negative: AdjustBalance
// applies deltas without a floor check.
type Wallet struct {
	UserID      string     `db:"user_id"`
	Balance     int64      `db:"balance"`
	TotalEarned int64      `db:"total_earned"`
	TotalSpent  int64      `db:"total_spent"`
	LastHourly  *time.Time `db:"last_hourly"`
	LastDaily   *time.Time `db:"last_daily"`
	LastWeekly  *time.Time `db:"last_weekly"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// LastClaim returns the last claim time for a reward kind, nil if never claimed.
func (w *Wallet) LastClaim(kind RewardKind) *time.Time {
	switch kind {
	case RewardHourly:
		return w.LastHourly
	case RewardDaily:
		return w.LastDaily
	case RewardWeekly:
		return w.LastWeekly
	}
	return nil
}

// Transaction is an immutable balance change record. Nothing enforces that a
// wallet's balance equals the sum of its transactions.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      string    `db:"user_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeHourly     = "hourly"
	TxTypeDaily      = "daily"
	TxTypeWeekly     = "weekly"
	TxTypeTransfer   = "transfer"
	TxTypeCasinoBet  = "casino_bet"
	TxTypeCasinoWin  = "casino_win"
	TxTypeConversion = "conversion"
	TxTypeRefund     = "conversion_refund"
	TxTypeAdminAdd   = "admin_add"
)

// RewardKind names a timed reward.
type RewardKind string

const (
	RewardHourly RewardKind = "hourly"
	RewardDaily  RewardKind = "daily"
	RewardWeekly RewardKind = "weekly"
)

// Cooldown returns the claim window for the reward kind.
func (k RewardKind) Cooldown() time.Duration {
	switch k {
	case RewardHourly:
		return time.Hour
	case RewardDaily:
		return 24 * time.Hour
	case RewardWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

// Valid reports whether k is a known reward kind.
func (k RewardKind) Valid() bool {
	return k.Cooldown() > 0
}

// TicketStatus is open or closed; there are no intermediate states.
type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// Ticket is a private support channel tied to one requester.
type Ticket struct {
	ID           int64        `db:"id"`
	GuildID      string       `db:"guild_id"`
	Number       int          `db:"number"`
	OwnerID      string       `db:"owner_id"`
	ChannelID    string       `db:"channel_id"`
	Category     string       `db:"category"`
	Status       TicketStatus `db:"status"`
	MessageCount int          `db:"message_count"`
	CreatedAt    time.Time    `db:"created_at"`
	ClosedAt     *time.Time   `db:"closed_at"`
	ClosedBy     *string      `db:"closed_by"`
	CloseReason  *string      `db:"close_reason"`
}

// IsOpen reports whether the ticket is still open.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketOpen
}

// TicketStats summarises a guild's tickets.
type TicketStats struct {
	Open       int
	Closed     int
	Total      int
	ByCategory map[string]int
}

// ConversionStatus tracks a coin-to-euro conversion.
type ConversionStatus string

const (
	ConversionPending    ConversionStatus = "PENDING"
	ConversionProcessing ConversionStatus = "PROCESSING"
	ConversionCompleted  ConversionStatus = "COMPLETED"
	ConversionFailed     ConversionStatus = "FAILED"
)

// SimulationDestination marks a conversion with no real payout wallet.
const SimulationDestination = "simulation"

// Conversion is one ArsenalCoin → euro conversion request.
type Conversion struct {
	ID            uuid.UUID        `db:"id"`
	UserID        string           `db:"user_id"`
	Coins         int64            `db:"coins"`
	EuroValue     decimal.Decimal  `db:"euro_value"`
	Commission    decimal.Decimal  `db:"commission"`
	NetValue      decimal.Decimal  `db:"net_value"`
	Destination   string           `db:"destination"`
	Status        ConversionStatus `db:"status"`
	FailureReason string           `db:"failure_reason"`
	CreatedAt     time.Time        `db:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"`
}

// Profile holds a user's cosmetic settings.
type Profile struct {
	UserID      string    `db:"user_id"`
	Style       string    `db:"style"`
	Bio         string    `db:"bio"`
	AccentColor string    `db:"accent_color"`
	UpdatedAt   time.Time `db:"updated_at"`
}
