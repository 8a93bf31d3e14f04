package domain

import (
	"time"
)

// Trade outcomes written to the journal.
const (
	OutcomeSold         = "sold"
	OutcomeTimedOut     = "timed_out"
	OutcomeDelisted     = "delisted"
	OutcomeDelistFailed = "delist_failed"
)

// TradeRecord is an append-only journal row describing how a deposit ended.
type TradeRecord struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	UserID     int64     `gorm:"index" json:"user_id"`
	DepositID  int64     `gorm:"index" json:"deposit_id"`
	MarketName string    `json:"market_name"`
	ValueCents int64     `json:"value_cents"`
	Outcome    string    `gorm:"index" json:"outcome"`
	CreatedAt  time.Time `json:"created_at"`
}
