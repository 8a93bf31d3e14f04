package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DepositID is the marketplace-assigned id of an in-flight deposit.
type DepositID int64

func (d DepositID) String() string {
	return fmt.Sprintf("%d", int64(d))
}

// UnmarshalJSON accepts the id as a JSON number or a numeric string.
func (d *DepositID) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid deposit id %s: %w", b, err)
	}
	*d = DepositID(n)
	return nil
}

// Deposit is an in-flight deposit as reported by the REST API.
// TotalValue is in cents.
type Deposit struct {
	ID         DepositID
	TotalValue int64
}

// Item is a single skin attached to a deposit.
type Item struct {
	AssetID     int64
	MarketName  string
	MarketValue int64 // cents
}

// InventoryItem is an entry of the user's marketplace inventory.
type InventoryItem struct {
	AssetID     int64  `json:"asset_id"`
	MarketName  string `json:"market_name"`
	MarketValue int64  `json:"market_value"`
	Tradable    bool   `json:"tradable"`
}

// Meta carries the values needed for the socket identify handshake.
type Meta struct {
	UserID          int64
	User            json.RawMessage
	SocketToken     string
	SocketSignature string
}

// Trade status texts sent by the marketplace.
const (
	StatusProcessing = "Processing"
	StatusConfirming = "Confirming"
	StatusSending    = "Sending"
	StatusCompleted  = "Completed"
	StatusTimedOut   = "TimedOut"
)

// TradeTypeDeposit is the only trade type the bot reacts to.
const TradeTypeDeposit = "deposit"

var hundred = decimal.NewFromInt(100)

// CoinsToCents converts a coin amount into integer cents.
func CoinsToCents(coins decimal.Decimal) int64 {
	return coins.Mul(hundred).Round(0).IntPart()
}

// FormatCoins renders cents as a coin amount with two decimals.
func FormatCoins(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
