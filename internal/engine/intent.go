package engine

import (
	"empire_bot/internal/domain"
)

// IntentKind defines the type of side effect the tracker asks for
type IntentKind int

const (
	IntentNotifyDodge IntentKind = iota + 1
	IntentRecordPrice
	IntentRequestConfirm
	IntentSendOffer
	IntentNotify
	IntentRelease // terminal cleanup of ledger and guard
)

// String returns the string representation of IntentKind
func (k IntentKind) String() string {
	switch k {
	case IntentNotifyDodge:
		return "notify_dodge"
	case IntentRecordPrice:
		return "record_price"
	case IntentRequestConfirm:
		return "request_confirm"
	case IntentSendOffer:
		return "send_offer"
	case IntentNotify:
		return "notify"
	case IntentRelease:
		return "release"
	default:
		return "unknown"
	}
}

// Intent is a side effect requested by the tracker. Only the fields
// relevant to Kind are set.
type Intent struct {
	Kind      IntentKind
	DepositID domain.DepositID

	Value int64 // RecordPrice, Release

	Items    []domain.Item // SendOffer
	TradeURL string        // SendOffer
	UserID   domain.UserID // SendOffer

	Message  string          // NotifyDodge, Notify
	Category domain.Category // NotifyDodge, Notify

	Outcome    string // Release
	MarketName string // Release
}
