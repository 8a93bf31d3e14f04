package domain

import (
	"context"
)

// MarketplaceClient is the REST surface of the marketplace, scoped to one account.
type MarketplaceClient interface {
	FetchDeposits(ctx context.Context) ([]Deposit, error)
	RequestMeta(ctx context.Context) (*Meta, error)
	RequestSecurityToken(ctx context.Context) (string, error)
	DelistDeposit(ctx context.Context, id DepositID) error
	ConfirmDeposit(ctx context.Context, id DepositID) error
	ApplySelfLock(ctx context.Context, periodHours int, token string) error
	FetchUserInventory(ctx context.Context) ([]InventoryItem, error)
}

// OfferDispatcher initiates or forwards a trade offer for the given items.
type OfferDispatcher interface {
	SendOffer(ctx context.Context, items []Item, tradeURL string, userID UserID) error
}

// Category tags a notification so sinks can filter it.
type Category string

const (
	CategoryConnect      Category = "connectEmpire"
	CategoryPriceChanged Category = "p2pItemUpdatedPriceChanged"
	CategoryDelist       Category = "p2pItemUpdatedDelist"
	CategoryProcessing   Category = "tradeStatusProcessing"
	CategorySending      Category = "tradeStatusSending"
	CategoryCompleted    Category = "tradeStatusCompleted"
	CategoryTimedOut     Category = "tradeStatusTimedOut"
	CategoryDodge        Category = "tradeStatusDodge"
	CategoryBadResponse  Category = "badResponse"
	CategorySelfLock     Category = "selfLock"
)

// Notifier delivers operator notifications. Notify must never block the
// caller on delivery failure.
type Notifier interface {
	Notify(message string, category Category)
}

// Journal records how deposits ended.
type Journal interface {
	Record(ctx context.Context, rec *TradeRecord) error
}
