package offer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"empire_bot/internal/domain"

	"github.com/pkg/browser"
)

// Router forwards a deposit offer the way the account is configured for:
// native Steam sending, opening the trade link with CSGOTrader auto-fill,
// or a manual "go send" notification.
type Router struct {
	steam    domain.OfferDispatcher // nil without native Steam credentials
	trader   bool
	notifier domain.Notifier
	open     func(url string) error
	logger   *slog.Logger
}

// NewRouter creates a router for acc. steam may be nil.
func NewRouter(acc *domain.Account, steam domain.OfferDispatcher, notifier domain.Notifier) *Router {
	return &Router{
		steam:    steam,
		trader:   acc.CSGOTrader,
		notifier: notifier,
		open:     browser.OpenURL,
		logger:   slog.Default().With("module", "offer_router", "user_id", acc.UserID),
	}
}

var _ domain.OfferDispatcher = (*Router)(nil)

// SendOffer implements domain.OfferDispatcher.
func (r *Router) SendOffer(ctx context.Context, items []domain.Item, tradeURL string, userID domain.UserID) error {
	name, value := describe(items)

	switch {
	case r.steam != nil:
		if err := r.steam.SendOffer(ctx, items, tradeURL, userID); err != nil {
			return err
		}
		r.notifier.Notify(fmt.Sprintf("Trade offer sent for %s - %s coins", name, value), domain.CategorySending)
		return nil

	case r.trader:
		link := CSGOTraderLink(tradeURL, items)
		r.notifier.Notify(fmt.Sprintf("Opening tradelink for %s - %s coins", name, value), domain.CategorySending)
		if err := r.open(link); err != nil {
			return fmt.Errorf("open trade link: %w", err)
		}
		r.logger.Info("Trade link opened", slog.String("url", link))
		return nil

	default:
		r.notifier.Notify(fmt.Sprintf("Deposit offer for %s - %s coins accepted, go send go go", name, value), domain.CategorySending)
		return nil
	}
}

// CSGOTraderLink appends the CSGOTrader auto-send parameter listing every asset.
func CSGOTraderLink(tradeURL string, items []domain.Item) string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, strconv.FormatInt(it.AssetID, 10))
	}
	return tradeURL + "&csgotrader_send=your_id_730_2_" + strings.Join(ids, ",")
}

func describe(items []domain.Item) (string, string) {
	if len(items) == 0 {
		return "", domain.FormatCoins(0)
	}
	return items[0].MarketName, domain.FormatCoins(items[0].MarketValue)
}
