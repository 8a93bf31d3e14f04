package engine

import (
	"fmt"

	"empire_bot/internal/domain"
	"empire_bot/internal/event"

	"github.com/shopspring/decimal"
)

// Tracker is the deposit lifecycle state machine of one account.
// It reads the session's ledger and guard and returns intents; it never
// performs I/O. The only state it mutates itself is the sent marker of
// the guard, so duplicate Sending deliveries are suppressed at decision time.
type Tracker struct {
	userID    domain.UserID
	threshold decimal.Decimal
	ledger    *Ledger
	guard     *OfferGuard
}

// NewTracker creates a tracker bound to a session's ledger and guard.
func NewTracker(userID domain.UserID, threshold decimal.Decimal, ledger *Ledger, guard *OfferGuard) *Tracker {
	return &Tracker{
		userID:    userID,
		threshold: threshold,
		ledger:    ledger,
		guard:     guard,
	}
}

// Handle processes a deposit status change and returns the intents to
// execute, in order. Unknown status texts yield nil, and so do deposits that
// already settled. Events without items are ignored except for terminal
// statuses, which still release the deposit.
func (t *Tracker) Handle(ev *event.TradeStatus) []Intent {
	id := ev.DepositID
	if t.guard.Settled(id) {
		return nil
	}

	listed, recorded := t.ledger.Get(id)
	name := ev.ItemName()
	if name == "" {
		name = "deposit " + id.String()
	}

	observed, ok := ev.Observed()
	if !ok {
		if !isTerminal(ev.StatusText) {
			return nil
		}
		observed = listed
	}

	// 1. Drift gate
	if ok && Dodges(listed, recorded, observed, t.threshold) {
		return []Intent{{
			Kind:      IntentNotifyDodge,
			DepositID: id,
			Message:   t.dodgeMessage(name, listed, observed),
			Category:  domain.CategoryDodge,
		}}
	}

	// 2. Transition
	switch ev.StatusText {
	case domain.StatusProcessing:
		return []Intent{{Kind: IntentRecordPrice, DepositID: id, Value: observed}}

	case domain.StatusConfirming:
		// Repeated Confirming deliveries re-issue the confirm request.
		return []Intent{
			{Kind: IntentRequestConfirm, DepositID: id},
			{
				Kind:      IntentNotify,
				DepositID: id,
				Message:   fmt.Sprintf("Deposit '%s' is confirming for %s coins.", name, domain.FormatCoins(observed)),
				Category:  domain.CategoryProcessing,
			},
		}

	case domain.StatusSending:
		if !t.guard.MarkSent(id) {
			return nil
		}
		var intents []Intent
		if !recorded {
			intents = append(intents, Intent{Kind: IntentRecordPrice, DepositID: id, Value: observed})
		}
		return append(intents, Intent{
			Kind:      IntentSendOffer,
			DepositID: id,
			Items:     ev.Items,
			TradeURL:  ev.TradeURL,
			UserID:    t.userID,
		})

	case domain.StatusCompleted:
		return t.terminal(id, name, observed, domain.OutcomeSold,
			fmt.Sprintf("%s has sold for %s coins.", name, domain.FormatCoins(observed)),
			domain.CategoryCompleted)

	case domain.StatusTimedOut:
		return t.terminal(id, name, observed, domain.OutcomeTimedOut,
			fmt.Sprintf("Deposit offer for %s was not accepted by buyer.", name),
			domain.CategoryTimedOut)
	}

	return nil
}

func isTerminal(status string) bool {
	return status == domain.StatusCompleted || status == domain.StatusTimedOut
}

func (t *Tracker) terminal(id domain.DepositID, name string, value int64, outcome, msg string, cat domain.Category) []Intent {
	return []Intent{
		{Kind: IntentNotify, DepositID: id, Message: msg, Category: cat},
		{Kind: IntentRelease, DepositID: id, Value: value, Outcome: outcome, MarketName: name},
	}
}

func (t *Tracker) dodgeMessage(name string, listed, observed int64) string {
	d, ok := Evaluate(listed, observed, t.threshold)
	if !ok {
		return fmt.Sprintf("Dodging item %s because its value dropped to zero.", name)
	}
	return fmt.Sprintf("Dodging item %s because its price changed in a negative way (%s => %s, -%s%%).",
		name, domain.FormatCoins(listed), domain.FormatCoins(observed), d.Percent.StringFixed(2))
}
