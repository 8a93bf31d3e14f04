package engine

import (
	"testing"

	"empire_bot/internal/domain"
	"empire_bot/internal/event"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker() (*Tracker, *Ledger, *OfferGuard) {
	ledger := NewLedger()
	guard := NewOfferGuard()
	return NewTracker(42, decimal.NewFromInt(5), ledger, guard), ledger, guard
}

func tradeStatus(id domain.DepositID, text string, value int64) *event.TradeStatus {
	return &event.TradeStatus{
		DepositID:  id,
		TradeType:  domain.TradeTypeDeposit,
		StatusText: text,
		Items:      []domain.Item{{AssetID: 9001, MarketName: "AK-47 | Redline (Field-Tested)", MarketValue: value}},
		TradeURL:   "https://steamcommunity.com/tradeoffer/new/?partner=1&token=abc",
	}
}

func kinds(intents []Intent) []IntentKind {
	out := make([]IntentKind, 0, len(intents))
	for _, in := range intents {
		out = append(out, in.Kind)
	}
	return out
}

// apply mimics what a session does with ledger-affecting intents.
func apply(l *Ledger, g *OfferGuard, intents []Intent) {
	for _, in := range intents {
		switch in.Kind {
		case IntentRecordPrice:
			l.Record(in.DepositID, in.Value)
		case IntentRelease:
			l.Remove(in.DepositID)
			g.Settle(in.DepositID)
		}
	}
}

func TestTracker_Processing(t *testing.T) {
	tr, ledger, _ := newTestTracker()

	intents := tr.Handle(tradeStatus(1, domain.StatusProcessing, 1500))
	require.Equal(t, []IntentKind{IntentRecordPrice}, kinds(intents))
	assert.EqualValues(t, 1500, intents[0].Value)

	apply(ledger, nil, intents)
	v, ok := ledger.Get(1)
	assert.True(t, ok)
	assert.EqualValues(t, 1500, v)
}

func TestTracker_Confirming(t *testing.T) {
	tr, _, _ := newTestTracker()

	for i := 0; i < 2; i++ {
		intents := tr.Handle(tradeStatus(1, domain.StatusConfirming, 1500))
		assert.Equal(t, []IntentKind{IntentRequestConfirm, IntentNotify}, kinds(intents),
			"delivery %d must re-issue the confirm request", i+1)
		assert.Equal(t, domain.CategoryProcessing, intents[1].Category)
		assert.Contains(t, intents[1].Message, "15.00")
	}
}

func TestTracker_SendingIsDeduplicated(t *testing.T) {
	tr, ledger, guard := newTestTracker()
	ledger.Record(1, 1500)

	first := tr.Handle(tradeStatus(1, domain.StatusSending, 1500))
	second := tr.Handle(tradeStatus(1, domain.StatusSending, 1500))

	require.Equal(t, []IntentKind{IntentSendOffer}, kinds(first))
	assert.Empty(t, second)
	assert.True(t, guard.Sent(1))

	offer := first[0]
	assert.EqualValues(t, 42, offer.UserID)
	assert.Equal(t, "https://steamcommunity.com/tradeoffer/new/?partner=1&token=abc", offer.TradeURL)
	assert.Len(t, offer.Items, 1)
}

func TestTracker_SendingUntrackedRecordsFirst(t *testing.T) {
	tr, ledger, guard := newTestTracker()

	intents := tr.Handle(tradeStatus(5, domain.StatusSending, 700))
	require.Equal(t, []IntentKind{IntentRecordPrice, IntentSendOffer}, kinds(intents))

	apply(ledger, guard, intents)
	_, ok := ledger.Get(5)
	assert.True(t, ok, "an id in the guard must also be in the ledger")
}

func TestTracker_Terminal(t *testing.T) {
	cases := []struct {
		status   string
		category domain.Category
		outcome  string
	}{
		{domain.StatusCompleted, domain.CategoryCompleted, domain.OutcomeSold},
		{domain.StatusTimedOut, domain.CategoryTimedOut, domain.OutcomeTimedOut},
	}

	for _, c := range cases {
		t.Run(c.status, func(t *testing.T) {
			tr, ledger, guard := newTestTracker()
			ledger.Record(1, 1500)
			guard.MarkSent(1)

			intents := tr.Handle(tradeStatus(1, c.status, 1500))
			require.Equal(t, []IntentKind{IntentNotify, IntentRelease}, kinds(intents))
			assert.Equal(t, c.category, intents[0].Category)
			assert.Equal(t, c.outcome, intents[1].Outcome)

			apply(ledger, guard, intents)
			_, tracked := ledger.Get(1)
			assert.False(t, tracked)
			assert.False(t, guard.Sent(1))

			assert.Empty(t, tr.Handle(tradeStatus(1, c.status, 1500)), "redelivery must be a no-op")
		})
	}
}

func TestTracker_UnknownStatusIgnored(t *testing.T) {
	tr, _, _ := newTestTracker()
	assert.Nil(t, tr.Handle(tradeStatus(1, "Disputed", 1500)))
	assert.Nil(t, tr.Handle(tradeStatus(1, "", 1500)))
}

func TestTracker_NoItemsIgnored(t *testing.T) {
	tr, _, _ := newTestTracker()
	ev := tradeStatus(1, domain.StatusProcessing, 1500)
	ev.Items = nil
	assert.Nil(t, tr.Handle(ev))
}

func TestTracker_PriceRiseIsNotADodge(t *testing.T) {
	tr, ledger, _ := newTestTracker()
	ledger.Record(1, 1000)

	intents := tr.Handle(tradeStatus(1, domain.StatusProcessing, 1200))
	require.Equal(t, []IntentKind{IntentRecordPrice}, kinds(intents))

	intents = tr.Handle(tradeStatus(1, domain.StatusConfirming, 1200))
	assert.Equal(t, []IntentKind{IntentRequestConfirm, IntentNotify}, kinds(intents))
}

func TestTracker_DropBeyondThresholdDodges(t *testing.T) {
	for _, status := range []string{
		domain.StatusProcessing, domain.StatusConfirming, domain.StatusSending,
		domain.StatusCompleted, domain.StatusTimedOut,
	} {
		t.Run(status, func(t *testing.T) {
			tr, ledger, guard := newTestTracker()
			ledger.Record(1, 1000)

			intents := tr.Handle(tradeStatus(1, status, 800))
			require.Equal(t, []IntentKind{IntentNotifyDodge}, kinds(intents))
			assert.Equal(t, domain.CategoryDodge, intents[0].Category)
			assert.Contains(t, intents[0].Message, "25.00")

			v, _ := ledger.Get(1)
			assert.EqualValues(t, 1000, v, "ledger entry must stay untouched")
			assert.False(t, guard.Sent(1))
		})
	}
}

func TestTracker_SeedThenProcessingOverwrites(t *testing.T) {
	tr, ledger, guard := newTestTracker()
	ledger.Seed([]domain.Deposit{{ID: 7, TotalValue: 500}})

	v, _ := ledger.Get(7)
	require.EqualValues(t, 500, v)

	apply(ledger, guard, tr.Handle(tradeStatus(7, domain.StatusProcessing, 520)))
	v, _ = ledger.Get(7)
	assert.EqualValues(t, 520, v)
}

func TestTracker_SettledDepositStaysSettled(t *testing.T) {
	tr, ledger, guard := newTestTracker()

	apply(ledger, guard, tr.Handle(tradeStatus(7, domain.StatusProcessing, 1550)))
	apply(ledger, guard, tr.Handle(tradeStatus(7, domain.StatusSending, 1550)))
	apply(ledger, guard, tr.Handle(tradeStatus(7, domain.StatusCompleted, 1550)))
	require.True(t, guard.Settled(7))

	for _, status := range []string{domain.StatusSending, domain.StatusProcessing, domain.StatusConfirming} {
		assert.Empty(t, tr.Handle(tradeStatus(7, status, 1550)), "%s after Completed", status)
	}
	_, tracked := ledger.Get(7)
	assert.False(t, tracked)
	assert.False(t, guard.Sent(7))
}

func TestTracker_SendingAfterDelistIsIgnored(t *testing.T) {
	tr, ledger, guard := newTestTracker()
	ledger.Record(8, 1000)

	// what a session does after a successful delist
	ledger.Remove(8)
	guard.Settle(8)

	assert.Empty(t, tr.Handle(tradeStatus(8, domain.StatusSending, 1000)))
	_, tracked := ledger.Get(8)
	assert.False(t, tracked)
}

func TestTracker_TerminalWithoutItemsReleases(t *testing.T) {
	for _, status := range []string{domain.StatusCompleted, domain.StatusTimedOut} {
		t.Run(status, func(t *testing.T) {
			tr, ledger, guard := newTestTracker()
			ledger.Record(3, 1200)
			guard.MarkSent(3)

			ev := tradeStatus(3, status, 0)
			ev.Items = nil
			intents := tr.Handle(ev)
			require.Equal(t, []IntentKind{IntentNotify, IntentRelease}, kinds(intents))
			assert.EqualValues(t, 1200, intents[1].Value, "falls back to the listed value")
			assert.Equal(t, "deposit 3", intents[1].MarketName)

			apply(ledger, guard, intents)
			_, tracked := ledger.Get(3)
			assert.False(t, tracked)
			assert.False(t, guard.Sent(3))
		})
	}
}
