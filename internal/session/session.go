package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"empire_bot/internal/domain"
	"empire_bot/internal/engine"
	"empire_bot/internal/event"
	"empire_bot/internal/infra"
)

// Transport is the live event feed of one account.
type Transport interface {
	Connect(ctx context.Context) error
	Events() <-chan event.Event
	Identify(meta *domain.Meta) error
	Subscribe() error
	Disconnect()
}

// Deps are the external collaborators of a session. Journal is optional.
type Deps struct {
	Client    domain.MarketplaceClient
	Transport Transport
	Offers    domain.OfferDispatcher
	Notifier  domain.Notifier
	Journal   domain.Journal
}

// Session drives one account. Events are handled one at a time on the Run
// goroutine, which is the only writer of the ledger and the offer guard.
type Session struct {
	acc     domain.Account
	deps    Deps
	ledger  *engine.Ledger
	guard   *engine.OfferGuard
	tracker *engine.Tracker
	logger  *slog.Logger

	selfLockEvery time.Duration

	connected atomic.Bool
	wg        sync.WaitGroup

	mu       sync.RWMutex // guards snapshot, for external reads
	snapshot map[domain.DepositID]int64
}

// New creates a session for acc.
func New(acc domain.Account, deps Deps) *Session {
	ledger := engine.NewLedger()
	guard := engine.NewOfferGuard()
	return &Session{
		acc:           acc,
		deps:          deps,
		ledger:        ledger,
		guard:         guard,
		tracker:       engine.NewTracker(acc.UserID, acc.DelistThreshold, ledger, guard),
		logger:        slog.Default().With("module", "session", "user_id", acc.UserID),
		selfLockEvery: acc.SelfLock.Interval(),
		snapshot:      make(map[domain.DepositID]int64),
	}
}

// UserID returns the account id.
func (s *Session) UserID() domain.UserID { return s.acc.UserID }

// Account returns the account configuration.
func (s *Session) Account() domain.Account { return s.acc }

// Client returns the account's REST client.
func (s *Session) Client() domain.MarketplaceClient { return s.deps.Client }

// Connected reports whether the live feed is currently connected.
func (s *Session) Connected() bool { return s.connected.Load() }

// Deposits returns a copy of the tracked deposits as of the last handled event.
func (s *Session) Deposits() map[domain.DepositID]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.DepositID]int64, len(s.snapshot))
	for id, v := range s.snapshot {
		out[id] = v
	}
	return out
}

// Run connects the transport and handles events until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer s.wg.Wait()
	defer cancel()

	if err := s.deps.Transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", s.acc.UserID, err)
	}
	defer s.deps.Transport.Disconnect()
	defer s.setConnected(false)

	if s.acc.SelfLock.Enabled {
		s.wg.Add(1)
		go s.selfLockLoop(ctx)
	}

	s.logger.Info("Session started", slog.String("origin", s.acc.Origin))

	events := s.deps.Transport.Events()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session stopping...")
			return nil
		case ev, ok := <-events:
			if !ok {
				s.logger.Warn("Event stream closed")
				return nil
			}
			s.processEvent(ctx, ev)
		}
	}
}

func (s *Session) processEvent(ctx context.Context, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Event handler panic recovered", slog.String("type", ev.GetType().String()), slog.Any("panic", r))
		}
	}()

	infra.EventsTotal.WithLabelValues(ev.GetType().String()).Inc()

	switch e := ev.(type) {
	case *event.Connected:
		s.onConnected(ctx)
	case *event.Authenticated:
		s.onAuthenticated(ctx)
	case *event.Disconnected:
		s.setConnected(false)
		s.logger.Warn("Live feed disconnected", slog.Any("error", e.Err))
	case *event.PriceUpdate:
		s.onPriceUpdate(ctx, e)
	case *event.TradeStatus:
		s.onTradeStatus(ctx, e)
	default:
		s.logger.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}

	s.publish()
}

func (s *Session) onConnected(ctx context.Context) {
	s.setConnected(true)
	s.deps.Notifier.Notify("Connected to empire.", domain.CategoryConnect)

	meta, err := s.deps.Client.RequestMeta(ctx)
	if err != nil {
		s.badResponse("requestMetaModel", err)
		return
	}
	if err := s.deps.Transport.Identify(meta); err != nil {
		s.logger.Warn("Identify failed", slog.Any("error", err))
	}
}

func (s *Session) onAuthenticated(ctx context.Context) {
	s.logger.Info("Live feed authenticated", slog.String("origin", s.acc.Origin))

	if err := s.deps.Transport.Subscribe(); err != nil {
		s.logger.Warn("Subscribe failed", slog.Any("error", err))
	}

	deposits, err := s.deps.Client.FetchDeposits(ctx)
	if err != nil {
		s.badResponse("loadDepositItems", err)
		return
	}
	n := s.ledger.Seed(deposits)
	s.logger.Info("Deposit ledger seeded", slog.Int("deposits", n))
}

func (s *Session) onPriceUpdate(ctx context.Context, e *event.PriceUpdate) {
	listed, ok := s.ledger.Get(e.DepositID)
	if !ok {
		return
	}

	drift, ok := engine.Evaluate(listed, e.MarketValue, s.acc.DelistThreshold)
	if !ok {
		s.logger.Debug("Ignoring non-positive price", slog.String("deposit_id", e.DepositID.String()))
		return
	}

	sign := "+"
	if drift.Percent.IsPositive() {
		sign = "-"
	}
	s.deps.Notifier.Notify(fmt.Sprintf("Price changed for %s, %s => %s (%s%s%%)",
		e.MarketName, domain.FormatCoins(listed), domain.FormatCoins(e.MarketValue),
		sign, drift.Percent.Abs().StringFixed(2)), domain.CategoryPriceChanged)

	if !drift.ShouldDelist {
		return
	}

	if err := s.deps.Client.DelistDeposit(ctx, e.DepositID); err != nil {
		infra.DelistsTotal.WithLabelValues("failed").Inc()
		s.deps.Notifier.Notify(fmt.Sprintf("Failed to delist %s: %v", e.MarketName, err), domain.CategoryDelist)
		s.journal(ctx, e.DepositID, e.MarketName, e.MarketValue, domain.OutcomeDelistFailed)
		return
	}

	infra.DelistsTotal.WithLabelValues("ok").Inc()
	s.deps.Notifier.Notify(fmt.Sprintf("%s was delisted because its price dropped by %s%%.",
		e.MarketName, drift.Percent.StringFixed(2)), domain.CategoryDelist)
	s.ledger.Remove(e.DepositID)
	s.guard.Settle(e.DepositID)
	s.journal(ctx, e.DepositID, e.MarketName, e.MarketValue, domain.OutcomeDelisted)
}

func (s *Session) onTradeStatus(ctx context.Context, e *event.TradeStatus) {
	if e.TradeType != domain.TradeTypeDeposit {
		return
	}

	for _, in := range s.tracker.Handle(e) {
		infra.IntentsTotal.WithLabelValues(in.Kind.String()).Inc()
		s.execute(ctx, in)
	}
}

// execute performs one intent. Failures are notified and leave the ledger
// and guard as if the operation never happened.
func (s *Session) execute(ctx context.Context, in engine.Intent) {
	switch in.Kind {
	case engine.IntentNotifyDodge, engine.IntentNotify:
		s.deps.Notifier.Notify(in.Message, in.Category)

	case engine.IntentRecordPrice:
		s.ledger.Record(in.DepositID, in.Value)

	case engine.IntentRequestConfirm:
		if err := s.deps.Client.ConfirmDeposit(ctx, in.DepositID); err != nil {
			s.badResponse("confirmTrade", err)
		}

	case engine.IntentSendOffer:
		if err := s.deps.Offers.SendOffer(ctx, in.Items, in.TradeURL, in.UserID); err != nil {
			s.guard.Unmark(in.DepositID)
			s.deps.Notifier.Notify(fmt.Sprintf("Failed to send offer for deposit %s, %v", in.DepositID, err), domain.CategoryBadResponse)
		}

	case engine.IntentRelease:
		s.ledger.Remove(in.DepositID)
		s.guard.Settle(in.DepositID)
		s.journal(ctx, in.DepositID, in.MarketName, in.Value, in.Outcome)
	}
}

func (s *Session) badResponse(op string, err error) {
	s.deps.Notifier.Notify(fmt.Sprintf("Bad response from %s at '%s', %v", s.acc.Origin, op, err), domain.CategoryBadResponse)
}

func (s *Session) journal(ctx context.Context, id domain.DepositID, name string, value int64, outcome string) {
	if s.deps.Journal == nil {
		return
	}
	rec := &domain.TradeRecord{
		UserID:     int64(s.acc.UserID),
		DepositID:  int64(id),
		MarketName: name,
		ValueCents: value,
		Outcome:    outcome,
	}
	if err := s.deps.Journal.Record(ctx, rec); err != nil {
		s.logger.Warn("Failed to journal trade", slog.String("deposit_id", id.String()), slog.Any("error", err))
	}
}

func (s *Session) setConnected(on bool) {
	if s.connected.Swap(on) == on {
		return
	}
	if on {
		infra.ConnectedSessions.Inc()
	} else {
		infra.ConnectedSessions.Dec()
	}
}

// publish copies the ledger for external readers.
func (s *Session) publish() {
	snap := s.ledger.Snapshot()
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	infra.TrackedDeposits.WithLabelValues(s.acc.UserID.String()).Set(float64(len(snap)))
}
