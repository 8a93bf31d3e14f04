package session

import (
	"context"
	"sync"
	"time"

	"empire_bot/internal/domain"
	"empire_bot/internal/event"
)

type fakeTransport struct {
	events chan event.Event

	mu           sync.Mutex
	connected    bool
	disconnected bool
	identified   []*domain.Meta
	subscribed   int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan event.Event, 16)}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeTransport) Events() <-chan event.Event { return f.events }

func (f *fakeTransport) Identify(meta *domain.Meta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identified = append(f.identified, meta)
	return nil
}

func (f *fakeTransport) Subscribe() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed++
	return nil
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeTransport) wasDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

type fakeClient struct {
	mu sync.Mutex

	deposits    []domain.Deposit
	depositsErr error
	meta        *domain.Meta

	confirmErr error
	confirms   []domain.DepositID

	delistErr error
	delists   []domain.DepositID

	token     string
	tokenErr  error
	lockErr   error
	locks     int
	lockHours []int

	firstLockDelay time.Duration
	lockStarts     []time.Time
}

func (f *fakeClient) FetchDeposits(ctx context.Context) ([]domain.Deposit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deposits, f.depositsErr
}

func (f *fakeClient) RequestMeta(ctx context.Context) (*domain.Meta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meta == nil {
		return &domain.Meta{UserID: 1, SocketToken: "tok"}, nil
	}
	return f.meta, nil
}

func (f *fakeClient) RequestSecurityToken(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.tokenErr
}

func (f *fakeClient) DelistDeposit(ctx context.Context, id domain.DepositID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delists = append(f.delists, id)
	return f.delistErr
}

func (f *fakeClient) ConfirmDeposit(ctx context.Context, id domain.DepositID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirms = append(f.confirms, id)
	return f.confirmErr
}

func (f *fakeClient) ApplySelfLock(ctx context.Context, periodHours int, token string) error {
	f.mu.Lock()
	f.lockStarts = append(f.lockStarts, time.Now())
	delay := time.Duration(0)
	if f.locks == 0 {
		delay = f.firstLockDelay
	}
	f.mu.Unlock()
	time.Sleep(delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks++
	f.lockHours = append(f.lockHours, periodHours)
	return f.lockErr
}

func (f *fakeClient) FetchUserInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	return nil, nil
}

func (f *fakeClient) starts() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.lockStarts...)
}

func (f *fakeClient) lockCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locks
}

type fakeOffers struct {
	mu    sync.Mutex
	calls int
	err   error
	urls  []string
}

func (f *fakeOffers) SendOffer(ctx context.Context, items []domain.Item, tradeURL string, userID domain.UserID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.urls = append(f.urls, tradeURL)
	return f.err
}

type note struct {
	msg string
	cat domain.Category
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (f *fakeNotifier) Notify(message string, category domain.Category) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, note{message, category})
}

func (f *fakeNotifier) byCategory(cat domain.Category) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, n := range f.notes {
		if n.cat == cat {
			out = append(out, n.msg)
		}
	}
	return out
}

type fakeJournal struct {
	mu      sync.Mutex
	records []domain.TradeRecord
}

func (f *fakeJournal) Record(ctx context.Context, rec *domain.TradeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *rec)
	return nil
}
