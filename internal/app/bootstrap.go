package app

import (
	"context"
	"log/slog"
	"time"

	"empire_bot/internal/domain"
	"empire_bot/internal/infra"
	"empire_bot/internal/infra/empire"
	"empire_bot/internal/infra/notify"
	"empire_bot/internal/infra/offer"
	"empire_bot/internal/infra/steam"
	"empire_bot/internal/infra/storage"
	"empire_bot/internal/service"
	"empire_bot/internal/session"

	"golang.org/x/sync/errgroup"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config   *infra.Config
	Journal  *storage.Journal
	Notifier *notify.Notifier
	Redis    *notify.RedisPublisher // nil unless notify.redis_url is set
	Registry *service.Registry
	Status   *service.StatusServer
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads the configuration and builds every component.
// Nothing is connected until Run is called.
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("🚀 Bootstrapping Empire Bot...", slog.Int("accounts", len(cfg.Accounts)))

	// 3. Trade journal
	target := cfg.Storage.Path
	if cfg.Storage.Driver == storage.DriverPostgres {
		target = cfg.Storage.DSN
	}
	journal, err := storage.OpenJournal(cfg.Storage.Driver, target)
	if err != nil {
		return err
	}
	b.Journal = journal
	slog.Info("✅ Trade journal initialized", slog.String("driver", cfg.Storage.Driver))

	// 4. Notifier
	var sinks notify.Fanout
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.Username))
	}
	if cfg.Notify.RedisURL != "" {
		pub, err := notify.NewRedisPublisher(cfg.Notify.RedisURL, cfg.Notify.RedisChannel)
		if err != nil {
			journal.Close()
			return err
		}
		b.Redis = pub
		sinks = append(sinks, pub)
	}
	var sink notify.Sink
	switch len(sinks) {
	case 0:
	case 1:
		sink = sinks[0]
	default:
		sink = sinks
	}
	b.Notifier = notify.NewNotifier(cfg.Notify, sink)

	// 5. Sessions
	b.Registry = service.NewRegistry()
	for i := range cfg.Accounts {
		b.Registry.Add(b.newSession(&cfg.Accounts[i]))
	}
	slog.Info("✅ Sessions ready", slog.Int("count", len(b.Registry.All())))

	// 6. Status server
	if cfg.Status.Addr != "" {
		b.Status = service.NewStatusServer(cfg.Status.Addr, b.Registry, journal)
	}

	return nil
}

func (b *Bootstrap) newSession(acc *domain.Account) *session.Session {
	var native domain.OfferDispatcher
	if acc.HasNativeSteam() {
		native = steam.NewDispatcher(acc, "")
	}

	return session.New(*acc, session.Deps{
		Client:    empire.NewClient(acc, ""),
		Transport: empire.NewSocket(acc, ""),
		Offers:    offer.NewRouter(acc, native, b.Notifier),
		Notifier:  b.Notifier,
		Journal:   b.Journal,
	})
}

// Run starts every session, staggered by the configured delay, and blocks
// until ctx is cancelled. A session that fails to start is logged and does
// not stop the others.
func (b *Bootstrap) Run(ctx context.Context) error {
	defer b.Journal.Close()

	if b.Redis != nil {
		defer b.Redis.Close()
	}
	b.Notifier.Start(ctx)
	defer b.Notifier.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if b.Status != nil {
		g.Go(b.Status.ListenAndServe)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return b.Status.Shutdown(shutdownCtx)
		})
	}

	stagger := time.Duration(b.Config.Startup.StaggerSec) * time.Second
	for i, s := range b.Registry.All() {
		if i > 0 && stagger > 0 {
			select {
			case <-gctx.Done():
				return g.Wait()
			case <-time.After(stagger):
			}
		}

		sess := s
		g.Go(func() error {
			if err := sess.Run(gctx); err != nil {
				slog.Error("Session failed", slog.String("user_id", sess.UserID().String()), slog.Any("error", err))
			}
			return nil
		})
		slog.Info("✅ Session started", slog.String("user_id", s.UserID().String()))
	}

	slog.Info("✨ Empire Bot fully operational. Press Ctrl+C to exit.")
	return g.Wait()
}
