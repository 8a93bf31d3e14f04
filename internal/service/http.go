package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"empire_bot/internal/domain"
	"empire_bot/internal/infra"
	"empire_bot/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TradeHistory reads the trade journal.
type TradeHistory interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.TradeRecord, error)
	CountByOutcome(ctx context.Context, userID int64) (map[string]int64, error)
}

// StatusServer exposes health, metrics and per-account state over HTTP.
type StatusServer struct {
	registry *Registry
	history  TradeHistory // optional
	srv      *http.Server
}

// NewStatusServer creates a status server. history may be nil.
func NewStatusServer(addr string, registry *Registry, history TradeHistory) *StatusServer {
	s := &StatusServer{registry: registry, history: history}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router builds the HTTP routes.
func (s *StatusServer) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(infra.MetricsMiddleware)

	r.Get("/health", s.health)
	r.Handle("/metrics", infra.MetricsHandler())

	r.Route("/accounts", func(r chi.Router) {
		r.Get("/", s.listAccounts)
		r.Get("/{userID}/deposits", s.deposits)
		r.Get("/{userID}/inventory", s.inventory)
		r.Get("/{userID}/trades", s.trades)
	})

	return r
}

// ListenAndServe serves until Shutdown is called.
func (s *StatusServer) ListenAndServe() error {
	slog.Info("Status server listening", slog.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *StatusServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"accounts":  len(s.registry.All()),
		"connected": s.registry.ConnectedCount(),
	})
}

func (s *StatusServer) listAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Statuses())
}

type depositView struct {
	ID          domain.DepositID `json:"id"`
	ListedCents int64            `json:"listed_cents"`
	ListedCoins string           `json:"listed_coins"`
}

func (s *StatusServer) deposits(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	snap := sess.Deposits()
	out := make([]depositView, 0, len(snap))
	for id, v := range snap {
		out = append(out, depositView{ID: id, ListedCents: v, ListedCoins: domain.FormatCoins(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *StatusServer) inventory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	items, err := sess.Client().FetchUserInventory(r.Context())
	if err != nil {
		slog.Warn("Inventory fetch failed", slog.String("user_id", sess.UserID().String()), slog.Any("error", err))
		writeError(w, "failed to fetch inventory", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *StatusServer) trades(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if s.history == nil {
		writeError(w, "trade journal disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	uid := int64(sess.UserID())
	records, err := s.history.ListByUser(r.Context(), uid, limit)
	if err != nil {
		writeError(w, "failed to load trades", http.StatusInternalServerError)
		return
	}
	counts, err := s.history.CountByOutcome(r.Context(), uid)
	if err != nil {
		writeError(w, "failed to load trades", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"outcomes": counts,
		"trades":   records,
	})
}

func (s *StatusServer) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, "invalid user id", http.StatusBadRequest)
		return nil, false
	}
	sess, ok := s.registry.Get(domain.UserID(id))
	if !ok {
		writeError(w, "account not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
