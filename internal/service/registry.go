package service

import (
	"sort"
	"sync"

	"empire_bot/internal/domain"
	"empire_bot/internal/session"
)

// AccountStatus is a read-only view of one session.
type AccountStatus struct {
	UserID          domain.UserID `json:"user_id"`
	Origin          string        `json:"origin"`
	Connected       bool          `json:"connected"`
	TrackedDeposits int           `json:"tracked_deposits"`
	SelfLock        bool          `json:"self_lock"`
	OfferMode       string        `json:"offer_mode"`
}

// Registry holds every running account session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]*session.Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.UserID]*session.Session)}
}

// Add registers s, replacing any session with the same user id.
func (r *Registry) Add(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.UserID()] = s
}

// Get returns the session of userID.
func (r *Registry) Get(userID domain.UserID) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// All returns every session ordered by user id.
func (r *Registry) All() []*session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID() < result[j].UserID()
	})
	return result
}

// Statuses returns a status line per session, ordered by user id.
func (r *Registry) Statuses() []AccountStatus {
	all := r.All()
	out := make([]AccountStatus, 0, len(all))
	for _, s := range all {
		acc := s.Account()
		out = append(out, AccountStatus{
			UserID:          acc.UserID,
			Origin:          acc.Origin,
			Connected:       s.Connected(),
			TrackedDeposits: len(s.Deposits()),
			SelfLock:        acc.SelfLock.Enabled,
			OfferMode:       offerMode(&acc),
		})
	}
	return out
}

// ConnectedCount returns how many sessions are connected.
func (r *Registry) ConnectedCount() int {
	n := 0
	for _, s := range r.All() {
		if s.Connected() {
			n++
		}
	}
	return n
}

func offerMode(acc *domain.Account) string {
	switch {
	case acc.HasNativeSteam():
		return "steam"
	case acc.CSGOTrader:
		return "csgotrader"
	default:
		return "manual"
	}
}
