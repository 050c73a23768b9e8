package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentcal/internal/domain/listings"
)

var (
	ErrSessionNotFound = errors.New("session: not found")
	// ErrStaleSession is returned by Open when a newer Open or a Cancel for
	// the same client superseded the load before it finished.
	ErrStaleSession   = errors.New("session: superseded by a newer request")
	ErrClientRequired = errors.New("session: client key required")
)

type OpenRequest struct {
	ClientKey string
	ListingID listings.ListingID
	Mode      Mode
}

// Manager tracks the current session of every client. Each Open builds a new
// model from scratch; sessions are never patched in place.
type Manager struct {
	Loader     ModelLoader
	WarningTTL time.Duration
	Now        func() time.Time
	NewID      func() string
	Logger     *slog.Logger

	mu       sync.Mutex
	gens     map[string]uint64
	byClient map[string]*Session
	byID     map[string]*Session
}

func NewManager(loader ModelLoader, warningTTL time.Duration, logger *slog.Logger) *Manager {
	return &Manager{Loader: loader, WarningTTL: warningTTL, Logger: logger}
}

// Open discards the client's previous session and loads a new one. If the
// client opens again or cancels while this load is in flight, the result is
// dropped and ErrStaleSession returned.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	clientKey := strings.TrimSpace(req.ClientKey)
	if clientKey == "" {
		return nil, ErrClientRequired
	}
	if strings.TrimSpace(string(req.ListingID)) == "" {
		return nil, listings.ErrListingIDMissing
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeGuest
	}

	m.mu.Lock()
	m.init()
	gen := m.gens[clientKey] + 1
	m.gens[clientKey] = gen
	m.dropLocked(clientKey)
	m.mu.Unlock()

	model, err := m.Loader.Load(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[clientKey] != gen {
		m.logger().DebugContext(ctx, "discarding stale calendar load", "client", clientKey, "listing_id", req.ListingID, "generation", gen)
		return nil, ErrStaleSession
	}
	s := newSession(m.newID(), clientKey, mode, gen, model, m.now(), m.WarningTTL)
	m.byClient[clientKey] = s
	m.byID[s.id] = s
	m.logger().InfoContext(ctx, "calendar session opened", "session_id", s.id, "listing_id", s.listingID, "mode", mode, "failures", len(model.Failures()))
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close discards a session by id.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return ErrSessionNotFound
	}
	m.gens[s.clientKey]++
	m.dropLocked(s.clientKey)
	return nil
}

// Cancel discards the client's session and invalidates any load in flight.
func (m *Manager) Cancel(clientKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.gens[clientKey]++
	m.dropLocked(clientKey)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *Manager) dropLocked(clientKey string) {
	if prev, ok := m.byClient[clientKey]; ok {
		delete(m.byID, prev.id)
		delete(m.byClient, clientKey)
	}
}

func (m *Manager) init() {
	if m.gens == nil {
		m.gens = make(map[string]uint64)
		m.byClient = make(map[string]*Session)
		m.byID = make(map[string]*Session)
	}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

func (m *Manager) newID() string {
	if m.NewID != nil {
		return m.NewID()
	}
	return uuid.NewString()
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
