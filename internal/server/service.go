package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/escrow"
	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/gameid"
	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/ledger"
	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/store"
)

var (
	// ErrGameNotFound indicates no escrow record exists for the game ID.
	ErrGameNotFound = errors.New("server: game not found")

	// ErrGameExists indicates the game ID is already taken. Game IDs are
	// the addressing scheme; the escrow core relies on this uniqueness.
	ErrGameExists = errors.New("server: game already exists")
)

// gameEntry pairs a record with the mutex that serializes its transitions.
// The escrow core assumes one-transition-at-a-time execution per record;
// this mutex is where that guarantee comes from.
type gameEntry struct {
	mu  sync.Mutex
	esc *escrow.Escrow
}

// Service hosts escrow records: it resolves game IDs to records, serializes
// operations per record, runs them through the machine, and persists
// committed state. Operations on different games proceed independently.
type Service struct {
	machine *escrow.Machine
	ledger  *ledger.Ledger
	store   *store.Store // nil disables persistence
	logger  *log.Logger

	faucet bool

	mu    sync.RWMutex
	games map[string]*gameEntry

	// ledgerMu orders ledger snapshots: the snapshot and its write happen
	// under one lock so an older snapshot never lands after a newer one.
	ledgerMu sync.Mutex
}

// EnableFaucet turns on the dev-mode deposit operation.
func (s *Service) EnableFaucet() {
	s.faucet = true
}

// FaucetEnabled reports whether dev-mode deposits are allowed.
func (s *Service) FaucetEnabled() bool {
	return s.faucet
}

// NewService creates a service over a machine and its ledger. store may be
// nil for in-memory operation.
func NewService(machine *escrow.Machine, l *ledger.Ledger, st *store.Store, logger *log.Logger) *Service {
	return &Service{
		machine: machine,
		ledger:  l,
		store:   st,
		logger:  logger.WithPrefix("service"),
		games:   make(map[string]*gameEntry),
	}
}

// Restore registers previously persisted records, typically at boot.
func (s *Service) Restore(records []*escrow.Escrow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range records {
		s.games[e.GameID] = &gameEntry{esc: e}
	}
	s.logger.Info("restored escrow records", "count", len(records))
}

// CreateGame validates the ID, allocates the record, and registers it.
// An empty ID gets a generated one. Registration happens under the
// registry lock so two creators can never race the same game ID.
func (s *Service) CreateGame(operator string, p escrow.CreateParams) (GameStateData, error) {
	if p.GameID == "" {
		p.GameID = gameid.Generate("game")
	}
	if err := gameid.Validate(p.GameID); err != nil {
		return GameStateData{}, fmt.Errorf("invalid game ID: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[p.GameID]; exists {
		return GameStateData{}, ErrGameExists
	}

	e, err := s.machine.CreateGame(operator, p)
	if err != nil {
		return GameStateData{}, err
	}
	s.games[e.GameID] = &gameEntry{esc: e}

	s.persist(e)
	return s.snapshot(e), nil
}

// JoinGame adds the caller as a participant.
func (s *Service) JoinGame(gameID, caller string) (GameStateData, error) {
	return s.withGame(gameID, func(e *escrow.Escrow) error {
		return s.machine.JoinGame(e, caller)
	})
}

// StartGame activates a filled game.
func (s *Service) StartGame(gameID, caller string) (GameStateData, error) {
	return s.withGame(gameID, func(e *escrow.Escrow) error {
		return s.machine.StartGame(e, caller)
	})
}

// DeclareWinner settles an active game.
func (s *Service) DeclareWinner(gameID, caller, winner string, proofHash [32]byte) (GameStateData, error) {
	return s.withGame(gameID, func(e *escrow.Escrow) error {
		return s.machine.DeclareWinner(e, caller, winner, proofHash)
	})
}

// CancelGame cancels a game, opening it for refund claims.
func (s *Service) CancelGame(gameID, caller string) (GameStateData, error) {
	return s.withGame(gameID, func(e *escrow.Escrow) error {
		return s.machine.CancelGame(e, caller)
	})
}

// ClaimRefund returns the caller's buy-in from a cancelled game.
func (s *Service) ClaimRefund(gameID, caller string) (GameStateData, error) {
	return s.withGame(gameID, func(e *escrow.Escrow) error {
		return s.machine.ClaimRefund(e, caller)
	})
}

// EmergencyHalt pauses an active game.
func (s *Service) EmergencyHalt(gameID, caller string) (GameStateData, error) {
	return s.withGame(gameID, func(e *escrow.Escrow) error {
		return s.machine.EmergencyHalt(e, caller)
	})
}

// ResumeGame reactivates a paused game.
func (s *Service) ResumeGame(gameID, caller string) (GameStateData, error) {
	return s.withGame(gameID, func(e *escrow.Escrow) error {
		return s.machine.ResumeGame(e, caller)
	})
}

// GetGame returns a snapshot of one record.
func (s *Service) GetGame(gameID string) (GameStateData, error) {
	entry, ok := s.lookup(gameID)
	if !ok {
		return GameStateData{}, ErrGameNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.snapshot(entry.esc), nil
}

// ListGames returns snapshots of all records.
func (s *Service) ListGames() []GameStateData {
	s.mu.RLock()
	entries := make([]*gameEntry, 0, len(s.games))
	for _, entry := range s.games {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	out := make([]GameStateData, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		out = append(out, s.snapshot(entry.esc))
		entry.mu.Unlock()
	}
	return out
}

// Deposit credits an account from outside the escrow system. Exposed for
// host provisioning and the dev-mode faucet.
func (s *Service) Deposit(account string, amount int64) error {
	if err := s.ledger.Deposit(account, amount); err != nil {
		return err
	}
	s.persistLedger()
	return nil
}

// Balance returns an account's ledger balance.
func (s *Service) Balance(account string) int64 {
	return s.ledger.Balance(account)
}

// withGame resolves the record, serializes the transition against it, and
// persists on success. A failed transition leaves the record unchanged and
// nothing is written.
func (s *Service) withGame(gameID string, fn func(*escrow.Escrow) error) (GameStateData, error) {
	entry, ok := s.lookup(gameID)
	if !ok {
		return GameStateData{}, ErrGameNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err := fn(entry.esc); err != nil {
		return GameStateData{}, err
	}
	s.persist(entry.esc)
	return s.snapshot(entry.esc), nil
}

func (s *Service) lookup(gameID string) (*gameEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.games[gameID]
	return entry, ok
}

func (s *Service) snapshot(e *escrow.Escrow) GameStateData {
	return GameStateFromEscrow(e, s.ledger.Balance(escrow.CustodyAccount(e.GameID)))
}

// persist writes the committed record and the ledger balances that back
// it. Persistence failure is logged, not returned: the in-memory state is
// authoritative and the next successful transition rewrites the snapshots.
func (s *Service) persist(e *escrow.Escrow) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(e); err != nil {
		s.logger.Error("failed to persist escrow", "game", e.GameID, "error", err)
	}
	s.persistLedger()
}

// persistLedger writes the current balances. Recovery restores them before
// any record, so a restored game can always move the funds it holds.
func (s *Service) persistLedger() {
	if s.store == nil {
		return
	}
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()
	if err := s.store.SaveLedger(s.ledger.Snapshot()); err != nil {
		s.logger.Error("failed to persist ledger", "error", err)
	}
}
