package escrow

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/ledger"
)

// Config tunes machine behaviour that the hosting platform owns.
type Config struct {
	// Reserve is the minimum balance kept in every custody account and
	// never distributed. Payout on settlement is balance minus Reserve,
	// saturating at zero. Zero disables the reserve.
	Reserve int64

	// MinimumGameTime overrides the default minimum run time before a
	// winner may be declared. Zero means MinimumGameTime.
	MinimumGameTime time.Duration
}

// Machine executes escrow transitions. Each operation is a single
// read-validate-mutate step invoked with an already-authenticated caller
// identity; the hosting layer serializes operations per record, so no two
// transitions on the same escrow ever run concurrently.
type Machine struct {
	ledger *ledger.Ledger
	clock  quartz.Clock
	logger *log.Logger
	cfg    Config
}

// NewMachine creates a machine over the given ledger and clock.
func NewMachine(l *ledger.Ledger, clock quartz.Clock, logger *log.Logger, cfg Config) *Machine {
	if cfg.MinimumGameTime == 0 {
		cfg.MinimumGameTime = MinimumGameTime
	}
	return &Machine{
		ledger: l,
		clock:  clock,
		logger: logger.WithPrefix("escrow"),
		cfg:    cfg,
	}
}

// CustodyAccount returns the ledger account backing a game's pooled funds.
func CustodyAccount(gameID string) string {
	return "escrow:" + gameID
}

// Reserve returns the configured never-distributed floor.
func (m *Machine) Reserve() int64 {
	return m.cfg.Reserve
}

// CreateParams carries the immutable creation inputs for a game.
type CreateParams struct {
	GameID            string
	BuyIn             int64
	MaxPlayers        int
	FillDeadlineHours int
	Seed              [32]byte
}

// CreateGame allocates a new escrow record with status Open. The operator
// funds the custody account's reserve; uniqueness of the game ID is the
// hosting layer's addressing concern.
func (m *Machine) CreateGame(operator string, p CreateParams) (*Escrow, error) {
	if len(p.GameID) > MaxGameIDLen {
		return nil, ErrGameIDTooLong
	}
	if p.MaxPlayers <= 0 || p.MaxPlayers > MaxPlayers {
		return nil, ErrInvalidMaxPlayers
	}
	if p.BuyIn <= 0 {
		return nil, ErrInvalidBuyIn
	}
	if p.FillDeadlineHours <= 0 {
		return nil, ErrInvalidFillDeadline
	}

	now := m.clock.Now()

	if m.cfg.Reserve > 0 {
		if err := m.ledger.Transfer(operator, CustodyAccount(p.GameID), m.cfg.Reserve); err != nil {
			return nil, err
		}
	}

	e := &Escrow{
		GameID:       p.GameID,
		Operator:     operator,
		Status:       StatusOpen,
		BuyIn:        p.BuyIn,
		MaxPlayers:   p.MaxPlayers,
		Players:      make([]string, 0, p.MaxPlayers),
		Refunded:     make([]bool, 0, p.MaxPlayers),
		Seed:         p.Seed,
		CreatedAt:    now,
		FillDeadline: now.Add(time.Duration(p.FillDeadlineHours) * time.Hour),
	}

	m.logger.Info("game created", "game", e.GameID, "operator", operator,
		"buyIn", e.BuyIn, "maxPlayers", e.MaxPlayers, "fillDeadline", e.FillDeadline)
	return e, nil
}

// JoinGame adds the caller as a participant, moving their buy-in into
// custody. The transfer happens before any record mutation so a failed
// transfer leaves the record untouched. Filling the last seat moves the
// game to Filled.
func (m *Machine) JoinGame(e *Escrow, caller string) error {
	if e.Status != StatusOpen {
		return ErrGameNotOpen
	}
	if e.CurrentPlayers() >= e.MaxPlayers {
		return ErrGameFull
	}
	if !m.clock.Now().Before(e.FillDeadline) {
		return ErrDeadlinePassed
	}
	if caller == e.Operator {
		return ErrOperatorCannotPlay
	}
	if e.HasPlayer(caller) {
		return ErrAlreadyJoined
	}

	if err := m.ledger.Transfer(caller, CustodyAccount(e.GameID), e.BuyIn); err != nil {
		return err
	}

	e.Players = append(e.Players, caller)
	e.Refunded = append(e.Refunded, false)

	if e.CurrentPlayers() == e.MaxPlayers {
		e.Status = StatusFilled
		m.logger.Info("game filled", "game", e.GameID, "players", e.CurrentPlayers())
	}

	m.logger.Info("player joined game", "game", e.GameID, "player", caller,
		"players", e.CurrentPlayers(), "maxPlayers", e.MaxPlayers)
	return nil
}

// StartGame moves a filled game to Active and stamps the start time.
func (m *Machine) StartGame(e *Escrow, caller string) error {
	if e.Status != StatusFilled {
		return ErrGameNotFilled
	}
	if caller != e.Operator {
		return ErrUnauthorizedOperator
	}

	e.Status = StatusActive
	e.StartedAt = m.clock.Now()

	m.logger.Info("game started", "game", e.GameID, "startedAt", e.StartedAt)
	return nil
}

// DeclareWinner settles an active game: the custody balance above the
// reserve moves to the winner in one transfer, and the record becomes
// Complete with the winner and proof commitment stored. The proof hash is
// an auditable commitment to off-chain outcome evidence; the escrow does
// not verify it.
func (m *Machine) DeclareWinner(e *Escrow, caller, winner string, proofHash [32]byte) error {
	if e.Status != StatusActive {
		return ErrGameNotActive
	}
	if caller != e.Operator {
		return ErrUnauthorizedOperator
	}
	if !e.HasPlayer(winner) {
		return ErrWinnerNotPlayer
	}
	if !e.StartedAt.IsZero() {
		if m.clock.Now().Before(e.StartedAt.Add(m.cfg.MinimumGameTime)) {
			return ErrTooEarlyForWinner
		}
	}

	custody := CustodyAccount(e.GameID)
	payout := m.ledger.Balance(custody) - m.cfg.Reserve
	if payout > 0 {
		if err := m.ledger.Transfer(custody, winner, payout); err != nil {
			return err
		}
	}

	e.Winner = winner
	e.ProofHash = proofHash
	e.Status = StatusComplete

	m.logger.Info("game complete", "game", e.GameID, "winner", winner, "payout", payout)
	return nil
}

// CancelGame moves a game to Cancelled. Open and Paused games cancel
// unconditionally; Filled games only once the fill deadline has passed.
// No funds move here: refunds are claimed individually so one unreachable
// participant can never block the others.
func (m *Machine) CancelGame(e *Escrow, caller string) error {
	if caller != e.Operator {
		return ErrUnauthorizedOperator
	}

	canCancel := false
	switch e.Status {
	case StatusOpen, StatusPaused:
		canCancel = true
	case StatusFilled:
		canCancel = m.clock.Now().After(e.FillDeadline)
	}
	if !canCancel {
		return ErrCannotCancel
	}

	e.Status = StatusCancelled

	m.logger.Info("game cancelled", "game", e.GameID, "players", e.CurrentPlayers())
	return nil
}

// ClaimRefund returns the caller's buy-in from a cancelled game's custody.
// Idempotent per participant: a second claim fails with ErrAlreadyRefunded
// rather than double-paying.
func (m *Machine) ClaimRefund(e *Escrow, caller string) error {
	if e.Status != StatusCancelled {
		return ErrGameNotCancelled
	}

	i := e.playerIndex(caller)
	if i < 0 {
		return ErrPlayerNotInGame
	}
	if e.Refunded[i] {
		return ErrAlreadyRefunded
	}

	if err := m.ledger.Transfer(CustodyAccount(e.GameID), caller, e.BuyIn); err != nil {
		return err
	}
	e.Refunded[i] = true

	m.logger.Info("player refunded", "game", e.GameID, "player", caller, "amount", e.BuyIn)
	return nil
}

// EmergencyHalt pauses an active game. Operator circuit-breaker for dispute
// handling: a paused game can be resumed or cancelled, but cannot settle.
func (m *Machine) EmergencyHalt(e *Escrow, caller string) error {
	if e.Status != StatusActive {
		return ErrGameNotActive
	}
	if caller != e.Operator {
		return ErrUnauthorizedOperator
	}

	e.Status = StatusPaused

	m.logger.Warn("game halted", "game", e.GameID)
	return nil
}

// ResumeGame returns a paused game to Active.
func (m *Machine) ResumeGame(e *Escrow, caller string) error {
	if e.Status != StatusPaused {
		return ErrGameNotPaused
	}
	if caller != e.Operator {
		return ErrUnauthorizedOperator
	}

	e.Status = StatusActive

	m.logger.Info("game resumed", "game", e.GameID)
	return nil
}
