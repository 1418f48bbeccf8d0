// Package escrow implements the custodial escrow state machine for
// Battle Dinghy games. Participants deposit a fixed buy-in into a pooled
// custody account; the operator drives the lifecycle; the pool is released
// to a declared winner or reclaimed by participants after cancellation.
package escrow

import "time"

const (
	// MaxGameIDLen bounds the record key chosen by the operator.
	MaxGameIDLen = 32

	// MaxPlayers is the hard cap on participants per game.
	MaxPlayers = 10

	// MinimumGameTime is how long a game must run before a winner may be
	// declared. Guards against instant self-serving settlement.
	MinimumGameTime = 60 * time.Second
)

// Status is the lifecycle state of a game escrow.
type Status uint8

const (
	StatusOpen Status = iota
	StatusFilled
	StatusActive
	StatusComplete
	StatusCancelled
	StatusPaused
)

// String returns the string representation of a status.
func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusFilled:
		return "filled"
	case StatusActive:
		return "active"
	case StatusComplete:
		return "complete"
	case StatusCancelled:
		return "cancelled"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Escrow is one game record. One record per game instance, keyed by GameID.
// The custodied balance is not a field here: it is the actual balance of the
// ledger account backing the record (see Machine.CustodyAccount).
type Escrow struct {
	GameID     string `json:"game_id"`
	Operator   string `json:"operator"`
	Status     Status `json:"status"`
	BuyIn      int64  `json:"buy_in"`
	MaxPlayers int    `json:"max_players"`

	// Players and Refunded run in parallel: Refunded[i] records whether
	// Players[i] has claimed their refund after cancellation.
	Players  []string `json:"players"`
	Refunded []bool   `json:"refunded"`

	// Seed is an externally-verifiable randomness commitment supplied at
	// creation. The escrow never interprets it.
	Seed [32]byte `json:"seed"`

	// Winner and ProofHash are set together, exactly once, on completion.
	// An empty Winner means not yet settled.
	Winner    string   `json:"winner,omitempty"`
	ProofHash [32]byte `json:"proof_hash,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	FillDeadline time.Time `json:"fill_deadline"`
	StartedAt    time.Time `json:"started_at,omitempty"`
}

// CurrentPlayers returns the number of joined participants.
func (e *Escrow) CurrentPlayers() int {
	return len(e.Players)
}

// HasPlayer reports whether id has joined this game.
func (e *Escrow) HasPlayer(id string) bool {
	return e.playerIndex(id) >= 0
}

// playerIndex returns the join position of id, or -1.
func (e *Escrow) playerIndex(id string) int {
	for i, p := range e.Players {
		if p == id {
			return i
		}
	}
	return -1
}

// Settled reports whether a winner has been declared.
func (e *Escrow) Settled() bool {
	return e.Winner != ""
}

// AllRefunded reports whether every participant has claimed their refund.
// Vacuously true for a game nobody joined.
func (e *Escrow) AllRefunded() bool {
	for _, r := range e.Refunded {
		if !r {
			return false
		}
	}
	return true
}
