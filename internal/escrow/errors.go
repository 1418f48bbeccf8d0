package escrow

import "errors"

// Every rejected transition maps to exactly one of these. A rejected
// transition leaves the record and the ledger untouched; callers decide
// whether to resubmit.
var (
	// Creation validation
	ErrGameIDTooLong       = errors.New("escrow: game ID too long")
	ErrInvalidMaxPlayers   = errors.New("escrow: invalid max players")
	ErrInvalidBuyIn        = errors.New("escrow: invalid buy-in amount")
	ErrInvalidFillDeadline = errors.New("escrow: invalid fill deadline")

	// State preconditions
	ErrGameNotOpen       = errors.New("escrow: game is not open for joining")
	ErrGameFull          = errors.New("escrow: game is full")
	ErrGameNotFilled     = errors.New("escrow: game not filled")
	ErrGameNotActive     = errors.New("escrow: game is not active")
	ErrGameNotPaused     = errors.New("escrow: game not paused")
	ErrGameNotCancelled  = errors.New("escrow: game not cancelled")
	ErrCannotCancel      = errors.New("escrow: cannot cancel game in current state")
	ErrDeadlinePassed    = errors.New("escrow: fill deadline has passed")
	ErrTooEarlyForWinner = errors.New("escrow: too early to declare winner")

	// Authorization
	ErrUnauthorizedOperator = errors.New("escrow: unauthorized: not the operator")
	ErrOperatorCannotPlay   = errors.New("escrow: operator cannot play in their own game")

	// Membership
	ErrAlreadyJoined   = errors.New("escrow: player has already joined this game")
	ErrWinnerNotPlayer = errors.New("escrow: winner is not a player in this game")
	ErrPlayerNotInGame = errors.New("escrow: player is not in this game")

	// Double-action
	ErrAlreadyRefunded = errors.New("escrow: already refunded")
)
