package server

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/escrow"
)

// MessageType identifies a WebSocket message.
type MessageType string

const (
	// Client → Server
	MessageTypeAuth          MessageType = "auth"
	MessageTypeCreateGame    MessageType = "create_game"
	MessageTypeJoinGame      MessageType = "join_game"
	MessageTypeStartGame     MessageType = "start_game"
	MessageTypeDeclareWinner MessageType = "declare_winner"
	MessageTypeCancelGame    MessageType = "cancel_game"
	MessageTypeClaimRefund   MessageType = "claim_refund"
	MessageTypeEmergencyHalt MessageType = "emergency_halt"
	MessageTypeResumeGame    MessageType = "resume_game"
	MessageTypeGetGame       MessageType = "get_game"
	MessageTypeListGames     MessageType = "list_games"
	MessageTypeFaucet        MessageType = "faucet"

	// Server → Client
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeGameState    MessageType = "game_state"
	MessageTypeGameList     MessageType = "game_list"
	MessageTypeBalance      MessageType = "balance"
	MessageTypeError        MessageType = "error"
)

// Message is the base WebSocket envelope.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a message with the current timestamp.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server payloads

type AuthData struct {
	PlayerName string `json:"playerName"`
	Token      string `json:"token,omitempty"`
}

type CreateGameData struct {
	GameID            string `json:"gameId"`
	BuyIn             int64  `json:"buyIn"`
	MaxPlayers        int    `json:"maxPlayers"`
	FillDeadlineHours int    `json:"fillDeadlineHours"`
	Seed              string `json:"seed"` // 32 bytes, hex encoded
}

// GameOpData covers the operations that only need a game ID and the caller.
type GameOpData struct {
	GameID string `json:"gameId"`
}

type DeclareWinnerData struct {
	GameID    string `json:"gameId"`
	Winner    string `json:"winner"`
	ProofHash string `json:"proofHash"` // 32 bytes, hex encoded
}

type FaucetData struct {
	Amount int64 `json:"amount"`
}

// Server → Client payloads

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GameStateData is the snapshot returned after every successful operation.
type GameStateData struct {
	GameID         string    `json:"gameId"`
	Operator       string    `json:"operator"`
	Status         string    `json:"status"`
	BuyIn          int64     `json:"buyIn"`
	MaxPlayers     int       `json:"maxPlayers"`
	CurrentPlayers int       `json:"currentPlayers"`
	Players        []string  `json:"players"`
	Refunded       []bool    `json:"refunded"`
	Winner         string    `json:"winner,omitempty"`
	ProofHash      string    `json:"proofHash,omitempty"`
	Pool           int64     `json:"pool"`
	CreatedAt      time.Time `json:"createdAt"`
	FillDeadline   time.Time `json:"fillDeadline"`
	StartedAt      time.Time `json:"startedAt,omitempty"`
}

type GameListData struct {
	Games []GameStateData `json:"games"`
}

type BalanceData struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

// GameStateFromEscrow converts a record plus its custody balance into the
// wire snapshot.
func GameStateFromEscrow(e *escrow.Escrow, pool int64) GameStateData {
	state := GameStateData{
		GameID:         e.GameID,
		Operator:       e.Operator,
		Status:         e.Status.String(),
		BuyIn:          e.BuyIn,
		MaxPlayers:     e.MaxPlayers,
		CurrentPlayers: e.CurrentPlayers(),
		Players:        append([]string(nil), e.Players...),
		Refunded:       append([]bool(nil), e.Refunded...),
		Winner:         e.Winner,
		Pool:           pool,
		CreatedAt:      e.CreatedAt,
		FillDeadline:   e.FillDeadline,
		StartedAt:      e.StartedAt,
	}
	if e.Settled() {
		state.ProofHash = hex.EncodeToString(e.ProofHash[:])
	}
	return state
}

// parseHash32 decodes a 64-character hex string into a 32-byte value.
func parseHash32(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid hex: %w", err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("expected %d bytes, got %d", len(out), len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
