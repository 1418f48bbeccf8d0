package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/escrow"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one WebSocket client. A connection must authenticate
// before any escrow operation; the resolved identity is the caller for
// every subsequent request.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	service   *Service
	validator Validator
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
}

// NewConnection creates a connection wrapper.
func NewConnection(conn *websocket.Conn, service *Service, validator Validator, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:      conn,
		send:      make(chan *Message, 64),
		service:   service,
		validator: validator,
		logger:    logger.WithPrefix("conn"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message to the client.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel closed during shutdown
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) setPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// Player returns the authenticated caller identity, or "".
func (c *Connection) Player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type, "player", c.Player())

	if msg.Type == MessageTypeAuth {
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, "invalid_message", "failed to parse auth data")
			return
		}
		c.handleAuth(msg, data)
		return
	}

	caller := c.Player()
	if caller == "" {
		c.sendError(msg, "not_authenticated", "must authenticate first")
		return
	}

	switch msg.Type {
	case MessageTypeCreateGame:
		c.handleCreateGame(msg, caller)

	case MessageTypeJoinGame:
		c.handleGameOp(msg, caller, c.service.JoinGame)

	case MessageTypeStartGame:
		c.handleGameOp(msg, caller, c.service.StartGame)

	case MessageTypeDeclareWinner:
		c.handleDeclareWinner(msg, caller)

	case MessageTypeCancelGame:
		c.handleGameOp(msg, caller, c.service.CancelGame)

	case MessageTypeClaimRefund:
		c.handleGameOp(msg, caller, c.service.ClaimRefund)

	case MessageTypeEmergencyHalt:
		c.handleGameOp(msg, caller, c.service.EmergencyHalt)

	case MessageTypeResumeGame:
		c.handleGameOp(msg, caller, c.service.ResumeGame)

	case MessageTypeGetGame:
		var data GameOpData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg, "invalid_message", "failed to parse request")
			return
		}
		state, err := c.service.GetGame(data.GameID)
		if err != nil {
			c.sendOpError(msg, err)
			return
		}
		c.reply(msg, MessageTypeGameState, state)

	case MessageTypeListGames:
		c.reply(msg, MessageTypeGameList, GameListData{Games: c.service.ListGames()})

	case MessageTypeFaucet:
		c.handleFaucet(msg, caller)

	default:
		c.sendError(msg, "unknown_message_type", "unknown message type: "+string(msg.Type))
	}
}

func (c *Connection) handleAuth(msg *Message, data AuthData) {
	identity, err := c.validator.Validate(c.ctx, data.Token)
	if err != nil {
		c.logger.Info("auth rejected", "playerName", data.PlayerName)
		c.reply(msg, MessageTypeAuthResponse, AuthResponseData{Success: false, Error: "invalid token"})
		return
	}

	playerID := data.PlayerName
	if identity != nil {
		// Validator-resolved identity wins over the requested name.
		playerID = identity.PlayerID
	}
	if playerID == "" {
		c.reply(msg, MessageTypeAuthResponse, AuthResponseData{Success: false, Error: "player name required"})
		return
	}

	c.setPlayer(playerID)
	c.logger.Info("authenticated", "player", playerID)
	c.reply(msg, MessageTypeAuthResponse, AuthResponseData{Success: true, PlayerID: playerID})
}

func (c *Connection) handleCreateGame(msg *Message, caller string) {
	var data CreateGameData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, "invalid_message", "failed to parse create game data")
		return
	}

	seed, err := parseHash32(data.Seed)
	if err != nil {
		c.sendError(msg, "invalid_seed", err.Error())
		return
	}

	state, err := c.service.CreateGame(caller, escrow.CreateParams{
		GameID:            data.GameID,
		BuyIn:             data.BuyIn,
		MaxPlayers:        data.MaxPlayers,
		FillDeadlineHours: data.FillDeadlineHours,
		Seed:              seed,
	})
	if err != nil {
		c.sendOpError(msg, err)
		return
	}
	c.reply(msg, MessageTypeGameState, state)
}

func (c *Connection) handleGameOp(msg *Message, caller string, op func(gameID, caller string) (GameStateData, error)) {
	var data GameOpData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, "invalid_message", "failed to parse request")
		return
	}

	state, err := op(data.GameID, caller)
	if err != nil {
		c.sendOpError(msg, err)
		return
	}
	c.reply(msg, MessageTypeGameState, state)
}

func (c *Connection) handleDeclareWinner(msg *Message, caller string) {
	var data DeclareWinnerData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, "invalid_message", "failed to parse declare winner data")
		return
	}

	proofHash, err := parseHash32(data.ProofHash)
	if err != nil {
		c.sendError(msg, "invalid_proof_hash", err.Error())
		return
	}

	state, err := c.service.DeclareWinner(data.GameID, caller, data.Winner, proofHash)
	if err != nil {
		c.sendOpError(msg, err)
		return
	}
	c.reply(msg, MessageTypeGameState, state)
}

func (c *Connection) handleFaucet(msg *Message, caller string) {
	if !c.service.FaucetEnabled() {
		c.sendError(msg, "faucet_disabled", "faucet is not enabled on this server")
		return
	}

	var data FaucetData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.sendError(msg, "invalid_message", "failed to parse faucet data")
		return
	}
	if err := c.service.Deposit(caller, data.Amount); err != nil {
		c.sendOpError(msg, err)
		return
	}
	c.reply(msg, MessageTypeBalance, BalanceData{Account: caller, Balance: c.service.Balance(caller)})
}

// sendOpError maps a rejected operation onto the wire. The error name is
// the code; the record is unchanged server-side, so retrying is always
// safe for the client to decide.
func (c *Connection) sendOpError(msg *Message, err error) {
	code := "operation_failed"
	switch {
	case errors.Is(err, ErrGameNotFound):
		code = "game_not_found"
	case errors.Is(err, ErrGameExists):
		code = "game_exists"
	}
	c.sendError(msg, code, err.Error())
}

func (c *Connection) sendError(req *Message, code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: message})
	if err != nil {
		c.logger.Error("failed to create error message", "error", err)
		return
	}
	if req != nil {
		errorMsg.RequestID = req.RequestID
	}
	_ = c.SendMessage(errorMsg)
}

func (c *Connection) reply(req *Message, messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("failed to create message", "type", messageType, "error", err)
		return
	}
	msg.RequestID = req.RequestID
	_ = c.SendMessage(msg)
}
