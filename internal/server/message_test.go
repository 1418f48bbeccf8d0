package server

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thejustinfagan/Battle-Dinghy-ORE/internal/escrow"
)

func TestMessageEnvelope(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage(MessageTypeJoinGame, GameOpData{GameID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, MessageTypeJoinGame, msg.Type)
	assert.False(t, msg.Timestamp.IsZero())

	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, MessageTypeJoinGame, decoded.Type)

	var data GameOpData
	require.NoError(t, json.Unmarshal(decoded.Data, &data))
	assert.Equal(t, "g1", data.GameID)
}

func TestParseHash32(t *testing.T) {
	t.Parallel()

	var want [32]byte
	want[0] = 0xde
	want[31] = 0x01

	got, err := parseHash32(hex.EncodeToString(want[:]))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = parseHash32("zznothex")
	assert.Error(t, err)

	_, err = parseHash32(strings.Repeat("ab", 16))
	assert.Error(t, err, "short input should be rejected")
}

func TestGameStateFromEscrow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := &escrow.Escrow{
		GameID:       "g1",
		Operator:     "op",
		Status:       escrow.StatusActive,
		BuyIn:        100,
		MaxPlayers:   2,
		Players:      []string{"p1", "p2"},
		Refunded:     []bool{false, false},
		CreatedAt:    now,
		FillDeadline: now.Add(time.Hour),
		StartedAt:    now.Add(10 * time.Minute),
	}

	state := GameStateFromEscrow(e, 200)
	assert.Equal(t, "active", state.Status)
	assert.Equal(t, 2, state.CurrentPlayers)
	assert.Equal(t, int64(200), state.Pool)
	assert.Empty(t, state.ProofHash, "unsettled game carries no proof")

	// Snapshots are copies.
	state.Players[0] = "mutated"
	assert.Equal(t, "p1", e.Players[0])

	e.Winner = "p1"
	e.ProofHash = [32]byte{0xff}
	e.Status = escrow.StatusComplete
	settled := GameStateFromEscrow(e, 0)
	assert.Equal(t, "p1", settled.Winner)
	assert.Equal(t, hex.EncodeToString(e.ProofHash[:]), settled.ProofHash)
}
